// Package config defines the configuration of the hans driver and relay, and how it is read.
package config

import (
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
)

// Defaults applied to fields left unset.
const (
	DefaultSpeed        = 0.1
	DefaultTimeout      = network.DefaultTimeout
	DefaultPollInterval = 50 * time.Millisecond
	DefaultPathName     = "my_path"
	DefaultLogLevel     = "info"
)

// Config is the whole driver configuration.
type Config struct {
	Arm   ArmConfig   `json:"arm"`
	Relay RelayConfig `json:"relay"`
	Log   LogConfig   `json:"log"`
}

// ArmConfig describes how to reach and drive one robot.
type ArmConfig struct {
	Host    string  `json:"host"`
	Port    uint16  `json:"port,omitempty"`
	RobotID uint8   `json:"robot_id,omitempty"`
	Speed   float64 `json:"speed,omitempty"`

	TimeoutMs        int     `json:"timeout_ms,omitempty"`
	PollIntervalMs   int     `json:"poll_interval_ms,omitempty"`
	MotionTimeoutSec float64 `json:"motion_timeout_sec,omitempty"`
	PathName         string  `json:"path_name,omitempty"`
}

// RelayConfig describes the JSON relay server.
type RelayConfig struct {
	Port uint16 `json:"port,omitempty"`
	Fake bool   `json:"fake,omitempty"`
}

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Level      string `json:"level,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in unset fields.
func (cfg *Config) ApplyDefaults() {
	cfg.Arm.ApplyDefaults()
	if cfg.Relay.Port == 0 {
		cfg.Relay.Port = network.PortIF
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if err := cfg.Arm.Validate(joinPath(path, "arm")); err != nil {
		return err
	}
	return cfg.Log.Validate(joinPath(path, "log"))
}

// ApplyDefaults fills in unset fields.
func (conf *ArmConfig) ApplyDefaults() {
	if conf.Port == 0 {
		conf.Port = network.PortIF
	}
	if conf.Speed == 0 {
		conf.Speed = DefaultSpeed
	}
	if conf.TimeoutMs == 0 {
		conf.TimeoutMs = int(DefaultTimeout / time.Millisecond)
	}
	if conf.PollIntervalMs == 0 {
		conf.PollIntervalMs = int(DefaultPollInterval / time.Millisecond)
	}
	if conf.PathName == "" {
		conf.PathName = DefaultPathName
	}
}

// Validate ensures all parts of the config are valid. The host is not required here since it
// may be given later to Connect.
func (conf *ArmConfig) Validate(path string) error {
	switch {
	case conf.Speed < 0 || conf.Speed > 1:
		return goutils.NewConfigValidationError(path, errors.Errorf("speed must be in [0, 1], got %v", conf.Speed))
	case conf.TimeoutMs < 0:
		return goutils.NewConfigValidationError(path, errors.New("timeout_ms cannot be negative"))
	case conf.PollIntervalMs < 0:
		return goutils.NewConfigValidationError(path, errors.New("poll_interval_ms cannot be negative"))
	case conf.MotionTimeoutSec < 0:
		return goutils.NewConfigValidationError(path, errors.New("motion_timeout_sec cannot be negative"))
	}
	return nil
}

// Timeout is the transport read/write timeout.
func (conf *ArmConfig) Timeout() time.Duration {
	return time.Duration(conf.TimeoutMs) * time.Millisecond
}

// PollInterval is the wait between state polls while waiting for motion to finish.
func (conf *ArmConfig) PollInterval() time.Duration {
	return time.Duration(conf.PollIntervalMs) * time.Millisecond
}

// MotionTimeout bounds motion waits. Zero means no bound.
func (conf *ArmConfig) MotionTimeout() time.Duration {
	return time.Duration(conf.MotionTimeoutSec * float64(time.Second))
}

// Validate checks the log level.
func (conf *LogConfig) Validate(path string) error {
	if _, err := logging.LevelFromString(conf.Level); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if conf.MaxSizeMB < 0 || conf.MaxBackups < 0 {
		return goutils.NewConfigValidationError(path, errors.New("log rotation limits cannot be negative"))
	}
	return nil
}

// NewLogger builds the logger described by conf, writing to stdout and, if set, to a
// rotating file.
func (conf *LogConfig) NewLogger(name string) (logging.Logger, error) {
	level, err := logging.LevelFromString(conf.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(name)
	logger.SetLevel(level)
	if conf.File != "" {
		logger.AddAppender(logging.NewFileAppender(logging.FileAppenderConfig{
			Filename:   conf.File,
			MaxSizeMB:  conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
		}))
	}
	return logger, nil
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
