package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a config from the given file. ${VAR} references are replaced from the
// environment before parsing, and the file may use JSON5 syntax.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from r. originalPath is only used in error messages.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeAttributes decodes a loosely typed attribute map, such as a parsed JSON object, into
// the struct pointed to by out using its json tags. Fields absent from attrs keep their
// current value. Unknown keys are an error.
func DecodeAttributes(attrs map[string]interface{}, out interface{}) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(attrs); err != nil {
		return err
	}
	if len(md.Unused) > 0 {
		return errors.Errorf("unknown attributes %v", md.Unused)
	}
	return nil
}

// FromAttributes returns base overridden by attrs, with defaults applied and validated.
func FromAttributes(base ArmConfig, attrs map[string]interface{}) (ArmConfig, error) {
	conf := base
	if err := DecodeAttributes(attrs, &conf); err != nil {
		return ArmConfig{}, err
	}
	conf.ApplyDefaults()
	if err := conf.Validate("attributes"); err != nil {
		return ArmConfig{}, err
	}
	return conf, nil
}
