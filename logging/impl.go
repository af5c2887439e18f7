package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	mu        *sync.RWMutex
	appenders *[]Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	list := append([]Appender{}, appenders...)
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		mu:        &sync.RWMutex{},
		appenders: &list,
	}
}

// AddAppender is shared with every sublogger.
func (imp *impl) AddAppender(appender Appender) {
	imp.mu.Lock()
	*imp.appenders = append(*imp.appenders, appender)
	imp.mu.Unlock()
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = imp.name + "." + subname
	}
	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		mu:        imp.mu,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	var err error
	for _, appender := range *imp.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

// AsZap returns a zap logger that writes through this logger's appenders.
func (imp *impl) AsZap() *zap.SugaredLogger {
	return zap.New(&appenderCore{imp: imp}, zap.AddCaller()).Sugar().Named(imp.name)
}

func (imp *impl) shouldLog(level Level) bool {
	if GlobalLogLevel.Level() == zapcore.DebugLevel {
		return true
	}
	return level >= imp.level.Get()
}

func (imp *impl) write(entry zapcore.Entry, fields []zapcore.Field) {
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	for _, appender := range *imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) entry(level Level, msg string) zapcore.Entry {
	return zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
}

func (imp *impl) logArgs(level Level, force bool, args ...interface{}) {
	if force || imp.shouldLog(level) {
		imp.write(imp.entry(level, fmt.Sprint(args...)), nil)
	}
}

func (imp *impl) logf(level Level, force bool, template string, args ...interface{}) {
	if force || imp.shouldLog(level) {
		imp.write(imp.entry(level, fmt.Sprintf(template, args...)), nil)
	}
}

// logw pairs up keysAndValues as fields. A trailing key without a value gets an error value.
func (imp *impl) logw(level Level, force bool, msg string, keysAndValues ...interface{}) {
	if !force && !imp.shouldLog(level) {
		return
	}
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
		}
	}
	imp.write(imp.entry(level, msg), fields)
}

func (imp *impl) Debug(args ...interface{}) { imp.logArgs(DEBUG, false, args...) }
func (imp *impl) Info(args ...interface{})  { imp.logArgs(INFO, false, args...) }
func (imp *impl) Warn(args ...interface{})  { imp.logArgs(WARN, false, args...) }
func (imp *impl) Error(args ...interface{}) { imp.logArgs(ERROR, false, args...) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.logf(DEBUG, false, template, args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.logf(INFO, false, template, args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.logf(WARN, false, template, args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.logf(ERROR, false, template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logw(DEBUG, false, msg, keysAndValues...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logw(INFO, false, msg, keysAndValues...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logw(WARN, false, msg, keysAndValues...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logw(ERROR, false, msg, keysAndValues...)
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.logf(DEBUG, IsDebugMode(ctx), template, args...)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logw(DEBUG, IsDebugMode(ctx), msg, keysAndValues...)
}

func (imp *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logw(INFO, IsDebugMode(ctx), msg, keysAndValues...)
}

func (imp *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logw(WARN, IsDebugMode(ctx), msg, keysAndValues...)
}

func (imp *impl) CErrorw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logw(ERROR, IsDebugMode(ctx), msg, keysAndValues...)
}

// appenderCore lets zap loggers write through our appenders.
type appenderCore struct {
	imp    *impl
	fields []zapcore.Field
}

func (c *appenderCore) Enabled(level zapcore.Level) bool {
	return GlobalLogLevel.Level() == zapcore.DebugLevel || level >= c.imp.level.Get().AsZap()
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{imp: c.imp, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.imp.write(entry, append(append([]zapcore.Field{}, c.fields...), fields...))
	return nil
}

func (c *appenderCore) Sync() error {
	return c.imp.Sync()
}

// getCaller returns the location of the call into the public Logger method.
func getCaller() zapcore.EntryCaller {
	var entryCaller zapcore.EntryCaller
	const skipToLogCaller = 4
	var ok bool
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true
	if fn := runtime.FuncForPC(entryCaller.PC); fn != nil {
		entryCaller.Function = fn.Name()
	}
	return entryCaller
}
