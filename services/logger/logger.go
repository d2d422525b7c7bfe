package logsvc

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/studygroups/core"
)

// Logger writes structured logs with zap and forwards them to Rollbar when enabled.
type Logger struct {
	zl      *zap.Logger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

// New builds the application logger. Rollbar reporting is on when a token is set outside debug mode.
func New(conf *core.Config) (*Logger, error) {
	zconf := zap.NewProductionConfig()
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if conf.TestMode {
		zconf.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zl, err := zconf.Build(zap.AddCallerSkip(1), zap.Fields(
		zap.String("app", conf.AppName),
		zap.String("env", conf.Env),
		zap.String("build", conf.Build),
	))
	if err != nil {
		return nil, err
	}

	l := &Logger{zl: zl}
	if conf.RollbarToken != "" && !conf.Debug {
		setupRollbar(conf)
		l.rollbar = true
	}
	return l, nil
}

// NewFromZap wraps an existing zap logger, without Rollbar.
func NewFromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func (l *Logger) Sync() error {
	if l.rollbar {
		waitRollbar()
	}
	return l.zl.Sync()
}

// fields turns loosely typed args into zap fields.
func fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			flds = append(flds, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				flds = append(flds, zap.Any(k, v))
			}
		case core.Actor:
			flds = append(flds, zap.String("actor_id", a.ID), zap.String("actor", a.Name))
		default:
			flds = append(flds, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
	}
	return flds
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug(msg, fields(args)...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info(msg, fields(args)...)
	if l.rollbar {
		reportInfo(msg, args)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn(msg, fields(args)...)
	if l.rollbar {
		reportWarning(msg, args)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error(msg, fields(args)...)
	if l.rollbar {
		reportError(msg, args)
	}
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.rollbar {
		reportCritical(msg, args)
		waitRollbar()
	}
	l.zl.Fatal(msg, fields(args)...)
}
