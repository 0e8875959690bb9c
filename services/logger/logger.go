package logsvc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Logger writes structured logs with zap and reports them to Rollbar when enabled.
type Logger struct {
	zap     *zap.Logger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

// New builds the logger of conf. Logs go to stdout, or to a rotated file when one is set.
// Rollbar reporting is enabled outside of debug & test environments when a token is set.
func New(conf *core.Config) (*Logger, error) {
	z, err := newZap(conf)
	if err != nil {
		return nil, err
	}

	report := conf.RollbarToken != "" && !conf.Debug && !conf.TestMode
	if report {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
	}
	rollbar.SetEnabled(report)
	return &Logger{zap: z, rollbar: report}, nil
}

// NewWithZap wraps z without error reporting.
func NewWithZap(z *zap.Logger) *Logger {
	return &Logger{zap: z}
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if conf.Debug {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	syncer := zapcore.AddSync(os.Stdout)
	if conf.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(conf.Log.File), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating log directory")
		}
		syncer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.Log.File,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			Compress:   true,
		})
	}

	level, err := zapcore.ParseLevel(strings.ToLower(conf.Log.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	if conf.Debug && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	z := zap.New(zapcore.NewCore(encoder, syncer, level), zap.AddCaller(), zap.AddCallerSkip(1))
	return z.With(zap.String("app", conf.AppName), zap.String("env", conf.Env)), nil
}

// fields converts log args: errors, map[string]interface{} extras & the current Principal.
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			fs = append(fs, zap.Error(a))
		case core.Principal:
			fs = append(fs, zap.String("user_id", a.UserID))
		case map[string]interface{}:
			for k, v := range a {
				fs = append(fs, zap.Any(k, v))
			}
		default:
			fs = append(fs, zap.Any("extra", a))
		}
	}
	return fs
}

// prepare drops the principal from args and sets it as the Rollbar person.
func prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if p, ok := arg.(core.Principal); ok {
			if !personSet { // only set one person
				rollbar.SetPerson(p.UserID, p.Email, p.Email)
				personSet = true
			}
			continue
		}
		if arg != nil {
			newArgs = append(newArgs, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zap.Debug(msg, fields(args)...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.zap.Info(msg, fields(args)...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Warning(prepare(msg, args)...)
	}
	l.zap.Warn(msg, fields(args)...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Error(prepare(msg, args)...)
	}
	l.zap.Error(msg, fields(args)...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Critical(prepare(msg, args)...)
		rollbar.Wait()
	}
	l.zap.Fatal(msg, fields(args)...)
}

// Sync flushes buffered logs and pending reports.
func (l *Logger) Sync() {
	if l.rollbar {
		rollbar.Wait()
	}
	_ = l.zap.Sync()
}
