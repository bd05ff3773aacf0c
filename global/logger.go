package global

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logFileNamePrefix = "blockfile-"
	logFileNameSuffix = ".log"
	logsDirMode       = 0o700
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		cfg := GetEnvCfg()

		logLevel := cfg.Log.Level
		if cfg.Test {
			logLevel = "debug"
		}

		setting := loggerSetting{
			test:     cfg.Test,
			logLevel: logLevel,
			logDir:   cfg.Log.Dir,
		}

		cores := []zapcore.Core{setting.setupConsoleCore()}
		if cfg.Log.FileEnabled && !cfg.Test {
			if core, err := setting.setupLogFileCore(time.Now()); err != nil {
				fmt.Fprintln(os.Stderr, "Unable to create log file:", err)
			} else {
				cores = append(cores, core)
			}
		}

		logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	})
	return logger
}

type loggerSetting struct {
	test     bool
	logLevel string
	logDir   string
}

func (l *loggerSetting) encoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	if l.test {
		config = zap.NewDevelopmentEncoderConfig()
	}
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	return config
}

func (l *loggerSetting) setupConsoleCore() zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(l.encoderConfig()),
		zapcore.AddSync(os.Stderr),
		logLevelFromFlag(strings.ToLower(l.logLevel)),
	)
}

func (l *loggerSetting) setupLogFileCore(now time.Time) (zapcore.Core, error) {
	if err := os.MkdirAll(l.logDir, logsDirMode); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%v%v-%v%v", logFileNamePrefix, now.Format("20060102-150405"), os.Getpid(), logFileNameSuffix)
	f, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(l.encoderConfig()),
		zapcore.Lock(f),
		logLevelFromFlag(strings.ToLower(l.logLevel)),
	), nil
}

func logLevelFromFlag(levelString string) zapcore.LevelEnabler {
	switch levelString {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "dpanic":
		return zap.DPanicLevel
	case "panic":
		return zap.PanicLevel
	default:
		return zap.InfoLevel
	}
}
