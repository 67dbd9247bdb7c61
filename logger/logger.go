package logger

import (
	"io"
	"os"

	"github.com/coinmeca/flashloan-deployer/conf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It discards everything until Init is called.
var Logger = zap.NewNop()

var terminal bool

// Init builds Logger from the log section of the config. Terminal output goes to stderr.
func Init(c conf.Log) error {
	return InitTo(c, os.Stderr)
}

// InitTo is Init with the terminal sink redirected to w.
func InitTo(c conf.Log, w io.Writer) error {
	var cores []zapcore.Core

	if c.Terminal.Use {
		encoder := zap.NewDevelopmentEncoderConfig()
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoder),
			zapcore.Lock(zapcore.AddSync(w)),
			Level(c.Terminal.Verbosity),
		))
	}

	if c.File.Use {
		f, _, err := zap.Open(c.File.FileName)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			f,
			Level(c.File.Verbosity),
		))
	}

	Logger = zap.New(zapcore.NewTee(cores...))
	terminal = c.Terminal.Use
	return nil
}

// Terminal reports whether Logger writes to the terminal sink.
func Terminal() bool {
	return terminal
}

// Level maps a verbosity (0 quiet .. 3 debug) to a zap level.
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.ErrorLevel
	case verbosity == 1:
		return zapcore.WarnLevel
	case verbosity == 2:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func Sync() {
	_ = Logger.Sync()
}
