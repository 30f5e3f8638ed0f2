package lib

import (
	"os"
	"path"

	"github.com/covalenthq/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Local runs get a colored console encoder, everything else
// gets JSON. Output goes to stdout and to a rotated file under logDir.
func NewLogger(env string, logDir string) *zap.Logger {
	var encoderCfg zapcore.EncoderConfig
	if env == "local" {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.LevelKey = "severity"
		encoderCfg.MessageKey = "message"
	}
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if env == "local" {
		level.SetLevel(zap.DebugLevel)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
				Filename:   path.Join(logDir, "server.log"),
				MaxSize:    500,
				MaxBackups: 3,
				MaxAge:     30,
				Compress:   true,
			}))
		}
	}

	var encoder zapcore.Encoder
	if env == "local" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	zap.ReplaceGlobals(logger)
	return logger
}
