package log

import (
	cCfg "politefetch/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TomLog 按config.toml里的logLevel初始化logger，并设置为zap全局logger
func TomLog() (*zap.Logger, error) {
	cfg, err := cCfg.GetCfg()
	if err != nil {
		return nil, err
	}

	logText := cfg.Get("logLevel").String("INFO")
	logLevel, err := zapcore.ParseLevel(logText)
	if err != nil {
		return nil, err
	}
	plugin := NewStdoutPlugin(logLevel)
	logger := NewLogger(plugin)
	logger.Info("log init end")

	zap.ReplaceGlobals(logger)

	return logger, nil
}
