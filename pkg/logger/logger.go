package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"guardian/backend/config"
)

// NewLogger 按配置构建 zap 日志器
// console 格式用于本地开发，其余一律输出 JSON；所有日志带 service 字段
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapCfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if len(cfg.Output) > 0 {
		zapCfg.OutputPaths = cfg.Output
	}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}
	return l.With(zap.String("service", "guardian")), nil
}
