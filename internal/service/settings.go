package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// settings 运行时业务参数：system_config 表优先，缺失时取配置文件
type settings struct {
	GraceMinutes       int
	ProximityMinutes   int
	VarianceThreshold  float64
	LicenceWarningDays int
}

func (s settings) grace() time.Duration {
	return time.Duration(s.GraceMinutes) * time.Minute
}

func (s settings) proximity() time.Duration {
	return time.Duration(s.ProximityMinutes) * time.Minute
}

func defaultSettings(cfg *config.Config) settings {
	return settings{
		GraceMinutes:       cfg.Attendance.GraceMinutes,
		ProximityMinutes:   cfg.Attendance.ProximityMinutes,
		VarianceThreshold:  cfg.Payroll.VarianceThresholdHours,
		LicenceWarningDays: 30,
	}
}

func loadSettings(ctx context.Context, repo repository.SystemConfigRepository, cfg *config.Config) (settings, error) {
	row, err := repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultSettings(cfg), nil
		}
		return settings{}, fmt.Errorf("读取系统配置失败: %w", err)
	}
	return settingsFromRow(row), nil
}

func settingsFromRow(row *model.SystemConfig) settings {
	return settings{
		GraceMinutes:       row.NoShowGraceMinutes,
		ProximityMinutes:   row.CheckInProximityMinutes,
		VarianceThreshold:  row.VarianceThresholdHours,
		LicenceWarningDays: row.LicenceWarningDays,
	}
}
