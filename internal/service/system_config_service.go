package service

import (
	"context"

	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	// Get 表中无记录时返回配置文件中的缺省值
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error)
}

type systemConfigService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toSystemConfigResponse(row), nil
}

// ────────────────────── Update ──────────────────────

func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if req.NoShowGraceMinutes != nil {
		row.NoShowGraceMinutes = *req.NoShowGraceMinutes
	}
	if req.CheckInProximityMinutes != nil {
		row.CheckInProximityMinutes = *req.CheckInProximityMinutes
	}
	if req.VarianceThresholdHours != nil {
		row.VarianceThresholdHours = *req.VarianceThresholdHours
	}
	if req.LicenceWarningDays != nil {
		row.LicenceWarningDays = *req.LicenceWarningDays
	}
	row.UpdatedBy = actorPtr(callerID)

	if err := s.repo.SystemConfig.Upsert(ctx, row); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统配置已更新",
		zap.String("by", callerID),
		zap.Int("grace_minutes", row.NoShowGraceMinutes),
		zap.Int("proximity_minutes", row.CheckInProximityMinutes),
		zap.Float64("variance_threshold", row.VarianceThresholdHours),
	)
	return toSystemConfigResponse(row), nil
}

// load 读取单行配置，缺失时以配置文件缺省值构造（Update 会插入）
func (s *systemConfigService) load(ctx context.Context) (*model.SystemConfig, error) {
	row, err := s.repo.SystemConfig.Get(ctx)
	if err == nil {
		return row, nil
	}
	if !isNotFound(err) {
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}

	def := defaultSettings(s.cfg)
	return &model.SystemConfig{
		Singleton:               true,
		NoShowGraceMinutes:      def.GraceMinutes,
		CheckInProximityMinutes: def.ProximityMinutes,
		VarianceThresholdHours:  def.VarianceThreshold,
		LicenceWarningDays:      def.LicenceWarningDays,
	}, nil
}

func toSystemConfigResponse(row *model.SystemConfig) *dto.SystemConfigResponse {
	resp := &dto.SystemConfigResponse{
		NoShowGraceMinutes:      row.NoShowGraceMinutes,
		CheckInProximityMinutes: row.CheckInProximityMinutes,
		VarianceThresholdHours:  row.VarianceThresholdHours,
		LicenceWarningDays:      row.LicenceWarningDays,
	}
	if !row.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatTime(row.UpdatedAt)
	}
	return resp
}
