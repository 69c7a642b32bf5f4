package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardian/backend/internal/model"
)

// SystemConfigRepository 单行运行参数
type SystemConfigRepository interface {
	// Get 读取唯一一行，未初始化时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context) (*model.SystemConfig, error)
	// Upsert 写入唯一一行；created_* 只在首次插入时生效
	Upsert(ctx context.Context, cfg *model.SystemConfig) error
}

type systemConfigRepo struct {
	db *gorm.DB
}

func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

func (r *systemConfigRepo) Get(ctx context.Context) (*model.SystemConfig, error) {
	var row model.SystemConfig
	if err := r.db.WithContext(ctx).Take(&row, "singleton = ?", true).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *systemConfigRepo) Upsert(ctx context.Context, cfg *model.SystemConfig) error {
	cfg.Singleton = true
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "singleton"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"no_show_grace_minutes",
			"check_in_proximity_minutes",
			"variance_threshold_hours",
			"licence_warning_days",
			"updated_at",
			"updated_by",
		}),
	}).Create(cfg).Error
}
