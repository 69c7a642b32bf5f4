package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardian/backend/internal/model"
)

// NoShowAlertFilter 告警列表过滤条件
type NoShowAlertFilter struct {
	Status  string
	GuardID string
	From    *time.Time
	To      *time.Time
}

// NoShowAlertRepository 缺勤告警数据访问接口
type NoShowAlertRepository interface {
	// CreateBatchIfAbsent 单事务批量插入，(guard_id, shift_id) 冲突的行跳过；
	// 返回实际插入的告警
	CreateBatchIfAbsent(ctx context.Context, alerts []*model.NoShowAlert) ([]*model.NoShowAlert, error)
	GetByID(ctx context.Context, id string) (*model.NoShowAlert, error)
	// ListByExpectedStartRange 预期上班时间在 [from, to] 内的告警（用于去重）
	ListByExpectedStartRange(ctx context.Context, from, to time.Time) ([]model.NoShowAlert, error)
	List(ctx context.Context, filter NoShowAlertFilter, offset, limit int) ([]model.NoShowAlert, int64, error)
	// UpdateStatus 仅当当前状态属于 fromStatuses 时更新，返回是否更新成功
	UpdateStatus(ctx context.Context, alert *model.NoShowAlert, fromStatuses []string) (bool, error)
}

type noShowAlertRepo struct {
	db *gorm.DB
}

// NewNoShowAlertRepo 创建 NoShowAlertRepository 实例
func NewNoShowAlertRepo(db *gorm.DB) NoShowAlertRepository {
	return &noShowAlertRepo{db: db}
}

func (r *noShowAlertRepo) CreateBatchIfAbsent(ctx context.Context, alerts []*model.NoShowAlert) ([]*model.NoShowAlert, error) {
	inserted := make([]*model.NoShowAlert, 0, len(alerts))
	if len(alerts) == 0 {
		return inserted, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, alert := range alerts {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "guard_id"}, {Name: "shift_id"}},
				DoNothing: true,
			}).Create(alert)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				inserted = append(inserted, alert)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *noShowAlertRepo) GetByID(ctx context.Context, id string) (*model.NoShowAlert, error) {
	var alert model.NoShowAlert
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Where("alert_id = ?", id).
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *noShowAlertRepo) ListByExpectedStartRange(ctx context.Context, from, to time.Time) ([]model.NoShowAlert, error) {
	var alerts []model.NoShowAlert
	err := r.db.WithContext(ctx).
		Where("expected_shift_start_time BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Find(&alerts).Error
	return alerts, err
}

func (r *noShowAlertRepo) List(ctx context.Context, filter NoShowAlertFilter, offset, limit int) ([]model.NoShowAlert, int64, error) {
	var alerts []model.NoShowAlert
	var total int64

	db := r.db.WithContext(ctx).Model(&model.NoShowAlert{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.GuardID != "" {
		db = db.Where("guard_id = ?", filter.GuardID)
	}
	if filter.From != nil {
		db = db.Where("expected_shift_start_time >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		db = db.Where("expected_shift_start_time <= ?", filter.To.UTC())
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Guard").
		Offset(offset).Limit(limit).
		Order("expected_shift_start_time DESC").
		Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

func (r *noShowAlertRepo) UpdateStatus(ctx context.Context, alert *model.NoShowAlert, fromStatuses []string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.NoShowAlert{}).
		Where("alert_id = ? AND status IN ?", alert.AlertID, fromStatuses).
		Updates(map[string]interface{}{
			"status":          alert.Status,
			"acknowledged_by": alert.AcknowledgedBy,
			"acknowledged_at": alert.AcknowledgedAt,
			"resolved_by":     alert.ResolvedBy,
			"resolved_at":     alert.ResolvedAt,
			"resolution_note": alert.ResolutionNote,
			"updated_by":      alert.UpdatedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
