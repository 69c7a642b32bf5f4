package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"guardian/backend/internal/model"
)

// ShiftActivityRepository 班次动态数据访问接口（只追加，无更新/删除）
type ShiftActivityRepository interface {
	Create(ctx context.Context, activity *model.ShiftActivity) error
	ListByShift(ctx context.Context, shiftID string) ([]model.ShiftActivity, error)
	// ListByTypesInRange 指定类型、时间戳在 [from, to] 内的动态
	ListByTypesInRange(ctx context.Context, types []string, from, to time.Time) ([]model.ShiftActivity, error)
}

type shiftActivityRepo struct {
	db *gorm.DB
}

// NewShiftActivityRepo 创建 ShiftActivityRepository 实例
func NewShiftActivityRepo(db *gorm.DB) ShiftActivityRepository {
	return &shiftActivityRepo{db: db}
}

func (r *shiftActivityRepo) Create(ctx context.Context, activity *model.ShiftActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *shiftActivityRepo) ListByShift(ctx context.Context, shiftID string) ([]model.ShiftActivity, error) {
	var activities []model.ShiftActivity
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("occurred_at ASC").
		Find(&activities).Error
	return activities, err
}

func (r *shiftActivityRepo) ListByTypesInRange(ctx context.Context, types []string, from, to time.Time) ([]model.ShiftActivity, error) {
	var activities []model.ShiftActivity
	err := r.db.WithContext(ctx).
		Where("activity_type IN ? AND occurred_at BETWEEN ? AND ?", types, from.UTC(), to.UTC()).
		Order("occurred_at ASC").
		Find(&activities).Error
	return activities, err
}
