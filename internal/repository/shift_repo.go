package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"guardian/backend/internal/model"
	pkgerrors "guardian/backend/pkg/errors"
)

// ShiftFilter 班次列表过滤条件，日期为闭区间
type ShiftFilter struct {
	GuardID string
	SiteID  string
	From    *time.Time
	To      *time.Time
}

// ShiftRepository 排班数据访问接口
// 只做纯查询与写入，不带缓存
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	Update(ctx context.Context, shift *model.Shift) error
	Delete(ctx context.Context, id string, deletedBy string) error
	List(ctx context.Context, filter ShiftFilter, offset, limit int) ([]model.Shift, int64, error)
	// ListByGuardAndDates 某保安在 [from, to] 日期内的全部班次
	ListByGuardAndDates(ctx context.Context, guardID string, from, to time.Time) ([]model.Shift, error)
	// ListByDateRange 全部保安在 [from, to] 日期内的班次
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Shift, error)
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Preload("Site").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// Update 乐观锁更新
func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	oldVersion := shift.Version
	shift.Version = oldVersion + 1
	result := r.db.WithContext(ctx).
		Model(shift).
		Where("version = ?", oldVersion).
		Select("guard_id", "site_id", "shift_date", "start_time", "end_time",
			"position", "break_times", "notes", "updated_by", "updated_at", "version").
		Updates(shift)
	if result.Error != nil {
		shift.Version = oldVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		shift.Version = oldVersion
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *shiftRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("shift_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *shiftRepo) List(ctx context.Context, filter ShiftFilter, offset, limit int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Shift{})
	if filter.GuardID != "" {
		db = db.Where("guard_id = ?", filter.GuardID)
	}
	if filter.SiteID != "" {
		db = db.Where("site_id = ?", filter.SiteID)
	}
	if filter.From != nil {
		db = db.Where("shift_date >= ?", model.DateOf(*filter.From))
	}
	if filter.To != nil {
		db = db.Where("shift_date <= ?", model.DateOf(*filter.To))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Guard").Preload("Site").
		Offset(offset).Limit(limit).
		Order("shift_date ASC, start_time ASC").
		Find(&shifts).Error; err != nil {
		return nil, 0, err
	}

	return shifts, total, nil
}

func (r *shiftRepo) ListByGuardAndDates(ctx context.Context, guardID string, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Site").
		Where("guard_id = ? AND shift_date BETWEEN ? AND ?", guardID, model.DateOf(from), model.DateOf(to)).
		Order("shift_date ASC, start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("shift_date BETWEEN ? AND ?", model.DateOf(from), model.DateOf(to)).
		Order("shift_date ASC, start_time ASC").
		Find(&shifts).Error
	return shifts, err
}
