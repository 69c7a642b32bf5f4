package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardian/backend/internal/model"
)

// ── 已付工时 ──

// PayrollInputFilter 已付工时过滤条件
type PayrollInputFilter struct {
	GuardID     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// PayrollInputRepository 已付工时数据访问接口
type PayrollInputRepository interface {
	// Upsert 按 (guard, 周期) 覆盖写入，返回落库后的记录
	Upsert(ctx context.Context, input *model.PayrollInput) (*model.PayrollInput, error)
	// ListByPeriod 与周期完全一致的全部记录
	ListByPeriod(ctx context.Context, start, end time.Time) ([]model.PayrollInput, error)
	List(ctx context.Context, filter PayrollInputFilter, offset, limit int) ([]model.PayrollInput, int64, error)
}

type payrollInputRepo struct {
	db *gorm.DB
}

// NewPayrollInputRepo 创建 PayrollInputRepository 实例
func NewPayrollInputRepo(db *gorm.DB) PayrollInputRepository {
	return &payrollInputRepo{db: db}
}

func (r *payrollInputRepo) Upsert(ctx context.Context, input *model.PayrollInput) (*model.PayrollInput, error) {
	input.PayPeriodStart = model.DateOf(input.PayPeriodStart)
	input.PayPeriodEnd = model.DateOf(input.PayPeriodEnd)

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guard_id"}, {Name: "pay_period_start"}, {Name: "pay_period_end"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"hours_paid", "source", "updated_by", "updated_at",
		}),
	}).Create(input).Error
	if err != nil {
		return nil, err
	}

	var saved model.PayrollInput
	err = db.Where("guard_id = ? AND pay_period_start = ? AND pay_period_end = ?",
		input.GuardID, input.PayPeriodStart, input.PayPeriodEnd).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *payrollInputRepo) ListByPeriod(ctx context.Context, start, end time.Time) ([]model.PayrollInput, error) {
	var inputs []model.PayrollInput
	err := r.db.WithContext(ctx).
		Where("pay_period_start = ? AND pay_period_end = ?", model.DateOf(start), model.DateOf(end)).
		Find(&inputs).Error
	return inputs, err
}

func (r *payrollInputRepo) List(ctx context.Context, filter PayrollInputFilter, offset, limit int) ([]model.PayrollInput, int64, error) {
	var inputs []model.PayrollInput
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PayrollInput{})
	if filter.GuardID != "" {
		db = db.Where("guard_id = ?", filter.GuardID)
	}
	if filter.PeriodStart != nil {
		db = db.Where("pay_period_start >= ?", model.DateOf(*filter.PeriodStart))
	}
	if filter.PeriodEnd != nil {
		db = db.Where("pay_period_end <= ?", model.DateOf(*filter.PeriodEnd))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("pay_period_start DESC").
		Find(&inputs).Error; err != nil {
		return nil, 0, err
	}
	return inputs, total, nil
}

// ── 工资差异 ──

// PayrollVarianceFilter 工资差异过滤条件
type PayrollVarianceFilter struct {
	Status  string
	GuardID string
	From    *time.Time
	To      *time.Time
}

// PayrollVarianceRepository 工资差异数据访问接口
type PayrollVarianceRepository interface {
	// CreateIfAbsent 同一 (guard, 周期) 已存在时不插入，返回是否插入
	CreateIfAbsent(ctx context.Context, v *model.PayrollVariance) (bool, error)
	// UpdateIfPending 仅在 pending 状态下覆盖计算结果，返回是否更新
	UpdateIfPending(ctx context.Context, v *model.PayrollVariance) (bool, error)
	// DeleteIfPending 差异回落到阈值内时撤销 pending 记录，返回是否删除
	DeleteIfPending(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.PayrollVariance, error)
	GetByGuardAndPeriod(ctx context.Context, guardID string, start, end time.Time) (*model.PayrollVariance, error)
	ListByPeriod(ctx context.Context, start, end time.Time) ([]model.PayrollVariance, error)
	List(ctx context.Context, filter PayrollVarianceFilter, offset, limit int) ([]model.PayrollVariance, int64, error)
	// UpdateReview 仅当当前状态为 fromStatus 时写入审核结果
	UpdateReview(ctx context.Context, v *model.PayrollVariance, fromStatus string) (bool, error)
}

type payrollVarianceRepo struct {
	db *gorm.DB
}

// NewPayrollVarianceRepo 创建 PayrollVarianceRepository 实例
func NewPayrollVarianceRepo(db *gorm.DB) PayrollVarianceRepository {
	return &payrollVarianceRepo{db: db}
}

func (r *payrollVarianceRepo) CreateIfAbsent(ctx context.Context, v *model.PayrollVariance) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guard_id"}, {Name: "variance_date"}, {Name: "pay_period_end"}},
		DoNothing: true,
	}).Create(v)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *payrollVarianceRepo) UpdateIfPending(ctx context.Context, v *model.PayrollVariance) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PayrollVariance{}).
		Where("variance_id = ? AND status = ?", v.VarianceID, model.VariancePending).
		Updates(map[string]interface{}{
			"scheduled_hours": v.ScheduledHours,
			"actual_hours":    v.ActualHours,
			"paid_hours":      v.PaidHours,
			"variance_hours":  v.VarianceHours,
			"updated_by":      v.UpdatedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *payrollVarianceRepo) DeleteIfPending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("variance_id = ? AND status = ?", id, model.VariancePending).
		Delete(&model.PayrollVariance{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *payrollVarianceRepo) GetByID(ctx context.Context, id string) (*model.PayrollVariance, error) {
	var v model.PayrollVariance
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Where("variance_id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *payrollVarianceRepo) GetByGuardAndPeriod(ctx context.Context, guardID string, start, end time.Time) (*model.PayrollVariance, error) {
	var v model.PayrollVariance
	err := r.db.WithContext(ctx).
		Where("guard_id = ? AND variance_date = ? AND pay_period_end = ?", guardID, model.DateOf(start), model.DateOf(end)).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *payrollVarianceRepo) ListByPeriod(ctx context.Context, start, end time.Time) ([]model.PayrollVariance, error) {
	var list []model.PayrollVariance
	err := r.db.WithContext(ctx).
		Where("variance_date = ? AND pay_period_end = ?", model.DateOf(start), model.DateOf(end)).
		Find(&list).Error
	return list, err
}

func (r *payrollVarianceRepo) List(ctx context.Context, filter PayrollVarianceFilter, offset, limit int) ([]model.PayrollVariance, int64, error) {
	var list []model.PayrollVariance
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PayrollVariance{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.GuardID != "" {
		db = db.Where("guard_id = ?", filter.GuardID)
	}
	if filter.From != nil {
		db = db.Where("variance_date >= ?", model.DateOf(*filter.From))
	}
	if filter.To != nil {
		db = db.Where("pay_period_end <= ?", model.DateOf(*filter.To))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Preload("Guard").Order("variance_date DESC, variance_hours DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *payrollVarianceRepo) UpdateReview(ctx context.Context, v *model.PayrollVariance, fromStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PayrollVariance{}).
		Where("variance_id = ? AND status = ?", v.VarianceID, fromStatus).
		Updates(map[string]interface{}{
			"status":      v.Status,
			"reviewed_by": v.ReviewedBy,
			"reviewed_at": v.ReviewedAt,
			"review_note": v.ReviewNote,
			"updated_by":  v.UpdatedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
