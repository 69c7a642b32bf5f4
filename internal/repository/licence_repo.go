package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"guardian/backend/internal/model"
)

// LicenceRepository 上岗证数据访问接口
type LicenceRepository interface {
	Create(ctx context.Context, licence *model.Licence) error
	GetByID(ctx context.Context, id string) (*model.Licence, error)
	List(ctx context.Context, guardID string, offset, limit int) ([]model.Licence, int64, error)
	// ListExpiringBefore 到期日不晚于 date 的证件（含已过期）
	ListExpiringBefore(ctx context.Context, date time.Time) ([]model.Licence, error)
	Delete(ctx context.Context, id string, deletedBy string) error
}

type licenceRepo struct {
	db *gorm.DB
}

// NewLicenceRepo 创建 LicenceRepository 实例
func NewLicenceRepo(db *gorm.DB) LicenceRepository {
	return &licenceRepo{db: db}
}

func (r *licenceRepo) Create(ctx context.Context, licence *model.Licence) error {
	return r.db.WithContext(ctx).Create(licence).Error
}

func (r *licenceRepo) GetByID(ctx context.Context, id string) (*model.Licence, error) {
	var licence model.Licence
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Where("licence_id = ?", id).
		First(&licence).Error
	if err != nil {
		return nil, err
	}
	return &licence, nil
}

func (r *licenceRepo) List(ctx context.Context, guardID string, offset, limit int) ([]model.Licence, int64, error) {
	var licences []model.Licence
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Licence{})
	if guardID != "" {
		db = db.Where("guard_id = ?", guardID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Guard").
		Offset(offset).Limit(limit).
		Order("expiry_date ASC").
		Find(&licences).Error; err != nil {
		return nil, 0, err
	}
	return licences, total, nil
}

func (r *licenceRepo) ListExpiringBefore(ctx context.Context, date time.Time) ([]model.Licence, error) {
	var licences []model.Licence
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Where("expiry_date <= ?", model.DateOf(date)).
		Order("expiry_date ASC").
		Find(&licences).Error
	return licences, err
}

func (r *licenceRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Licence{}).
		Where("licence_id = ?", id).
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
