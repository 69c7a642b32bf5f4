package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"guardian/backend/internal/model"
)

// SiteRepository 站点数据访问接口
type SiteRepository interface {
	Create(ctx context.Context, site *model.Site) error
	GetByID(ctx context.Context, id string) (*model.Site, error)
	List(ctx context.Context, includeInactive bool) ([]model.Site, error)
	Update(ctx context.Context, site *model.Site) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type siteRepo struct {
	db *gorm.DB
}

// NewSiteRepo 创建 SiteRepository 实例
func NewSiteRepo(db *gorm.DB) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) Create(ctx context.Context, site *model.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

func (r *siteRepo) GetByID(ctx context.Context, id string) (*model.Site, error) {
	var site model.Site
	err := r.db.WithContext(ctx).
		Where("site_id = ?", id).
		First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepo) List(ctx context.Context, includeInactive bool) ([]model.Site, error) {
	var sites []model.Site
	db := r.db.WithContext(ctx)

	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	err := db.Order("name ASC").Find(&sites).Error
	return sites, err
}

func (r *siteRepo) Update(ctx context.Context, site *model.Site) error {
	return r.db.WithContext(ctx).Save(site).Error
}

func (r *siteRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Site{}).
		Where("site_id = ?", id).
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
