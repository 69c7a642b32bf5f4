package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User             UserRepository
	Site             SiteRepository
	Shift            ShiftRepository
	Activity         ShiftActivityRepository
	NoShowAlert      NoShowAlertRepository
	PayrollInput     PayrollInputRepository
	PayrollVariance  PayrollVarianceRepository
	Licence          LicenceRepository
	Notification     NotificationRepository
	PushSubscription PushSubscriptionRepository
	SystemConfig     SystemConfigRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		User:             NewUserRepo(db),
		Site:             NewSiteRepo(db),
		Shift:            NewShiftRepo(db),
		Activity:         NewShiftActivityRepo(db),
		NoShowAlert:      NewNoShowAlertRepo(db),
		PayrollInput:     NewPayrollInputRepo(db),
		PayrollVariance:  NewPayrollVarianceRepo(db),
		Licence:          NewLicenceRepo(db),
		Notification:     NewNotificationRepo(db),
		PushSubscription: NewPushSubscriptionRepo(db),
		SystemConfig:     NewSystemConfigRepo(db),
	}
}

// BeginTx 开启事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}
