package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"guardian/backend/internal/model"
)

// newTestDB 每个用例独立的内存 SQLite
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{},
		&model.Site{},
		&model.Shift{},
		&model.ShiftActivity{},
		&model.NoShowAlert{},
		&model.PayrollInput{},
		&model.PayrollVariance{},
		&model.Licence{},
		&model.Notification{},
		&model.PushSubscription{},
		&model.SystemConfig{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func seedGuard(t *testing.T, db *gorm.DB, badge string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "保安" + badge,
		BadgeNumber:  badge,
		Email:        badge + "@guardian.test",
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleGuard,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
