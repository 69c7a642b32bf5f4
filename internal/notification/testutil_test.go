package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

func newTestRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:notif_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Licence{},
		&model.NoShowAlert{},
		&model.Notification{},
		&model.PushSubscription{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return repository.NewRepository(db), db
}

func seedUser(t *testing.T, db *gorm.DB, badge, role string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "用户" + badge,
		BadgeNumber:  badge,
		Email:        badge + "@guardian.test",
		PasswordHash: "$2a$10$placeholder",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// recordingSender 记录每次 Send 的参数
type recordingSender struct {
	mu    sync.Mutex
	calls []sentBatch
	err   error
}

type sentBatch struct {
	recipients []model.User
	msgs       []Message
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(_ context.Context, recipients []model.User, msgs []Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sentBatch{recipients: recipients, msgs: msgs})
	return r.err
}

func (r *recordingSender) snapshot() []sentBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentBatch(nil), r.calls...)
}

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}
