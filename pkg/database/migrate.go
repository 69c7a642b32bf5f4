package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationState 当前库结构版本
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "guardian_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	return m, nil
}

// RunMigrations 应用全部未执行的迁移；dirty 状态直接报错，需人工处理后再启动
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if st, err := state(m); err == nil && st.Dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态（version=%d），请先修复", st.Version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	st, _ := state(m)
	logger.Info("数据库迁移完成", zap.Uint("version", st.Version))
	return nil
}

// RollbackMigrations 回退 steps 个版本
func RollbackMigrations(db *sql.DB, steps int, logger *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("回退步数必须为正数")
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("回退迁移失败: %w", err)
	}

	st, _ := state(m)
	logger.Info("数据库迁移已回退", zap.Int("steps", steps), zap.Uint("version", st.Version))
	return nil
}

// CurrentMigration 查询当前版本，尚未迁移时版本为 0
func CurrentMigration(db *sql.DB) (MigrationState, error) {
	m, err := newMigrator(db)
	if err != nil {
		return MigrationState{}, err
	}
	return state(m)
}

func state(m *migrate.Migrate) (MigrationState, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationState{}, nil
	}
	if err != nil {
		return MigrationState{}, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	return MigrationState{Version: v, Dirty: dirty}, nil
}
