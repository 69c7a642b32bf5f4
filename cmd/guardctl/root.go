package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/repository"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/database"
	"guardian/backend/pkg/jwt"
	applogger "guardian/backend/pkg/logger"
)

// app 子命令共用的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	repo   *repository.Repository
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "guardctl",
		Short:         "保安排班后台运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	load := func() (*app, error) { return newApp(configPath) }

	root.AddCommand(
		newMigrateCmd(load),
		newSeedCmd(load),
		newNoShowCmd(load),
		newPayrollCmd(load),
	)
	return root
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db, repo: repository.NewRepository(db)}, nil
}

// services 命令行下不接通知渠道与 Redis
func (a *app) services() *service.Service {
	return service.NewService(a.cfg, a.repo, jwt.NewManager(&a.cfg.Auth), nil, nil, a.logger)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
