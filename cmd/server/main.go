package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/api/handler"
	"guardian/backend/internal/api/middleware"
	"guardian/backend/internal/api/router"
	"guardian/backend/internal/job"
	"guardian/backend/internal/notification"
	"guardian/backend/internal/repository"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/database"
	"guardian/backend/pkg/jwt"
	applogger "guardian/backend/pkg/logger"
	"guardian/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("GUARDIAN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Server.Timezone),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级为单实例运行）
	// 接口变量必须保持真正的 nil，不能装入 nil 指针
	var (
		blacklist   service.TokenBlacklist
		authList    middleware.Blacklist
		rateCounter middleware.Counter
		jobLocker   job.Locker
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与分布式锁不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist, authList, rateCounter, jobLocker = rdb, rdb, rdb, rdb
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 通知分发
	repo := repository.NewRepository(db)
	dispatcher := notification.NewDispatcher(repo, cfg.Server.Location(), cfg.Push.Workers, logger,
		notification.BuildSenders(cfg, repo, logger)...)

	// 分发协程不随任务取消，Stop 时排空队列
	dispatcher.Start(context.Background())

	// 7. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, dispatcher, logger)
	h := handler.NewHandler(cfg, svc)

	// 8. 定时任务
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	var runner *job.Runner
	if cfg.Jobs.Enabled {
		runner = job.NewRunner(jobLocker, cfg.Jobs.LockTTL, logger)
		job.Register(runner, &cfg.Jobs, svc, logger)
		runner.Start(bgCtx)
		logger.Info("定时任务已启动", zap.Strings("jobs", runner.Jobs()))
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	engine := router.Setup(cfg, h, jwtMgr, authList, rateCounter, db, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 先停任务再停分发，保证已产生的告警发送完
	stopBackground()
	if runner != nil {
		runner.Wait()
	}
	dispatcher.Stop()

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
