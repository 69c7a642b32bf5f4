package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgerrors "guardian/backend/pkg/errors"
)

// Locker 分布式运行锁，多实例部署时保证同一任务同一时刻只在一处运行
// pkg/redis.Client 实现了该接口；为 nil 时不加锁
type Locker interface {
	AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// Job 一个周期任务
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner 周期任务调度：启动时先运行一次，之后按间隔运行，ctx 取消后退出
type Runner struct {
	jobs    []Job
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewRunner(locker Locker, lockTTL time.Duration, logger *zap.Logger) *Runner {
	if lockTTL <= 0 {
		lockTTL = 4 * time.Minute
	}
	return &Runner{locker: locker, lockTTL: lockTTL, logger: logger}
}

// Add 注册任务，间隔 <= 0 的任务被忽略
func (r *Runner) Add(j Job) {
	if j.Interval <= 0 {
		r.logger.Warn("任务间隔无效，已忽略", zap.String("job", j.Name), zap.Duration("interval", j.Interval))
		return
	}
	r.jobs = append(r.jobs, j)
}

// Jobs 已注册的任务名
func (r *Runner) Jobs() []string {
	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.Name)
	}
	return names
}

func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
	r.logger.Info("周期任务已启动", zap.Strings("jobs", r.Jobs()))
}

// Wait 等待所有任务循环退出
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		r.runLogged(ctx, j)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runLogged(ctx context.Context, j Job) {
	start := time.Now()
	err := r.RunOnce(ctx, j)
	switch {
	case errors.Is(err, pkgerrors.ErrLockNotAcquired):
		r.logger.Debug("任务被其他实例持有，跳过", zap.String("job", j.Name))
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("任务运行失败", zap.String("job", j.Name), zap.Error(err))
	default:
		r.logger.Debug("任务完成", zap.String("job", j.Name), zap.Duration("elapsed", time.Since(start)))
	}
}

// RunOnce 加锁后运行一次任务
func (r *Runner) RunOnce(ctx context.Context, j Job) error {
	if r.locker == nil {
		return j.Run(ctx)
	}

	token := uuid.NewString()
	ok, err := r.locker.AcquireLock(ctx, "job:"+j.Name, token, r.lockTTL)
	if err != nil {
		// Redis 不可用时降级为无锁运行
		r.logger.Warn("获取任务锁失败，无锁运行", zap.String("job", j.Name), zap.Error(err))
		return j.Run(ctx)
	}
	if !ok {
		return pkgerrors.ErrLockNotAcquired
	}
	defer func() {
		if err := r.locker.ReleaseLock(context.WithoutCancel(ctx), "job:"+j.Name, token); err != nil {
			r.logger.Warn("释放任务锁失败", zap.String("job", j.Name), zap.Error(err))
		}
	}()
	return j.Run(ctx)
}
