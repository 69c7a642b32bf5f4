package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
)

// 任务名，同时作为锁名
const (
	NameNoShow  = "no_show_detect"
	NamePayroll = "payroll_variance"
	NameLicence = "licence_expiry"
)

// Register 按配置注册全部周期任务
func Register(r *Runner, cfg *config.JobsConfig, svc *service.Service, logger *zap.Logger) {
	r.Add(NoShowJob(svc.NoShow, cfg.NoShowInterval, logger))
	r.Add(PayrollJob(svc.Payroll, cfg.PayrollInterval, logger))
	r.Add(LicenceJob(svc.Licence, cfg.LicenceInterval, logger))
}

// NoShowJob 缺勤检测
func NoShowJob(s service.NoShowService, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     NameNoShow,
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := s.Detect(ctx)
			if err != nil {
				return err
			}
			if len(res.Created) > 0 || res.Invalid > 0 {
				logger.Info("缺勤检测完成",
					zap.Int("scanned", res.Scanned),
					zap.Int("created", len(res.Created)),
					zap.Int("invalid", res.Invalid),
				)
			}
			return nil
		},
	}
}

// PayrollJob 计算上一个完整周的工资差异，重复运行只刷新待审核记录
func PayrollJob(s service.PayrollService, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     NamePayroll,
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := s.Calculate(ctx, &dto.PayrollRunRequest{}, "")
			if err != nil {
				return err
			}
			logger.Info("工资差异计算完成",
				zap.String("period_start", res.PeriodStart),
				zap.String("period_end", res.PeriodEnd),
				zap.Int("created", res.Created),
				zap.Int("updated", res.Updated),
				zap.Int("failed", len(res.Failed)),
			)
			return nil
		},
	}
}

// LicenceJob 上岗证到期提醒
func LicenceJob(s service.LicenceService, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     NameLicence,
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := s.RemindExpiring(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("已发送上岗证到期提醒", zap.Int("licences", n))
			}
			return nil
		},
	}
}
