package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/seed"
	"guardian/backend/pkg/database"
)

type loader func() (*app, error)

func newMigrateCmd(load loader) *cobra.Command {
	// withDB 打开连接执行 fn，结束后关闭
	withDB := func(fn func(a *app, sqlDB *sql.DB) error) error {
		a, err := load()
		if err != nil {
			return err
		}
		defer a.close()

		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return fn(a, sqlDB)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(a *app, sqlDB *sql.DB) error {
				if err := database.RunMigrations(sqlDB, a.logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
				return nil
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回退迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(a *app, sqlDB *sql.DB) error {
				return database.RollbackMigrations(sqlDB, steps, a.logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回退的版本数")

	version := &cobra.Command{
		Use:   "version",
		Short: "查看当前迁移版本",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(_ *app, sqlDB *sql.DB) error {
				st, err := database.CurrentMigration(sqlDB)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}

	cmd := &cobra.Command{Use: "migrate", Short: "数据库迁移"}
	cmd.AddCommand(up, down, version)
	return cmd
}

func newSeedCmd(load loader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "从 YAML 导入站点、人员、班次、已付工时与上岗证（可重复执行）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := seed.NewSeeder(a.repo, a.logger).Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "种子数据文件")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newNoShowCmd(load loader) *cobra.Command {
	var at string
	run := &cobra.Command{
		Use:   "run",
		Short: "运行一次缺勤检测",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var when time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at 应为 RFC3339: %w", err)
				}
				when = t
			}

			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			svc := a.services().NoShow
			var res *dto.NoShowRunResponse
			if when.IsZero() {
				res, err = svc.Detect(cmd.Context())
			} else {
				res, err = svc.DetectAt(cmd.Context(), when)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	run.Flags().StringVar(&at, "at", "", "检测时刻（RFC3339），默认当前")

	cmd := &cobra.Command{Use: "noshow", Short: "缺勤检测"}
	cmd.AddCommand(run)
	return cmd
}

func newPayrollCmd(load loader) *cobra.Command {
	var start, end string
	run := &cobra.Command{
		Use:   "run",
		Short: "计算一个工资周期的差异，默认上一个完整周",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.services().Payroll.Calculate(cmd.Context(), &dto.PayrollRunRequest{
				PeriodStart: start,
				PeriodEnd:   end,
			}, "")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	run.Flags().StringVar(&start, "start", "", "周期开始日期 YYYY-MM-DD")
	run.Flags().StringVar(&end, "end", "", "周期结束日期 YYYY-MM-DD")

	cmd := &cobra.Command{Use: "payroll", Short: "工资差异"}
	cmd.AddCommand(run)
	return cmd
}
