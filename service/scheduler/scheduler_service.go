/**
 * @module SchedulerService
 * @description 每日指标调度器服务，按Cron表达式为所有可用契约计算前一日质量指标
 * @architecture 基于cron库的调度器模式，分布式锁保证多实例只执行一次
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 定时触发 -> 获取日期锁 -> 遍历契约 -> 计算每日指标 -> 释放锁
 * @rules 单个契约失败不影响其他契约；同一日期同一时刻只允许一个实例执行
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock
 * @refs service/metrics/aggregator.go, service/database/contract_repository.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datacontract-service/service/distributed_lock"
	"datacontract-service/service/models"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultDailyMetricsSpec 默认每天00:05:00(UTC)执行
	DefaultDailyMetricsSpec = "0 5 0 * * *"
	// dailyMetricsLockTTL 每日任务锁的过期时间
	dailyMetricsLockTTL = 30 * time.Minute
	// dailyMetricsLockRefresh 每日任务锁的续期间隔
	dailyMetricsLockRefresh = 5 * time.Minute
)

// ContractLister 列出需要统计的契约
type ContractLister interface {
	ListActiveContractIDs(ctx context.Context) ([]string, error)
}

// DailyCalculator 每日指标计算
type DailyCalculator interface {
	CalculateDailyMetrics(ctx context.Context, contractID string, date time.Time) (*models.DailyMetrics, error)
}

// JobReport 一次每日指标任务的执行情况
type JobReport struct {
	Date      string            `json:"date"`
	Executed  bool              `json:"executed"`
	Succeeded int               `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// SchedulerService 调度器服务
type SchedulerService struct {
	contracts  ContractLister
	calculator DailyCalculator
	executor   *distributed_lock.LockExecutor
	spec       string
	cron       *cron.Cron
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewSchedulerService 创建调度器服务，spec 为带秒字段的Cron表达式
func NewSchedulerService(contracts ContractLister, calculator DailyCalculator, lock distributed_lock.DistributedLock, spec string) *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())
	if spec == "" {
		spec = DefaultDailyMetricsSpec
	}

	return &SchedulerService{
		contracts:  contracts,
		calculator: calculator,
		executor:   distributed_lock.NewLockExecutor(lock),
		spec:       spec,
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动调度器
func (s *SchedulerService) Start() error {
	slog.Info("启动每日指标调度器", "spec", s.spec)

	if _, err := s.cron.AddFunc(s.spec, s.runScheduled); err != nil {
		return fmt.Errorf("注册每日指标任务失败: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *SchedulerService) Stop() {
	slog.Info("停止每日指标调度器")

	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	slog.Info("每日指标调度器已停止")
}

func (s *SchedulerService) runScheduled() {
	yesterday := s.now().UTC().AddDate(0, 0, -1)
	if _, err := s.RunDailyMetrics(s.ctx, yesterday); err != nil {
		slog.Error("每日指标任务失败", "error", err)
	}
}

// RunDailyMetrics 为所有可用契约计算指定日期的每日指标
// 日期锁已被其他实例持有时跳过，返回的 Executed 为 false
func (s *SchedulerService) RunDailyMetrics(ctx context.Context, date time.Time) (*JobReport, error) {
	day := date.UTC().Format(models.MetricDateLayout)
	report := &JobReport{Date: day, Failed: make(map[string]string)}

	executed, err := s.executor.ExecuteWithLockAndRefresh(ctx, "daily_metrics:"+day, dailyMetricsLockTTL, dailyMetricsLockRefresh,
		func(ctx context.Context) error {
			ids, err := s.contracts.ListActiveContractIDs(ctx)
			if err != nil {
				return err
			}

			for _, id := range ids {
				if err := ctx.Err(); err != nil {
					return err
				}
				m, err := s.calculator.CalculateDailyMetrics(ctx, id, date)
				if err != nil {
					slog.Error("计算每日指标失败", "contract_id", id, "date", day, "error", err)
					report.Failed[id] = err.Error()
					continue
				}
				report.Succeeded++
				slog.Debug("每日指标已更新", "contract_id", id, "date", day,
					"total", m.TotalValidations, "pass_rate", m.PassRate)
			}
			return nil
		})
	report.Executed = executed
	if err != nil {
		return report, err
	}

	if executed {
		slog.Info("每日指标任务完成", "date", day, "succeeded", report.Succeeded, "failed", len(report.Failed))
	}
	return report, nil
}
