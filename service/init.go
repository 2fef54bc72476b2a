/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、契约导入和各组件装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 加载配置 -> 连接数据库 -> 迁移 -> 导入契约 -> 装配组件 -> 启动调度器
 * @rules 确保所有依赖服务正常启动后才提供API服务；可选组件（Redis、事件通知）失败时降级
 * @dependencies gorm.io/gorm, github.com/prometheus/client_golang
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"datacontract-service/client/connectors"
	"datacontract-service/service/config"
	"datacontract-service/service/database"
	"datacontract-service/service/distributed_lock"
	"datacontract-service/service/ingestion"
	"datacontract-service/service/metrics"
	"datacontract-service/service/scheduler"
	"datacontract-service/service/validation"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var (
	DB             *gorm.DB
	GlobalServices *Services
)

// Services 装配完成的服务组件
type Services struct {
	Settings   *config.Settings
	DB         *gorm.DB
	Contracts  *database.ContractRepository
	Results    *database.ResultRepository
	Metrics    *database.MetricsRepository
	Collector  *metrics.Collector
	Engine     *validation.ValidationEngine
	Processor  *ingestion.BatchProcessor
	Aggregator *metrics.MetricsAggregator
	Scheduler  *scheduler.SchedulerService
	closers    []io.Closer
}

// Init 初始化数据库和全部服务，并启动每日指标调度器
func Init(settings *config.Settings) error {
	db, err := database.Open(settings.DBDriver, settings.DSN(), settings.Debug)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	slog.Info("数据库连接成功", "driver", settings.DBDriver)

	if err := runMigrations(db, settings); err != nil {
		return err
	}

	svc, err := NewServices(settings, db, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if err := svc.Scheduler.Start(); err != nil {
		svc.Close()
		return fmt.Errorf("启动调度器服务失败: %w", err)
	}

	DB = db
	GlobalServices = svc
	slog.Info("服务初始化完成")
	return nil
}

// runMigrations 运行数据库迁移并导入契约目录
func runMigrations(db *gorm.DB, settings *config.Settings) error {
	slog.Info("开始运行数据库迁移...")

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	if err := database.InitializeData(db, settings.ContractsDir); err != nil {
		return fmt.Errorf("契约导入失败: %w", err)
	}

	slog.Info("所有数据库迁移任务完成")
	return nil
}

// NewServices 基于已迁移的数据库装配服务组件，reg 为空时不注册Prometheus指标
func NewServices(settings *config.Settings, db *gorm.DB, reg prometheus.Registerer) (*Services, error) {
	s := &Services{
		Settings:  settings,
		DB:        db,
		Contracts: database.NewContractRepository(db),
		Results:   database.NewResultRepository(db),
		Metrics:   database.NewMetricsRepository(db),
		Collector: metrics.NewCollector(reg),
	}

	engineOpts := []validation.EngineOption{
		validation.WithObserver(s.Collector),
	}
	if settings.ValidationWorkers > 0 {
		engineOpts = append(engineOpts, validation.WithWorkers(settings.ValidationWorkers))
	}

	notifier, closer, err := newNotifier(settings)
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		engineOpts = append(engineOpts, validation.WithNotifier(notifier))
		s.closers = append(s.closers, closer)
	}

	s.Engine = validation.NewValidationEngine(s.Contracts, s.Results, engineOpts...)
	s.Processor = ingestion.NewBatchProcessor(s.Engine, ingestion.WithChunkSize(settings.BatchChunkSize))
	s.Aggregator = metrics.NewMetricsAggregator(s.Results, s.Metrics, metrics.WithDailyObserver(s.Collector))

	lock := newLock(settings)
	if c, ok := lock.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	s.Scheduler = scheduler.NewSchedulerService(s.Contracts, s.Aggregator, lock, settings.MetricsCron)

	return s, nil
}

// newNotifier 按 EVENT_SINK 创建批量完成通知
func newNotifier(settings *config.Settings) (validation.BatchNotifier, io.Closer, error) {
	switch settings.EventSink {
	case config.EventSinkKafka:
		kc, err := connectors.NewKafkaConnector(&connectors.KafkaConfig{
			Brokers: settings.KafkaBrokers,
			Topic:   settings.KafkaTopic,
		})
		if err != nil {
			return nil, nil, err
		}
		return kc, kc, nil
	case config.EventSinkMQTT:
		mc, err := connectors.NewMQTTConnector(&connectors.MQTTConfig{
			Broker:   settings.MQTTBroker,
			ClientID: settings.MQTTClientID,
			Topic:    settings.MQTTTopic,
			QoS:      byte(settings.MQTTQoS),
		})
		if err != nil {
			return nil, nil, err
		}
		if err := mc.Connect(); err != nil {
			return nil, nil, err
		}
		return mc, mc, nil
	default:
		return nil, nil, nil
	}
}

// newLock 配置了Redis时使用分布式锁，连接失败降级为进程内锁
func newLock(settings *config.Settings) distributed_lock.DistributedLock {
	if !settings.RedisEnabled() {
		return distributed_lock.NewLocalLock()
	}

	lock, err := distributed_lock.NewRedisLock(distributed_lock.RedisConfig{
		Host:     settings.RedisHost,
		Port:     settings.RedisPort,
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})
	if err != nil {
		slog.Warn("Redis分布式锁不可用，使用进程内锁", "error", err)
		return distributed_lock.NewLocalLock()
	}
	return lock
}

// Ping 检查数据库连通性
func (s *Services) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return database.Ping(ctx, s.DB)
}

// Close 停止调度器并释放外部连接
func (s *Services) Close() {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			slog.Error("关闭连接失败", "error", err)
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
