/*
 * @module service/metrics/aggregator
 * @description 指标聚合器，把已持久化的校验结果汇总为每日指标并计算通过率趋势
 * @architecture 分层架构 - 指标分析层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 读取历史结果 -> 按UTC日期分组 -> 计算通过率/评分 -> 保存每日指标 / 趋势判断
 * @rules 结果只依赖历史数据，重复计算得到相同结果；无校验的日期不计入趋势
 * @dependencies datacontract-service/service/validation
 * @refs service/database/metrics_repository.go, service/scheduler/scheduler_service.go
 */

package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datacontract-service/service/models"
	"datacontract-service/service/validation"
)

const (
	// TrendThreshold 前后半段平均通过率差值超过该值才判定为上升或下降
	TrendThreshold = 2.0
	// MaxTrendDays 趋势窗口上限
	MaxTrendDays = 365
)

// ResultReader 校验结果读取接口，计数由存储层按UTC日期分组完成
type ResultReader interface {
	CountByDay(ctx context.Context, contractID string, start, end time.Time) ([]models.DailyCount, error)
	ListFailedErrors(ctx context.Context, contractID string, start, end time.Time) ([]models.ValidationErrorList, error)
}

// MetricsStore 每日指标存储接口，按(契约, 日期)更新或插入
type MetricsStore interface {
	SaveDailyMetrics(ctx context.Context, metrics *models.DailyMetrics) error
}

// DailyObserver 每日指标计算完成后的回调
type DailyObserver interface {
	ObserveDaily(metrics *models.DailyMetrics)
}

// MetricsAggregator 指标聚合器
type MetricsAggregator struct {
	reader   ResultReader
	store    MetricsStore
	observer DailyObserver
	now      func() time.Time
}

// AggregatorOption 聚合器选项
type AggregatorOption func(*MetricsAggregator)

// WithNow 设置当前时间来源
func WithNow(now func() time.Time) AggregatorOption {
	return func(a *MetricsAggregator) {
		a.now = now
	}
}

// WithDailyObserver 设置每日指标回调
func WithDailyObserver(o DailyObserver) AggregatorOption {
	return func(a *MetricsAggregator) {
		a.observer = o
	}
}

// NewMetricsAggregator 创建指标聚合器实例
func NewMetricsAggregator(reader ResultReader, store MetricsStore, opts ...AggregatorOption) *MetricsAggregator {
	a := &MetricsAggregator{
		reader: reader,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// startOfDay 返回给定日期对应的UTC零点
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalculateDailyMetrics 计算并保存指定日期的每日指标
func (a *MetricsAggregator) CalculateDailyMetrics(ctx context.Context, contractID string, date time.Time) (*models.DailyMetrics, error) {
	day := startOfDay(date)

	end := day.AddDate(0, 0, 1)
	counts, err := a.reader.CountByDay(ctx, contractID, day, end)
	if err != nil {
		return nil, fmt.Errorf("读取校验结果失败: %w", err)
	}
	failures, err := a.reader.ListFailedErrors(ctx, contractID, day, end)
	if err != nil {
		return nil, fmt.Errorf("读取校验结果失败: %w", err)
	}

	metrics := summarizeDay(contractID, day, counts, failures)

	if err := a.store.SaveDailyMetrics(ctx, metrics); err != nil {
		return nil, fmt.Errorf("保存每日指标失败: %w", err)
	}
	if a.observer != nil {
		a.observer.ObserveDaily(metrics)
	}

	slog.Info("每日指标计算完成",
		"contract_id", contractID,
		"date", metrics.MetricDate,
		"total", metrics.TotalValidations,
		"pass_rate", metrics.PassRate,
		"quality_score", metrics.QualityScore)

	return metrics, nil
}

func summarizeDay(contractID string, day time.Time, counts []models.DailyCount, failures []models.ValidationErrorList) *models.DailyMetrics {
	metrics := &models.DailyMetrics{
		ContractID:  contractID,
		MetricDate:  day.Format(models.MetricDateLayout),
		ErrorCounts: models.JSONB{},
	}

	var totalMs float64
	for _, c := range counts {
		metrics.TotalValidations += int(c.Total)
		metrics.PassedCount += int(c.Passed)
		totalMs += c.TotalExecutionMs
	}
	metrics.FailedCount = metrics.TotalValidations - metrics.PassedCount

	for _, errs := range failures {
		for _, e := range errs {
			count, _ := metrics.ErrorCounts[string(e.ErrorType)].(int)
			metrics.ErrorCounts[string(e.ErrorType)] = count + 1
		}
	}

	metrics.ErrorVariety = len(metrics.ErrorCounts)
	passRate := validation.PassRate(metrics.PassedCount, metrics.TotalValidations)
	metrics.PassRate = validation.Round2(passRate)
	metrics.QualityScore = validation.Round2(validation.QualityScore(passRate, metrics.TotalValidations, metrics.ErrorVariety))
	if metrics.TotalValidations > 0 {
		metrics.AvgExecutionTimeMs = validation.Round2(totalMs / float64(metrics.TotalValidations))
	}
	return metrics
}

// GetTrendData 计算最近 days 天（含今天）的通过率趋势
func (a *MetricsAggregator) GetTrendData(ctx context.Context, contractID string, days int) (*models.TrendData, error) {
	if days < 1 || days > MaxTrendDays {
		return nil, &models.ConfigurationError{Scope: "metrics", Reason: fmt.Sprintf("days必须在1到%d之间", MaxTrendDays)}
	}

	today := startOfDay(a.now().UTC())
	start := today.AddDate(0, 0, -(days - 1))

	counts, err := a.reader.CountByDay(ctx, contractID, start, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("读取校验结果失败: %w", err)
	}

	buckets := make(map[string]models.DailyCount, len(counts))
	for _, c := range counts {
		buckets[c.Day] = c
	}

	series := make([]models.TrendPoint, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(models.MetricDateLayout)
		point := models.TrendPoint{Date: date}
		if b, ok := buckets[date]; ok && b.Total > 0 {
			rate := validation.Round2(validation.PassRate(int(b.Passed), int(b.Total)))
			point.TotalValidations = int(b.Total)
			point.PassRate = &rate
		}
		series[i] = point
	}

	half := days / 2
	first := averagePassRate(series[:half])
	second := averagePassRate(series[half:])

	return &models.TrendData{
		ContractID:        contractID,
		Days:              days,
		PassRateTrend:     classifyTrend(first, second),
		Series:            series,
		FirstHalfAverage:  first,
		SecondHalfAverage: second,
	}, nil
}

// averagePassRate 计算有数据日期的平均通过率，没有任何数据时返回nil
func averagePassRate(points []models.TrendPoint) *float64 {
	sum, n := 0.0, 0
	for _, p := range points {
		if p.PassRate == nil {
			continue
		}
		sum += *p.PassRate
		n++
	}
	if n == 0 {
		return nil
	}
	avg := validation.Round2(sum / float64(n))
	return &avg
}

func classifyTrend(first, second *float64) models.Trend {
	if first == nil || second == nil {
		return models.TrendStable
	}
	diff := *second - *first
	switch {
	case diff > TrendThreshold:
		return models.TrendIncreasing
	case diff < -TrendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
