/*
 * @module service/metrics/collector
 * @description Prometheus指标采集器，记录校验次数、耗时和每日质量指标
 * @architecture 监控层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 校验完成 -> 更新计数器/直方图 -> /metrics 暴露
 * @rules 注册器为空时只创建不注册，便于测试
 * @dependencies github.com/prometheus/client_golang
 * @refs service/validation/engine.go, main.go
 */

package metrics

import (
	"time"

	"datacontract-service/service/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "datacontract"

// Collector Prometheus指标采集器，实现校验引擎与聚合器的观测接口
type Collector struct {
	recordsTotal      *prometheus.CounterVec
	recordDuration    *prometheus.HistogramVec
	batchesTotal      *prometheus.CounterVec
	batchRecords      *prometheus.HistogramVec
	batchPassRate     *prometheus.GaugeVec
	batchQualityScore *prometheus.GaugeVec
	dailyPassRate     *prometheus.GaugeVec
	dailyQualityScore *prometheus.GaugeVec
}

// NewCollector 创建采集器，reg 不为空时注册到 reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Number of validated records by contract and status.",
		}, []string{"contract_id", "status"}),
		recordDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating a single record.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}, []string{"contract_id"}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Number of completed validation batches.",
		}, []string{"contract_id"}),
		batchRecords: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_records",
			Help:      "Number of records per validation batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"contract_id"}),
		batchPassRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_pass_rate",
			Help:      "Pass rate (percent) of the latest batch.",
		}, []string{"contract_id"}),
		batchQualityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_quality_score",
			Help:      "Quality score of the latest batch.",
		}, []string{"contract_id"}),
		dailyPassRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_pass_rate",
			Help:      "Pass rate (percent) of the most recently computed day.",
		}, []string{"contract_id"}),
		dailyQualityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_quality_score",
			Help:      "Quality score of the most recently computed day.",
		}, []string{"contract_id"}),
	}

	if reg == nil {
		return c
	}
	reg.MustRegister(
		c.recordsTotal,
		c.recordDuration,
		c.batchesTotal,
		c.batchRecords,
		c.batchPassRate,
		c.batchQualityScore,
		c.dailyPassRate,
		c.dailyQualityScore,
	)
	return c
}

// ObserveRecord 记录单条校验
func (c *Collector) ObserveRecord(contractID string, status models.ValidationStatus, duration time.Duration) {
	c.recordsTotal.WithLabelValues(contractID, string(status)).Inc()
	c.recordDuration.WithLabelValues(contractID).Observe(duration.Seconds())
}

// ObserveBatch 记录批量校验结果
func (c *Collector) ObserveBatch(contractID string, result *models.BatchValidationResult) {
	c.batchesTotal.WithLabelValues(contractID).Inc()
	c.batchRecords.WithLabelValues(contractID).Observe(float64(result.TotalRecords))
	c.batchPassRate.WithLabelValues(contractID).Set(result.PassRate)
	c.batchQualityScore.WithLabelValues(contractID).Set(result.QualityScore)
}

// ObserveDaily 记录每日指标
func (c *Collector) ObserveDaily(m *models.DailyMetrics) {
	c.dailyPassRate.WithLabelValues(m.ContractID).Set(m.PassRate)
	c.dailyQualityScore.WithLabelValues(m.ContractID).Set(m.QualityScore)
}
