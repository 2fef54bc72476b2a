/*
 * @module service/models/metrics
 * @description 质量指标模型，包含每日指标与趋势数据
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 校验结果 -> 每日聚合 -> 趋势分析
 * @rules 每日指标按(契约, 日期)唯一，只能由聚合器重新计算，不允许手工修改
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/metrics, service/database/metrics_repository.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetricDateLayout 指标日期格式
const MetricDateLayout = "2006-01-02"

// DailyMetrics 每日质量指标
type DailyMetrics struct {
	ID                 string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	ContractID         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_daily_metrics_contract_date" json:"contract_id"`
	MetricDate         string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_metrics_contract_date" json:"date"`
	TotalValidations   int       `json:"total_validations"`
	PassedCount        int       `json:"passed_count"`
	FailedCount        int       `json:"failed_count"`
	PassRate           float64   `json:"pass_rate"`
	QualityScore       float64   `json:"quality_score"`
	ErrorVariety       int       `json:"error_variety"`
	ErrorCounts        JSONB     `gorm:"type:text" json:"error_counts,omitempty"`
	AvgExecutionTimeMs float64   `json:"avg_execution_time_ms"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DailyMetrics) TableName() string {
	return "daily_metrics"
}

// BeforeCreate 创建前钩子
func (m *DailyMetrics) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// DailyCount 单日校验计数，由数据库按UTC日期分组得到
type DailyCount struct {
	Day              string
	Total            int64
	Passed           int64
	TotalExecutionMs float64
}

// Trend 趋势方向
type Trend string

const (
	TrendIncreasing Trend = "INCREASING"
	TrendDecreasing Trend = "DECREASING"
	TrendStable     Trend = "STABLE"
)

// TrendPoint 趋势序列中的单日数据点，无校验的日期 PassRate 为空
type TrendPoint struct {
	Date             string   `json:"date"`
	TotalValidations int      `json:"total_validations"`
	PassRate         *float64 `json:"pass_rate"`
}

// TrendData 趋势数据，每次请求重新计算，不持久化
type TrendData struct {
	ContractID        string       `json:"contract_id"`
	Days              int          `json:"days"`
	PassRateTrend     Trend        `json:"pass_rate_trend"`
	Series            []TrendPoint `json:"series"`
	FirstHalfAverage  *float64     `json:"first_half_average"`
	SecondHalfAverage *float64     `json:"second_half_average"`
}
