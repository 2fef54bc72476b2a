/*
 * @module service/database/metrics_repository
 * @description 每日指标仓储，按(契约, 日期)更新或插入并按日期区间查询
 * @architecture 数据访问层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 聚合器计算 -> 冲突时更新 -> 历史查询
 * @rules 同一契约同一日期只保留一条指标
 * @dependencies gorm.io/gorm, gorm.io/gorm/clause
 * @refs service/metrics/aggregator.go, api/controllers/metrics_controller.go
 */

package database

import (
	"context"
	"fmt"

	"datacontract-service/service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetricsRepository 每日指标仓储
type MetricsRepository struct {
	db *gorm.DB
}

// NewMetricsRepository 创建每日指标仓储实例
func NewMetricsRepository(db *gorm.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// SaveDailyMetrics 按(契约, 日期)更新或插入每日指标
func (r *MetricsRepository) SaveDailyMetrics(ctx context.Context, m *models.DailyMetrics) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contract_id"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_validations",
			"passed_count",
			"failed_count",
			"pass_rate",
			"quality_score",
			"error_variety",
			"error_counts",
			"avg_execution_time_ms",
			"updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("保存每日指标失败: %w", err)
	}

	// 冲突更新时主键沿用已有行
	var stored models.DailyMetrics
	if err := r.db.WithContext(ctx).
		Where("contract_id = ? AND metric_date = ?", m.ContractID, m.MetricDate).
		First(&stored).Error; err != nil {
		return fmt.Errorf("读取每日指标失败: %w", err)
	}
	m.ID = stored.ID
	m.CreatedAt = stored.CreatedAt
	return nil
}

// ListDailyMetrics 按日期区间（含两端，YYYY-MM-DD）查询每日指标，按日期升序
func (r *MetricsRepository) ListDailyMetrics(ctx context.Context, contractID, startDate, endDate string) ([]models.DailyMetrics, error) {
	query := r.db.WithContext(ctx).Where("contract_id = ?", contractID)
	if startDate != "" {
		query = query.Where("metric_date >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("metric_date <= ?", endDate)
	}

	var list []models.DailyMetrics
	if err := query.Order("metric_date").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询每日指标失败: %w", err)
	}
	return list, nil
}
