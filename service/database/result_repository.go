/*
 * @module service/database/result_repository
 * @description 校验结果仓储，负责结果持久化、历史查询与错误汇总
 * @architecture 数据访问层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 校验结果写入 -> 条件查询/汇总 -> 指标聚合
 * @rules 每条结果独立写入，不需要跨记录加锁；时间统一按UTC存储
 * @dependencies gorm.io/gorm
 * @refs service/validation/engine.go, service/metrics/aggregator.go
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"datacontract-service/service/models"

	"gorm.io/gorm"
)

const (
	// MaxQueryLimit 历史查询单页上限
	MaxQueryLimit = 1000
	// DefaultQueryLimit 历史查询默认分页大小
	DefaultQueryLimit = 100
	// MaxSummaryDays 错误汇总最大天数
	MaxSummaryDays = 90
	// TopErrorCount 错误汇总返回的高频错误类型数量
	TopErrorCount = 10
)

// ResultRepository 校验结果仓储
type ResultRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewResultRepository 创建校验结果仓储实例
func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db, now: time.Now}
}

// SaveValidationResult 保存单条校验结果
func (r *ResultRepository) SaveValidationResult(ctx context.Context, record *models.ValidationResultRecord) error {
	record.ValidatedAt = record.ValidatedAt.UTC()
	return r.db.WithContext(ctx).Create(record).Error
}

// QueryResults 按条件分页查询校验历史，按校验时间倒序
func (r *ResultRepository) QueryResults(ctx context.Context, q models.ResultQuery) ([]models.ValidationResultRecord, int64, error) {
	if q.Limit > MaxQueryLimit {
		return nil, 0, &models.ConfigurationError{Scope: "query", Reason: fmt.Sprintf("limit不能超过%d", MaxQueryLimit)}
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.ValidationResultRecord{}).Where("contract_id = ?", q.ContractID)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.StartDate != nil {
		query = query.Where("validated_at >= ?", q.StartDate.UTC())
	}
	if q.EndDate != nil {
		query = query.Where("validated_at <= ?", q.EndDate.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计校验结果失败: %w", err)
	}

	var records []models.ValidationResultRecord
	err := query.Order("validated_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询校验结果失败: %w", err)
	}
	return records, total, nil
}

// GetResultByID 按ID获取校验结果
func (r *ResultRepository) GetResultByID(ctx context.Context, id string) (*models.ValidationResultRecord, error) {
	var record models.ValidationResultRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrResultNotFound
		}
		return nil, fmt.Errorf("查询校验结果失败: %w", err)
	}
	return &record, nil
}

// dayExpr 取结果所属UTC日期(YYYY-MM-DD)的SQL表达式
// SQLite 中时间以UTC文本存储，取前10个字符即为日期
func (r *ResultRepository) dayExpr() string {
	if r.db.Dialector.Name() == DriverSQLite {
		return "substr(validated_at, 1, 10)"
	}
	return "to_char(validated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
}

// CountByDay 按UTC日期分组统计 [start, end) 区间内的校验次数、通过次数和总耗时
func (r *ResultRepository) CountByDay(ctx context.Context, contractID string, start, end time.Time) ([]models.DailyCount, error) {
	day := r.dayExpr()
	var rows []models.DailyCount
	err := r.db.WithContext(ctx).Model(&models.ValidationResultRecord{}).
		Select(day+" AS day, COUNT(*) AS total, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS passed, "+
			"SUM(execution_time_ms) AS total_execution_ms", string(models.StatusPass)).
		Where("contract_id = ? AND validated_at >= ? AND validated_at < ?", contractID, start.UTC(), end.UTC()).
		Group(day).
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计校验结果失败: %w", err)
	}
	return rows, nil
}

// ListFailedErrors 查询 [start, end) 区间内失败结果的错误列表，只加载 errors 列
func (r *ResultRepository) ListFailedErrors(ctx context.Context, contractID string, start, end time.Time) ([]models.ValidationErrorList, error) {
	var rows []models.ValidationResultRecord
	err := r.db.WithContext(ctx).
		Select("errors").
		Where("contract_id = ? AND status = ? AND validated_at >= ? AND validated_at < ?",
			contractID, string(models.StatusFail), start.UTC(), end.UTC()).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询失败结果失败: %w", err)
	}

	lists := make([]models.ValidationErrorList, 0, len(rows))
	for _, row := range rows {
		lists = append(lists, row.Errors)
	}
	return lists, nil
}

// ErrorSummary 汇总最近 days 天失败结果的错误类型分布
func (r *ResultRepository) ErrorSummary(ctx context.Context, contractID string, days int) (*models.ErrorSummary, error) {
	if days < 1 || days > MaxSummaryDays {
		return nil, &models.ConfigurationError{Scope: "query", Reason: fmt.Sprintf("days必须在1到%d之间", MaxSummaryDays)}
	}

	since := r.now().UTC().AddDate(0, 0, -days)

	var rows []models.ValidationResultRecord
	err := r.db.WithContext(ctx).
		Select("errors").
		Where("contract_id = ? AND status = ? AND validated_at >= ?", contractID, string(models.StatusFail), since).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询错误汇总失败: %w", err)
	}

	summary := &models.ErrorSummary{
		ErrorCounts: make(map[string]int),
		TopErrors:   make([]models.ErrorCount, 0),
		Period:      fmt.Sprintf("last %d days", days),
	}
	for _, row := range rows {
		for _, e := range row.Errors {
			summary.ErrorCounts[string(e.ErrorType)]++
			summary.TotalErrors++
		}
	}

	for errType, count := range summary.ErrorCounts {
		summary.TopErrors = append(summary.TopErrors, models.ErrorCount{ErrorType: errType, Count: count})
	}
	sort.Slice(summary.TopErrors, func(i, j int) bool {
		a, b := summary.TopErrors[i], summary.TopErrors[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ErrorType < b.ErrorType
	})
	if len(summary.TopErrors) > TopErrorCount {
		summary.TopErrors = summary.TopErrors[:TopErrorCount]
	}
	return summary, nil
}
