/*
 * @module service/models/validation
 * @description 校验结果模型，包含单条记录结果、批量结果、错误条目和持久化行
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 校验执行 -> 结果生成 -> 持久化 -> 指标聚合
 * @rules 结果创建后不可变；ValidationError 是数据而不是异常
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/validation, service/database/result_repository.go
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidationStatus 校验状态
type ValidationStatus string

const (
	StatusPass ValidationStatus = "PASS"
	StatusFail ValidationStatus = "FAIL"
)

// ErrorType 校验错误类型
type ErrorType string

const (
	ErrorRequiredFieldMissing ErrorType = "REQUIRED_FIELD_MISSING"
	ErrorTypeMismatch         ErrorType = "TYPE_MISMATCH"
	ErrorPatternMismatch      ErrorType = "PATTERN_MISMATCH"
	ErrorFormatMismatch       ErrorType = "FORMAT_MISMATCH"
	ErrorValueTooSmall        ErrorType = "VALUE_TOO_SMALL"
	ErrorValueTooLarge        ErrorType = "VALUE_TOO_LARGE"
	ErrorFreshness            ErrorType = "FRESHNESS"
	ErrorCompleteness         ErrorType = "COMPLETENESS"
	ErrorUniqueness           ErrorType = "UNIQUENESS"
	ErrorStatistics           ErrorType = "STATISTICS"

	// 单条记录异常时生成的合成错误
	ErrorInvalidRecord ErrorType = "INVALID_RECORD"
	ErrorInternal      ErrorType = "INTERNAL_ERROR"
)

// ValidationError 校验错误条目
type ValidationError struct {
	Field     string    `json:"field"`
	ErrorType ErrorType `json:"error_type"`
	Message   string    `json:"message"`
}

// ValidationErrorList 可存储为JSON列的错误列表
type ValidationErrorList []ValidationError

// Scan 实现 Scanner 接口
func (l *ValidationErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSON(value, l)
}

// Value 实现 Valuer 接口
func (l ValidationErrorList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ValidationResult 单条记录的校验结果
type ValidationResult struct {
	ID              string            `json:"id"`
	ContractID      string            `json:"contract_id"`
	BatchID         string            `json:"batch_id,omitempty"`
	Status          ValidationStatus  `json:"status"`
	Errors          []ValidationError `json:"errors"`
	QualityIssues   []ValidationError `json:"quality_issues,omitempty"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
	QualityScore    float64           `json:"quality_score"`
	ValidatedAt     time.Time         `json:"validated_at"`
}

// RecordResult 批量结果中的单条记录明细
type RecordResult struct {
	Index           int               `json:"index"`
	ResultID        string            `json:"result_id,omitempty"`
	Status          ValidationStatus  `json:"status"`
	Errors          []ValidationError `json:"errors"`
	QualityScore    float64           `json:"quality_score"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
}

// BatchValidationResult 批量校验结果
type BatchValidationResult struct {
	BatchID         string            `json:"batch_id"`
	ContractID      string            `json:"contract_id"`
	TotalRecords    int               `json:"total_records"`
	Passed          int               `json:"passed"`
	Failed          int               `json:"failed"`
	PassRate        float64           `json:"pass_rate"`
	QualityScore    float64           `json:"quality_score"`
	QualityPassed   bool              `json:"quality_passed"`
	QualityErrors   []ValidationError `json:"quality_errors,omitempty"`
	Results         []RecordResult    `json:"results"`
	ErrorSummary    map[ErrorType]int `json:"error_summary"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
}

// ValidationResultRecord 校验结果持久化模型
type ValidationResultRecord struct {
	ID              string              `gorm:"type:varchar(50);primaryKey" json:"id"`
	ContractID      string              `gorm:"type:varchar(50);not null;index" json:"contract_id"`
	BatchID         string              `gorm:"type:varchar(50);index" json:"batch_id,omitempty"`
	Status          string              `gorm:"type:varchar(10);not null;index" json:"status"`
	Errors          ValidationErrorList `gorm:"type:text" json:"errors"`
	QualityIssues   ValidationErrorList `gorm:"type:text" json:"quality_issues,omitempty"`
	QualityScore    float64             `json:"quality_score"`
	ExecutionTimeMs float64             `json:"execution_time_ms"`
	RecordData      JSONB               `gorm:"type:text" json:"record_data,omitempty"`
	ValidatedAt     time.Time           `gorm:"not null;index" json:"validated_at"`
	CreatedAt       time.Time           `json:"created_at"`
}

// TableName 指定表名
func (ValidationResultRecord) TableName() string {
	return "validation_results"
}

// BeforeCreate 创建前钩子
func (r *ValidationResultRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ValidatedAt.IsZero() {
		r.ValidatedAt = time.Now().UTC()
	}
	return nil
}

// ToResult 转换为领域结果
func (r *ValidationResultRecord) ToResult() *ValidationResult {
	return &ValidationResult{
		ID:              r.ID,
		ContractID:      r.ContractID,
		BatchID:         r.BatchID,
		Status:          ValidationStatus(r.Status),
		Errors:          []ValidationError(r.Errors),
		QualityIssues:   []ValidationError(r.QualityIssues),
		ExecutionTimeMs: r.ExecutionTimeMs,
		QualityScore:    r.QualityScore,
		ValidatedAt:     r.ValidatedAt,
	}
}

// NewValidationResultRecord 由领域结果构造持久化模型
func NewValidationResultRecord(result *ValidationResult, data map[string]interface{}) *ValidationResultRecord {
	return &ValidationResultRecord{
		ID:              result.ID,
		ContractID:      result.ContractID,
		BatchID:         result.BatchID,
		Status:          string(result.Status),
		Errors:          ValidationErrorList(result.Errors),
		QualityIssues:   ValidationErrorList(result.QualityIssues),
		QualityScore:    result.QualityScore,
		ExecutionTimeMs: result.ExecutionTimeMs,
		RecordData:      JSONB(data),
		ValidatedAt:     result.ValidatedAt,
	}
}

// ResultQuery 校验历史查询条件
type ResultQuery struct {
	ContractID string
	Status     string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// ErrorCount 错误类型计数
type ErrorCount struct {
	ErrorType string `json:"error_type"`
	Count     int    `json:"count"`
}

// ErrorSummary 错误汇总视图
type ErrorSummary struct {
	ErrorCounts map[string]int `json:"error_counts"`
	TopErrors   []ErrorCount   `json:"top_errors"`
	TotalErrors int            `json:"total_errors"`
	Period      string         `json:"period"`
}
