/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"datacontract-service/service/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UsersContractYAML 测试用的用户契约
const UsersContractYAML = `
contract_version: "1.2.0"
domain: users
description: 用户主数据
schema:
  user_id:
    type: string
    required: true
    pattern: "usr_[0-9]+"
  email:
    type: string
    required: true
    format: email
  age:
    type: integer
    min: 0
    max: 150
  address:
    type: object
    properties:
      city:
        type: string
        required: true
quality_rules:
  uniqueness:
    fields: [user_id]
`

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 内存库每个连接独立，固定为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql db: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.DataContract{},
		&models.ValidationResultRecord{},
		&models.DailyMetrics{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"data_contracts",
		"validation_results",
		"daily_metrics",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ContractOption 契约选项函数类型
type ContractOption func(*models.DataContract)

// WithContractYAML 指定契约YAML
func WithContractYAML(content string) ContractOption {
	return func(c *models.DataContract) {
		c.YAMLContent = content
	}
}

// WithContractStatus 指定契约状态
func WithContractStatus(status string) ContractOption {
	return func(c *models.DataContract) {
		c.Status = status
	}
}

// CreateContract 创建测试契约，默认使用 UsersContractYAML
func (f *TestDataFactory) CreateContract(opts ...ContractOption) *models.DataContract {
	contract := &models.DataContract{
		ID:          generateID("ct"),
		Name:        "test_contract_" + generateSuffix(),
		Domain:      "users",
		Version:     "1.2.0",
		Status:      models.ContractStatusActive,
		Description: "测试契约",
		YAMLContent: UsersContractYAML,
	}

	for _, opt := range opts {
		opt(contract)
	}

	if err := f.DB.Create(contract).Error; err != nil {
		panic(fmt.Sprintf("failed to create test contract: %v", err))
	}
	return contract
}

// ResultOption 校验结果选项函数类型
type ResultOption func(*models.ValidationResultRecord)

// WithStatus 指定结果状态
func WithStatus(status models.ValidationStatus) ResultOption {
	return func(r *models.ValidationResultRecord) {
		r.Status = string(status)
	}
}

// WithValidatedAt 指定校验时间
func WithValidatedAt(t time.Time) ResultOption {
	return func(r *models.ValidationResultRecord) {
		r.ValidatedAt = t.UTC()
	}
}

// WithErrors 指定错误类型
func WithErrors(types ...models.ErrorType) ResultOption {
	return func(r *models.ValidationResultRecord) {
		for _, t := range types {
			r.Errors = append(r.Errors, models.ValidationError{ErrorType: t, Message: string(t)})
		}
	}
}

// CreateResult 创建测试校验结果
func (f *TestDataFactory) CreateResult(contractID string, opts ...ResultOption) *models.ValidationResultRecord {
	record := &models.ValidationResultRecord{
		ID:              generateID("vr"),
		ContractID:      contractID,
		Status:          string(models.StatusPass),
		QualityScore:    100,
		ExecutionTimeMs: 1.5,
		RecordData:      models.JSONB{"user_id": "usr_1"},
		ValidatedAt:     time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(record)
	}

	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test result: %v", err))
	}
	return record
}

// DoJSONRequest 发送JSON请求并返回响应记录器
func DoJSONRequest(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

var sequence atomic.Int64

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d%d", time.Now().UnixNano()%100000, sequence.Add(1))
}
