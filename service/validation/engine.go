/*
 * @module service/validation/engine
 * @description 校验引擎，编排单条与批量记录的结构校验、质量评估和结果持久化
 * @architecture 分层架构 - 数据校验服务层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 契约解析 -> 校验器编译 -> 记录并发校验 -> 结果汇总 -> 持久化/通知
 * @rules 未知契约在处理任何记录前失败；批量结果顺序与输入一致；单条记录异常不影响整个批次
 * @dependencies github.com/google/uuid, log/slog
 * @refs service/validation/schema_validator.go, service/validation/quality_validator.go
 */

package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"datacontract-service/service/models"

	"github.com/google/uuid"
)

// ContractProvider 契约解析接口，未知契约返回 models.ErrContractNotFound
type ContractProvider interface {
	GetContract(ctx context.Context, contractID string) (*models.ContractDefinition, error)
}

// ResultStore 校验结果持久化接口
type ResultStore interface {
	SaveValidationResult(ctx context.Context, record *models.ValidationResultRecord) error
}

// Observer 校验过程观测接口
type Observer interface {
	ObserveRecord(contractID string, status models.ValidationStatus, duration time.Duration)
	ObserveBatch(contractID string, result *models.BatchValidationResult)
}

// BatchNotifier 批量校验完成通知接口
type BatchNotifier interface {
	NotifyBatchCompleted(ctx context.Context, result *models.BatchValidationResult) error
}

// ValidationEngine 校验引擎
type ValidationEngine struct {
	contracts ContractProvider
	store     ResultStore
	workers   int
	observer  Observer
	notifier  BatchNotifier
	clock     func() time.Time
}

// EngineOption 校验引擎选项
type EngineOption func(*ValidationEngine)

// WithWorkers 设置批量校验的并发数
func WithWorkers(n int) EngineOption {
	return func(e *ValidationEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithObserver 设置观测器
func WithObserver(o Observer) EngineOption {
	return func(e *ValidationEngine) {
		e.observer = o
	}
}

// WithNotifier 设置批量完成通知器
func WithNotifier(n BatchNotifier) EngineOption {
	return func(e *ValidationEngine) {
		e.notifier = n
	}
}

// WithEngineClock 设置时间来源
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *ValidationEngine) {
		e.clock = now
	}
}

// NewValidationEngine 创建校验引擎实例
func NewValidationEngine(contracts ContractProvider, store ResultStore, opts ...EngineOption) *ValidationEngine {
	e := &ValidationEngine{
		contracts: contracts,
		store:     store,
		workers:   runtime.NumCPU(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// preparedContract 单次调用内编译好的契约校验器
type preparedContract struct {
	id             string
	schema         *SchemaValidator
	recordQuality  *QualityValidator
	datasetQuality *QualityValidator
}

func (e *ValidationEngine) prepare(ctx context.Context, contractID string) (*preparedContract, error) {
	contract, err := e.contracts.GetContract(ctx, contractID)
	if err != nil {
		if errors.Is(err, models.ErrContractNotFound) {
			return nil, fmt.Errorf("契约 %s: %w", contractID, models.ErrContractNotFound)
		}
		return nil, fmt.Errorf("获取契约失败: %w", err)
	}

	schema, err := NewSchemaValidator(contract.Schema)
	if err != nil {
		return nil, err
	}

	// 按名称查找时，结果统一记在契约ID下
	id := contract.ID
	if id == "" {
		id = contractID
	}
	pc := &preparedContract{id: id, schema: schema}

	if !contract.QualityRules.IsEmpty() {
		pc.datasetQuality, err = NewQualityValidator(contract.QualityRules, WithClock(e.clock))
		if err != nil {
			return nil, err
		}
	}
	if scoped := contract.QualityRules.RecordScoped(); !scoped.IsEmpty() {
		pc.recordQuality, err = NewQualityValidator(scoped, WithClock(e.clock))
		if err != nil {
			return nil, err
		}
	}

	return pc, nil
}

// CheckContract 解析并编译契约，契约不存在或定义无效时返回对应错误
func (e *ValidationEngine) CheckContract(ctx context.Context, contractID string) error {
	_, err := e.prepare(ctx, contractID)
	return err
}

// ValidateRecord 校验单条记录并持久化结果
// 持久化失败时同时返回结果与 *models.PersistenceError
func (e *ValidationEngine) ValidateRecord(ctx context.Context, contractID string, record map[string]interface{}) (*models.ValidationResult, error) {
	pc, err := e.prepare(ctx, contractID)
	if err != nil {
		return nil, err
	}
	contractID = pc.id

	result := e.validateOne(pc, record, "")
	if e.observer != nil {
		e.observer.ObserveRecord(contractID, result.Status, msToDuration(result.ExecutionTimeMs))
	}

	if err := e.store.SaveValidationResult(ctx, models.NewValidationResultRecord(result, record)); err != nil {
		return result, &models.PersistenceError{ContractID: contractID, Err: err}
	}

	slog.Debug("记录校验完成",
		"contract_id", contractID,
		"result_id", result.ID,
		"status", result.Status,
		"errors", len(result.Errors))

	return result, nil
}

// validateOne 执行单条记录的结构校验和记录级质量评估
func (e *ValidationEngine) validateOne(pc *preparedContract, record map[string]interface{}, batchID string) *models.ValidationResult {
	start := time.Now()

	errs := pc.schema.Validate(record)
	status := models.StatusPass
	passRate := 100.0
	if len(errs) > 0 {
		status = models.StatusFail
		passRate = 0
	}

	var issues []models.ValidationError
	if pc.recordQuality != nil {
		issues = pc.recordQuality.Validate([]map[string]interface{}{record}).Errors
	}

	return &models.ValidationResult{
		ID:              uuid.New().String(),
		ContractID:      pc.id,
		BatchID:         batchID,
		Status:          status,
		Errors:          errs,
		QualityIssues:   issues,
		ExecutionTimeMs: float64(time.Since(start).Nanoseconds()) / 1e6,
		QualityScore:    QualityScore(passRate, 1, distinctTypes(issues)),
		ValidatedAt:     e.clock().UTC(),
	}
}

// validateElement 校验批量中的单个元素，非对象元素和意外panic转换为FAIL结果
func (e *ValidationEngine) validateElement(pc *preparedContract, element interface{}, batchID string) (result *models.ValidationResult, record map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("记录校验发生异常", "contract_id", pc.id, "batch_id", batchID, "panic", r)
			result = e.syntheticFailure(pc.id, batchID, models.ErrorInternal, fmt.Sprintf("记录校验异常: %v", r))
			record = nil
		}
	}()

	switch v := element.(type) {
	case map[string]interface{}:
		return e.validateOne(pc, v, batchID), v
	case models.MalformedRecord:
		return e.syntheticFailure(pc.id, batchID, models.ErrorInvalidRecord, fmt.Sprintf("第 %d 条记录格式错误: %v", v.Position, v.Err)), nil
	case *models.MalformedRecord:
		return e.syntheticFailure(pc.id, batchID, models.ErrorInvalidRecord, fmt.Sprintf("第 %d 条记录格式错误: %v", v.Position, v.Err)), nil
	default:
		return e.syntheticFailure(pc.id, batchID, models.ErrorInvalidRecord, fmt.Sprintf("记录必须是对象, 实际为 %s", describeType(element))), nil
	}
}

func (e *ValidationEngine) syntheticFailure(contractID, batchID string, errorType models.ErrorType, message string) *models.ValidationResult {
	return &models.ValidationResult{
		ID:         uuid.New().String(),
		ContractID: contractID,
		BatchID:    batchID,
		Status:     models.StatusFail,
		Errors: []models.ValidationError{{
			Field:     "",
			ErrorType: errorType,
			Message:   message,
		}},
		ValidatedAt: e.clock().UTC(),
	}
}

// ValidateBatch 批量校验记录
// 记录由工作池并发校验，结果按输入顺序返回；持久化失败时同时返回完整结果与 *models.PersistenceError
func (e *ValidationEngine) ValidateBatch(ctx context.Context, contractID string, records []interface{}) (*models.BatchValidationResult, error) {
	start := time.Now()

	pc, err := e.prepare(ctx, contractID)
	if err != nil {
		return nil, err
	}
	contractID = pc.id

	batchID := uuid.New().String()
	n := len(records)
	results := make([]*models.ValidationResult, n)
	objects := make([]map[string]interface{}, n)
	saveErrs := make([]error, n)

	workers := e.workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				result, record := e.validateElement(pc, records[idx], batchID)
				results[idx] = result
				objects[idx] = record
				if e.observer != nil {
					e.observer.ObserveRecord(contractID, result.Status, msToDuration(result.ExecutionTimeMs))
				}
				saveErrs[idx] = e.store.SaveValidationResult(ctx, models.NewValidationResultRecord(result, record))
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		slog.Warn("批量校验被取消", "contract_id", contractID, "batch_id", batchID, "error", err)
		return nil, err
	}

	batch := e.reduce(pc, batchID, results, objects)
	batch.ExecutionTimeMs = float64(time.Since(start).Nanoseconds()) / 1e6

	if e.observer != nil {
		e.observer.ObserveBatch(contractID, batch)
	}
	if e.notifier != nil {
		if err := e.notifier.NotifyBatchCompleted(ctx, batch); err != nil {
			slog.Error("发送批量校验完成通知失败", "contract_id", contractID, "batch_id", batchID, "error", err)
		}
	}

	slog.Info("批量校验完成",
		"contract_id", contractID,
		"batch_id", batchID,
		"total", batch.TotalRecords,
		"passed", batch.Passed,
		"failed", batch.Failed,
		"pass_rate", batch.PassRate)

	var failed []int
	var firstErr error
	for i, err := range saveErrs {
		if err != nil {
			failed = append(failed, i)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if len(failed) > 0 {
		return batch, &models.PersistenceError{ContractID: contractID, Failed: failed, Err: firstErr}
	}

	return batch, nil
}

// reduce 汇总所有记录结果，只在全部记录完成后执行
func (e *ValidationEngine) reduce(pc *preparedContract, batchID string, results []*models.ValidationResult, objects []map[string]interface{}) *models.BatchValidationResult {
	batch := &models.BatchValidationResult{
		BatchID:       batchID,
		ContractID:    pc.id,
		TotalRecords:  len(results),
		QualityPassed: true,
		Results:       make([]models.RecordResult, len(results)),
		ErrorSummary:  make(map[models.ErrorType]int),
	}

	for i, result := range results {
		if result.Status == models.StatusPass {
			batch.Passed++
		} else {
			batch.Failed++
		}
		for _, ve := range result.Errors {
			batch.ErrorSummary[ve.ErrorType]++
		}
		batch.Results[i] = models.RecordResult{
			Index:           i,
			ResultID:        result.ID,
			Status:          result.Status,
			Errors:          result.Errors,
			QualityScore:    result.QualityScore,
			ExecutionTimeMs: result.ExecutionTimeMs,
		}
	}

	if pc.datasetQuality != nil {
		dataset := make([]map[string]interface{}, 0, len(objects))
		for _, obj := range objects {
			if obj != nil {
				dataset = append(dataset, obj)
			}
		}
		quality := pc.datasetQuality.Validate(dataset)
		batch.QualityPassed = quality.Passed
		batch.QualityErrors = quality.Errors
		for _, ve := range quality.Errors {
			batch.ErrorSummary[ve.ErrorType]++
		}
	}

	passRate := PassRate(batch.Passed, batch.TotalRecords)
	batch.PassRate = Round2(passRate)
	batch.QualityScore = Round2(QualityScore(passRate, batch.TotalRecords, len(batch.ErrorSummary)))

	return batch
}

// distinctTypes 统计错误类型种类数
func distinctTypes(errs []models.ValidationError) int {
	seen := make(map[models.ErrorType]struct{}, len(errs))
	for _, e := range errs {
		seen[e.ErrorType] = struct{}{}
	}
	return len(seen)
}

// SortedErrorTypes 按字典序返回错误汇总中的错误类型
func SortedErrorTypes(summary map[models.ErrorType]int) []models.ErrorType {
	types := make([]models.ErrorType, 0, len(summary))
	for t := range summary {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
