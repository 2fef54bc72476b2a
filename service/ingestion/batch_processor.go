/*
 * @module service/ingestion/batch_processor
 * @description 文件批量处理器，流式读取源文件、分块提交校验引擎并汇总结果
 * @architecture 分层架构 - 数据接入层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 类型检查 -> 解析预检(第一遍) -> 分块读取(第二遍) -> 批量校验 -> 结果汇总
 * @rules 解析阶段全有或全无：任何格式错误都不会产生校验结果；不支持的文件类型在任何I/O之前失败
 * @dependencies datacontract-service/service/validation, github.com/google/uuid
 * @refs service/validation/engine.go, service/ingestion/readers.go
 */

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"datacontract-service/service/models"
	"datacontract-service/service/validation"

	"github.com/google/uuid"
)

const (
	// DefaultChunkSize 默认分块大小
	DefaultChunkSize = 1000
	// DefaultMaxFailedDetails 汇总结果中保留的失败记录明细上限
	DefaultMaxFailedDetails = 100
)

// BatchValidator 批量校验接口，由 validation.ValidationEngine 实现
type BatchValidator interface {
	CheckContract(ctx context.Context, contractID string) error
	ValidateBatch(ctx context.Context, contractID string, records []interface{}) (*models.BatchValidationResult, error)
}

// BatchProcessor 文件批量处理器
type BatchProcessor struct {
	validator        BatchValidator
	chunkSize        int
	maxFailedDetails int
}

// ProcessorOption 处理器选项
type ProcessorOption func(*BatchProcessor)

// WithChunkSize 设置分块大小
func WithChunkSize(n int) ProcessorOption {
	return func(p *BatchProcessor) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithMaxFailedDetails 设置保留的失败记录明细数量
func WithMaxFailedDetails(n int) ProcessorOption {
	return func(p *BatchProcessor) {
		if n >= 0 {
			p.maxFailedDetails = n
		}
	}
}

// NewBatchProcessor 创建文件批量处理器实例
func NewBatchProcessor(validator BatchValidator, opts ...ProcessorOption) *BatchProcessor {
	p := &BatchProcessor{
		validator:        validator,
		chunkSize:        DefaultChunkSize,
		maxFailedDetails: DefaultMaxFailedDetails,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile 按UTF-8编码处理文件
func (p *BatchProcessor) ProcessFile(ctx context.Context, contractID, filePath, fileType string) (*models.BatchValidationResult, error) {
	return p.ProcessFileWithEncoding(ctx, contractID, filePath, fileType, "")
}

// ProcessFileWithEncoding 处理指定编码的文件
// 返回 *FormatError 时没有任何记录被校验或持久化
func (p *BatchProcessor) ProcessFileWithEncoding(ctx context.Context, contractID, filePath, fileType, encoding string) (*models.BatchValidationResult, error) {
	ft, err := normalizeFileType(fileType)
	if err != nil {
		return nil, err
	}
	if _, err := decoderFor(encoding); err != nil {
		return nil, err
	}
	if err := p.validator.CheckContract(ctx, contractID); err != nil {
		return nil, err
	}

	start := time.Now()

	total, err := p.scan(ctx, filePath, ft, encoding)
	if err != nil {
		return nil, err
	}

	slog.Info("文件解析预检完成",
		"contract_id", contractID,
		"file", filePath,
		"file_type", ft,
		"records", total)

	result, err := p.validateChunks(ctx, contractID, filePath, ft, encoding)
	if result != nil {
		result.ExecutionTimeMs = float64(time.Since(start).Nanoseconds()) / 1e6
	}
	return result, err
}

// open 打开文件并按类型创建记录读取器
func (p *BatchProcessor) open(filePath, fileType, encoding string) (recordReader, io.Closer, error) {
	decoder, err := decoderFor(encoding)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("打开文件失败: %w", err)
	}

	reader, err := newRecordReader(decodeReader(f, decoder), fileType)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return reader, f, nil
}

// scan 第一遍：只解析不校验，确认整个文件格式正确
func (p *BatchProcessor) scan(ctx context.Context, filePath, fileType, encoding string) (int, error) {
	reader, closer, err := p.open(filePath, fileType, encoding)
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	count := 0
	for {
		if count%p.chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}

// validateChunks 第二遍：分块读取并逐块提交校验引擎
func (p *BatchProcessor) validateChunks(ctx context.Context, contractID, filePath, fileType, encoding string) (*models.BatchValidationResult, error) {
	reader, closer, err := p.open(filePath, fileType, encoding)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	agg := newAggregate(contractID, p.maxFailedDetails)
	var persistErr *models.PersistenceError

	chunkIndex := 0
	for {
		chunk, eof, err := p.readChunk(reader)
		if err != nil {
			return nil, err
		}
		if len(chunk) > 0 || chunkIndex == 0 {
			result, err := p.validator.ValidateBatch(ctx, contractID, chunk)
			if err != nil {
				var perr *models.PersistenceError
				if !errors.As(err, &perr) || result == nil {
					return nil, err
				}
				if persistErr == nil {
					persistErr = &models.PersistenceError{ContractID: contractID, Err: perr.Err}
				}
				for _, idx := range perr.Failed {
					persistErr.Failed = append(persistErr.Failed, agg.offset+idx)
				}
			}

			slog.Info("分块校验完成",
				"contract_id", contractID,
				"chunk", chunkIndex,
				"batch_id", result.BatchID,
				"records", result.TotalRecords,
				"passed", result.Passed)

			agg.add(result)
			chunkIndex++
		}
		if eof {
			break
		}
	}

	final := agg.result()
	slog.Info("文件校验完成",
		"contract_id", contractID,
		"file", filePath,
		"chunks", chunkIndex,
		"total", final.TotalRecords,
		"pass_rate", final.PassRate)

	if persistErr != nil {
		return final, persistErr
	}
	return final, nil
}

func (p *BatchProcessor) readChunk(reader recordReader) ([]interface{}, bool, error) {
	chunk := make([]interface{}, 0, p.chunkSize)
	for len(chunk) < p.chunkSize {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return chunk, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		chunk = append(chunk, record)
	}
	return chunk, false, nil
}

// aggregate 跨分块累计的汇总结果
type aggregate struct {
	batch       *models.BatchValidationResult
	offset      int
	scoreWeight float64
	maxDetails  int
}

func newAggregate(contractID string, maxDetails int) *aggregate {
	return &aggregate{
		batch: &models.BatchValidationResult{
			BatchID:       uuid.New().String(),
			ContractID:    contractID,
			QualityPassed: true,
			Results:       make([]models.RecordResult, 0),
			ErrorSummary:  make(map[models.ErrorType]int),
		},
		maxDetails: maxDetails,
	}
}

func (a *aggregate) add(chunk *models.BatchValidationResult) {
	r := a.batch
	r.TotalRecords += chunk.TotalRecords
	r.Passed += chunk.Passed
	r.Failed += chunk.Failed
	r.QualityPassed = r.QualityPassed && chunk.QualityPassed
	r.QualityErrors = append(r.QualityErrors, chunk.QualityErrors...)
	for errType, n := range chunk.ErrorSummary {
		r.ErrorSummary[errType] += n
	}

	// 质量评分按记录数加权平均
	a.scoreWeight += chunk.QualityScore * float64(chunk.TotalRecords)

	for _, rec := range chunk.Results {
		if rec.Status != models.StatusFail || len(r.Results) >= a.maxDetails {
			continue
		}
		rec.Index += a.offset
		r.Results = append(r.Results, rec)
	}
	a.offset += chunk.TotalRecords
}

func (a *aggregate) result() *models.BatchValidationResult {
	r := a.batch
	r.PassRate = validation.Round2(validation.PassRate(r.Passed, r.TotalRecords))
	if r.TotalRecords > 0 {
		r.QualityScore = validation.Round2(a.scoreWeight / float64(r.TotalRecords))
	}
	return r
}
