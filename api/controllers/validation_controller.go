/*
 * @module api/controllers/validation_controller
 * @description 数据校验控制器，提供单条、批量、文件校验以及校验历史查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 请求接收 -> 参数校验 -> 校验引擎/结果仓储 -> 响应返回
 * @rules 批量请求最多 MaxBatchSize 条；文件路径必须位于数据目录内；持久化失败时仍返回校验结果
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/validation/engine.go, service/ingestion/batch_processor.go, service/database/result_repository.go
 */

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"datacontract-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
)

// DefaultMaxBatchSize 单次批量校验的默认记录上限
const DefaultMaxBatchSize = 10000

// RecordValidator 校验引擎
type RecordValidator interface {
	ValidateRecord(ctx context.Context, contractID string, record map[string]interface{}) (*models.ValidationResult, error)
	ValidateBatch(ctx context.Context, contractID string, records []interface{}) (*models.BatchValidationResult, error)
}

// FileProcessor 文件批量校验
type FileProcessor interface {
	ProcessFileWithEncoding(ctx context.Context, contractID, filePath, fileType, encoding string) (*models.BatchValidationResult, error)
}

// ResultQuerier 校验历史查询
type ResultQuerier interface {
	QueryResults(ctx context.Context, q models.ResultQuery) ([]models.ValidationResultRecord, int64, error)
	GetResultByID(ctx context.Context, id string) (*models.ValidationResultRecord, error)
	ErrorSummary(ctx context.Context, contractID string, days int) (*models.ErrorSummary, error)
}

// ContractProvider 契约查询，用于确认契约存在
type ContractProvider interface {
	GetContract(ctx context.Context, contractID string) (*models.ContractDefinition, error)
}

// ValidationController 数据校验控制器
type ValidationController struct {
	validator    RecordValidator
	processor    FileProcessor
	results      ResultQuerier
	contracts    ContractProvider
	ingestDir    string
	maxBatchSize int
}

// NewValidationController 创建数据校验控制器实例
func NewValidationController(validator RecordValidator, processor FileProcessor, results ResultQuerier, contracts ContractProvider, ingestDir string, maxBatchSize int) *ValidationController {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &ValidationController{
		validator:    validator,
		processor:    processor,
		results:      results,
		contracts:    contracts,
		ingestDir:    ingestDir,
		maxBatchSize: maxBatchSize,
	}
}

// ValidateRequest 单条校验请求
type ValidateRequest struct {
	Data map[string]interface{} `json:"data"`
}

// BatchValidateRequest 批量校验请求
type BatchValidateRequest struct {
	Data []interface{} `json:"data"`
}

// FileValidateRequest 文件校验请求
type FileValidateRequest struct {
	FilePath string `json:"file_path" example:"incoming/users.csv"`
	FileType string `json:"file_type" example:"csv"`
	Encoding string `json:"encoding,omitempty" example:"utf-8"`
}

// envelope 读取请求体中的 data 字段
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeData 解析请求体并返回 data 字段，请求体问题返回对应HTTP状态码
func decodeData(r *http.Request) (json.RawMessage, int, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, http.StatusUnprocessableEntity, errors.New("缺少data字段")
	}
	return raw, 0, nil
}

func unmarshalNumbers(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// renderWithPersistence 持久化失败时返回500并携带校验结果
func renderWithPersistence(w http.ResponseWriter, r *http.Request, msg string, data interface{}, err error) {
	var persistErr *models.PersistenceError
	if errors.As(err, &persistErr) {
		renderJSON(w, r, http.StatusInternalServerError, &APIResponse{Status: 1, Msg: "校验完成但结果保存失败: " + err.Error(), Data: data})
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse(msg, data))
}

// ValidateRecord 单条记录校验
// @Summary 单条记录校验
// @Description 按契约校验单条JSON记录并保存结果
// @Tags 数据校验
// @Accept json
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param request body ValidateRequest true "待校验记录"
// @Success 200 {object} APIResponse{data=models.ValidationResult}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/{contract_id} [post]
func (c *ValidationController) ValidateRecord(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")

	raw, code, err := decodeData(r)
	if err != nil {
		renderJSON(w, r, code, ErrorResponse("请求参数格式错误", err))
		return
	}
	var record map[string]interface{}
	if err := unmarshalNumbers(raw, &record); err != nil {
		renderJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse("data必须是JSON对象", nil))
		return
	}

	result, err := c.validator.ValidateRecord(r.Context(), contractID, record)
	if result == nil {
		renderError(w, r, "数据校验失败", err)
		return
	}
	renderWithPersistence(w, r, "校验完成", result, err)
}

// ValidateBatch 批量记录校验
// @Summary 批量记录校验
// @Description 按契约并发校验一组记录，返回汇总与逐条结果
// @Tags 数据校验
// @Accept json
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param request body BatchValidateRequest true "待校验记录列表"
// @Success 200 {object} APIResponse{data=models.BatchValidationResult}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 413 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/{contract_id}/batch [post]
func (c *ValidationController) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")

	raw, code, err := decodeData(r)
	if err != nil {
		renderJSON(w, r, code, ErrorResponse("请求参数格式错误", err))
		return
	}
	var records []interface{}
	if err := unmarshalNumbers(raw, &records); err != nil {
		renderJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse("data必须是JSON数组", nil))
		return
	}
	if len(records) > c.maxBatchSize {
		renderJSON(w, r, http.StatusRequestEntityTooLarge,
			ErrorResponse(fmt.Sprintf("批量记录数 %d 超过上限 %d", len(records), c.maxBatchSize), nil))
		return
	}

	result, err := c.validator.ValidateBatch(r.Context(), contractID, records)
	if result == nil {
		renderError(w, r, "批量校验失败", err)
		return
	}
	renderWithPersistence(w, r, "批量校验完成", result, err)
}

// ValidateFile 文件校验
// @Summary 文件校验
// @Description 校验数据目录下的CSV/TSV/JSON/JSONL文件，任一行解析失败则整个文件不产生结果
// @Tags 数据校验
// @Accept json
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param request body FileValidateRequest true "文件信息"
// @Success 200 {object} APIResponse{data=models.BatchValidationResult}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/{contract_id}/file [post]
func (c *ValidationController) ValidateFile(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")

	var req FileValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse("请求参数格式错误", err))
		return
	}
	if req.FilePath == "" || req.FileType == "" {
		renderJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse("file_path和file_type不能为空", nil))
		return
	}

	path, err := resolveIngestPath(c.ingestDir, req.FilePath)
	if err != nil {
		renderJSON(w, r, http.StatusBadRequest, ErrorResponse("文件路径无效", err))
		return
	}

	result, err := c.processor.ProcessFileWithEncoding(r.Context(), contractID, path, req.FileType, req.Encoding)
	if result == nil {
		renderError(w, r, "文件校验失败", err)
		return
	}
	renderWithPersistence(w, r, "文件校验完成", result, err)
}

// resolveIngestPath 将请求路径解析到数据目录内，拒绝目录穿越
func resolveIngestPath(baseDir, requested string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	target := requested
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s 不在数据目录内", requested)
	}
	return target, nil
}

// GetResults 查询校验历史
// @Summary 查询校验历史
// @Description 按状态和时间范围分页查询契约的校验结果，按校验时间倒序
// @Tags 数据校验
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param status query string false "校验状态" Enums(PASS,FAIL)
// @Param start_date query string false "开始时间(RFC3339或YYYY-MM-DD)"
// @Param end_date query string false "结束时间(RFC3339或YYYY-MM-DD)"
// @Param limit query int false "每页大小(最大1000)" default(100)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} PaginatedResponse{data=[]models.ValidationResult}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/{contract_id}/results [get]
func (c *ValidationController) GetResults(w http.ResponseWriter, r *http.Request) {
	contract, err := c.contracts.GetContract(r.Context(), chi.URLParam(r, "contract_id"))
	if err != nil {
		renderError(w, r, "查询契约失败", err)
		return
	}

	q, err := parseResultQuery(r)
	if err != nil {
		renderJSON(w, r, http.StatusBadRequest, ErrorResponse("查询参数错误", err))
		return
	}
	q.ContractID = contract.ID

	records, total, err := c.results.QueryResults(r.Context(), q)
	if err != nil {
		renderError(w, r, "查询校验历史失败", err)
		return
	}

	items := make([]*models.ValidationResult, 0, len(records))
	for i := range records {
		items = append(items, records[i].ToResult())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	renderJSON(w, r, http.StatusOK, &PaginatedResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   items,
		Total:  total,
		Limit:  limit,
		Offset: q.Offset,
	})
}

func parseResultQuery(r *http.Request) (models.ResultQuery, error) {
	values := r.URL.Query()
	var q models.ResultQuery

	if status := strings.ToUpper(values.Get("status")); status != "" {
		if status != string(models.StatusPass) && status != string(models.StatusFail) {
			return q, fmt.Errorf("status必须是PASS或FAIL")
		}
		q.Status = status
	}

	var err error
	if q.StartDate, err = parseTimeParam(values.Get("start_date"), false); err != nil {
		return q, fmt.Errorf("start_date: %w", err)
	}
	if q.EndDate, err = parseTimeParam(values.Get("end_date"), true); err != nil {
		return q, fmt.Errorf("end_date: %w", err)
	}
	if q.Limit, err = intParam(values.Get("limit"), 0); err != nil {
		return q, fmt.Errorf("limit: %w", err)
	}
	if q.Offset, err = intParam(values.Get("offset"), 0); err != nil {
		return q, fmt.Errorf("offset: %w", err)
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("offset不能为负数")
	}
	return q, nil
}

// parseTimeParam 解析RFC3339或YYYY-MM-DD，endOfDay 为真时日期取当日最后一刻
func parseTimeParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(models.MetricDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("无法解析时间 %q", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func intParam(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return cast.ToIntE(value)
}

// GetResult 获取单条校验结果
// @Summary 获取单条校验结果
// @Tags 数据校验
// @Produce json
// @Param result_id path string true "结果ID"
// @Success 200 {object} APIResponse{data=models.ValidationResult}
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/results/{result_id} [get]
func (c *ValidationController) GetResult(w http.ResponseWriter, r *http.Request) {
	record, err := c.results.GetResultByID(r.Context(), chi.URLParam(r, "result_id"))
	if err != nil {
		renderError(w, r, "查询校验结果失败", err)
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse("查询成功", record.ToResult()))
}

// GetErrorSummary 错误类型汇总
// @Summary 错误类型汇总
// @Description 汇总最近N天失败结果的错误类型分布，返回出现次数最多的10类
// @Tags 数据校验
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param days query int false "统计天数(1-90)" default(7)
// @Success 200 {object} APIResponse{data=models.ErrorSummary}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/validate/{contract_id}/errors/summary [get]
func (c *ValidationController) GetErrorSummary(w http.ResponseWriter, r *http.Request) {
	contract, err := c.contracts.GetContract(r.Context(), chi.URLParam(r, "contract_id"))
	if err != nil {
		renderError(w, r, "查询契约失败", err)
		return
	}

	days, err := intParam(r.URL.Query().Get("days"), 7)
	if err != nil {
		renderJSON(w, r, http.StatusBadRequest, ErrorResponse("days参数错误", err))
		return
	}

	summary, err := c.results.ErrorSummary(r.Context(), contract.ID, days)
	if err != nil {
		renderError(w, r, "错误汇总失败", err)
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse("查询成功", summary))
}
