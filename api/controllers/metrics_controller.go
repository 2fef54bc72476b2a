/*
 * @module api/controllers/metrics_controller
 * @description 质量指标控制器，提供每日指标、趋势分析和历史指标查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 请求接收 -> 参数校验 -> 指标聚合器/指标仓储 -> 响应返回
 * @rules 每日指标每次请求重新计算并覆盖；趋势天数 1-365
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/metrics/aggregator.go, service/database/metrics_repository.go
 */

package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"datacontract-service/service/models"

	"github.com/go-chi/chi/v5"
)

// DefaultTrendDays 趋势分析默认天数
const DefaultTrendDays = 7

// MetricsCalculator 指标聚合
type MetricsCalculator interface {
	CalculateDailyMetrics(ctx context.Context, contractID string, date time.Time) (*models.DailyMetrics, error)
	GetTrendData(ctx context.Context, contractID string, days int) (*models.TrendData, error)
}

// MetricsHistory 历史每日指标
type MetricsHistory interface {
	ListDailyMetrics(ctx context.Context, contractID, startDate, endDate string) ([]models.DailyMetrics, error)
}

// MetricsController 质量指标控制器
type MetricsController struct {
	calculator MetricsCalculator
	history    MetricsHistory
	contracts  ContractProvider
	now        func() time.Time
}

// NewMetricsController 创建质量指标控制器实例
func NewMetricsController(calculator MetricsCalculator, history MetricsHistory, contracts ContractProvider) *MetricsController {
	return &MetricsController{
		calculator: calculator,
		history:    history,
		contracts:  contracts,
		now:        time.Now,
	}
}

// GetDailyMetrics 获取每日指标
// @Summary 获取每日质量指标
// @Description 重新计算并保存指定日期(UTC)的每日指标，默认当天
// @Tags 质量指标
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param date query string false "日期(YYYY-MM-DD)"
// @Success 200 {object} APIResponse{data=models.DailyMetrics}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/metrics/{contract_id}/daily [get]
func (c *MetricsController) GetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	contract, err := c.contracts.GetContract(r.Context(), chi.URLParam(r, "contract_id"))
	if err != nil {
		renderError(w, r, "查询契约失败", err)
		return
	}

	date := c.now().UTC()
	if value := r.URL.Query().Get("date"); value != "" {
		date, err = time.Parse(models.MetricDateLayout, value)
		if err != nil {
			renderJSON(w, r, http.StatusBadRequest, ErrorResponse("date格式应为YYYY-MM-DD", nil))
			return
		}
	}

	metrics, err := c.calculator.CalculateDailyMetrics(r.Context(), contract.ID, date)
	if err != nil {
		renderError(w, r, "计算每日指标失败", err)
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse("查询成功", metrics))
}

// GetTrend 获取通过率趋势
// @Summary 获取通过率趋势
// @Description 统计最近N天的每日通过率，比较前后两半的平均值判断趋势
// @Tags 质量指标
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param days query int false "天数(1-365)" default(7)
// @Success 200 {object} APIResponse{data=models.TrendData}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/metrics/{contract_id}/trend [get]
func (c *MetricsController) GetTrend(w http.ResponseWriter, r *http.Request) {
	contract, err := c.contracts.GetContract(r.Context(), chi.URLParam(r, "contract_id"))
	if err != nil {
		renderError(w, r, "查询契约失败", err)
		return
	}

	days, err := intParam(r.URL.Query().Get("days"), DefaultTrendDays)
	if err != nil {
		renderJSON(w, r, http.StatusBadRequest, ErrorResponse("days参数错误", err))
		return
	}

	trend, err := c.calculator.GetTrendData(r.Context(), contract.ID, days)
	if err != nil {
		renderError(w, r, "趋势分析失败", err)
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse("查询成功", trend))
}

// GetHistory 查询历史每日指标
// @Summary 查询历史每日指标
// @Description 按日期区间（含两端）查询已保存的每日指标
// @Tags 质量指标
// @Produce json
// @Param contract_id path string true "契约ID或名称"
// @Param start_date query string false "开始日期(YYYY-MM-DD)"
// @Param end_date query string false "结束日期(YYYY-MM-DD)"
// @Success 200 {object} APIResponse{data=[]models.DailyMetrics}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/metrics/{contract_id}/history [get]
func (c *MetricsController) GetHistory(w http.ResponseWriter, r *http.Request) {
	contract, err := c.contracts.GetContract(r.Context(), chi.URLParam(r, "contract_id"))
	if err != nil {
		renderError(w, r, "查询契约失败", err)
		return
	}

	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	for name, value := range map[string]string{"start_date": start, "end_date": end} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(models.MetricDateLayout, value); err != nil {
			renderJSON(w, r, http.StatusBadRequest, ErrorResponse(fmt.Sprintf("%s格式应为YYYY-MM-DD", name), nil))
			return
		}
	}
	if start != "" && end != "" && start > end {
		renderJSON(w, r, http.StatusBadRequest, ErrorResponse("start_date不能晚于end_date", nil))
		return
	}

	list, err := c.history.ListDailyMetrics(r.Context(), contract.ID, start, end)
	if err != nil {
		renderError(w, r, "查询历史指标失败", err)
		return
	}
	renderJSON(w, r, http.StatusOK, SuccessResponse("查询成功", list))
}
