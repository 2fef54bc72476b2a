/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态和就绪检查
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow HTTP请求处理流程
 * @rules 健康检查始终返回200；就绪检查在数据库不可用时返回503
 * @dependencies net/http
 * @refs service/init.go
 */

package controllers

import (
	"context"
	"net/http"
	"time"
)

// Pinger 数据库连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController 健康检查控制器
type HealthController struct {
	db      Pinger
	service string
	version string
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(db Pinger, service, version string) *HealthController {
	return &HealthController{db: db, service: service, version: version}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Database  string    `json:"database" example:"connected"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"datacontract-service"`
}

func (c *HealthController) check(ctx context.Context, okStatus string) (HealthResponse, bool) {
	response := HealthResponse{
		Status:    okStatus,
		Database:  "connected",
		Timestamp: time.Now().UTC(),
		Version:   c.version,
		Service:   c.service,
	}
	if err := c.db.Ping(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "disconnected"
		return response, false
	}
	return response, true
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态和数据库连通性
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response, _ := c.check(r.Context(), "ok")
	renderJSON(w, r, http.StatusOK, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 数据库可用时服务就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response, ok := c.check(r.Context(), "ready")
	if !ok {
		renderJSON(w, r, http.StatusServiceUnavailable, response)
		return
	}
	renderJSON(w, r, http.StatusOK, response)
}
