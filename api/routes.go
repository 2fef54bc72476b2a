/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs service/init.go
 */

package api

import (
	"net/http"

	"datacontract-service/api/controllers"
	"datacontract-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// maxRequestBytes 请求体大小上限
const maxRequestBytes = 64 << 20

// InitRoute 初始化所有API路由
func InitRoute(r chi.Router, svc *service.Services) {
	settings := svc.Settings

	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(corsOptions(settings.CORSOrigins)))

	// 健康检查
	healthController := controllers.NewHealthController(svc, settings.ProjectName, settings.Version)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	validationController := controllers.NewValidationController(
		svc.Engine, svc.Processor, svc.Results, svc.Contracts, settings.IngestDir, settings.MaxBatchSize)
	metricsController := controllers.NewMetricsController(svc.Aggregator, svc.Metrics, svc.Contracts)

	r.Route(settings.APIV1Prefix, func(r chi.Router) {
		r.Use(middleware.RequestSize(maxRequestBytes))

		// 数据校验
		r.Route("/validate", func(r chi.Router) {
			r.Get("/results/{result_id}", validationController.GetResult)
			r.Post("/{contract_id}", validationController.ValidateRecord)
			r.Post("/{contract_id}/batch", validationController.ValidateBatch)
			r.Post("/{contract_id}/file", validationController.ValidateFile)
			r.Get("/{contract_id}/results", validationController.GetResults)
			r.Get("/{contract_id}/errors/summary", validationController.GetErrorSummary)
		})

		// 质量指标
		r.Route("/metrics", func(r chi.Router) {
			r.Get("/{contract_id}/daily", metricsController.GetDailyMetrics)
			r.Get("/{contract_id}/trend", metricsController.GetTrend)
			r.Get("/{contract_id}/history", metricsController.GetHistory)
		})
	})
}

// corsOptions 构建CORS配置
// 允许携带凭证时浏览器不接受 "*"，通配时改为回显请求的Origin
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, origin := range origins {
		if origin == "*" {
			opts.AllowedOrigins = nil
			opts.AllowOriginFunc = func(r *http.Request, origin string) bool {
				return true
			}
			break
		}
	}
	return opts
}
