package main

import (
	"log"
	"log/slog"
	"net/http"
	"strconv"

	"datacontract-service/api"
	_ "datacontract-service/docs"
	"datacontract-service/logger"
	"datacontract-service/service"
	"datacontract-service/service/config"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 数据契约校验服务 API
// @version 1.0
// @description 按数据契约校验记录、批量数据和文件，并提供校验历史与质量指标
// @BasePath /
func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(settings.LogLevel)

	if err := service.Init(settings); err != nil {
		log.Fatalf("服务初始化失败: %v", err)
	}
	defer service.GlobalServices.Close()

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if settings.BaseContext != "" {
		mux.Route(settings.BaseContext, func(r chi.Router) {
			api.InitRoute(r, service.GlobalServices)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, service.GlobalServices)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	slog.Info("服务启动", "port", settings.ListenPort, "env", settings.Env)
	s := daprd.NewServiceWithMux(":"+strconv.Itoa(settings.ListenPort), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("服务异常退出", "error", err)
	}
}
