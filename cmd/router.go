package main

import (
	"net/http"

	"github.com/angeloszaimis/resilience-gate/internal/metrics"
	"github.com/angeloszaimis/resilience-gate/internal/ops"
)

func setupRouter(opsHandler *ops.Handler, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", opsHandler.Statuses)
	mux.HandleFunc("GET /status/{service}", opsHandler.ServiceStatus)
	mux.HandleFunc("POST /reset/{service}", opsHandler.ResetService)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler())

	return mux
}
