package main

import (
	"net/http"

	"github.com/angeloszaimis/resilience/internal/handler"
	"github.com/angeloszaimis/resilience/internal/metrics"
)

func setupRouter(adminHandler *handler.AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()

	adminHandler.Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}
