package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"dataquality-service/api"
	"dataquality-service/logger"
	"dataquality-service/service/monitoring"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
)

func init() {
	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}
}

func main() {
	logger.InitLogger()

	collector := monitoring.NewDefaultCollector()
	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux, collector)
			r.Handle("/metrics", promhttp.Handler())
		})
	} else {
		api.InitRoute(mux, collector)
		mux.Handle("/metrics", promhttp.Handler())
	}

	if err := http.ListenAndServe(":"+strconv.Itoa(PORT), mux); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}
