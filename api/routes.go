/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers/
 */

package api

import (
	"dataquality-service/api/controllers"
	"dataquality-service/service/monitoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, collector *monitoring.Collector) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 内联数据集质量分析
	qualityController := controllers.NewQualityController(collector)
	r.Route("/quality", func(r chi.Router) {
		r.Post("/analyze", qualityController.Analyze)
	})

	// 评分器管理
	graderController := controllers.NewGraderController(collector)
	r.Route("/graders", func(r chi.Router) {
		r.Post("/", graderController.CreateGrader)
		r.Get("/", graderController.ListGraders)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", graderController.GetGrader)
			r.Delete("/", graderController.CloseGrader)
			r.Get("/units", graderController.GetUnits)
			r.Get("/units/{unit}", graderController.GetUnitInfo)
			r.Put("/active-unit", graderController.SetActiveUnit)
			r.Post("/grade", graderController.Grade)
		})
	})
}
