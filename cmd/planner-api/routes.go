package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-planner-api/internal/handler"
)

type handlers struct {
	catalog   *handler.CatalogHandler
	planner   *handler.PlannerHandler
	generator *handler.ScheduleGeneratorHandler
	cart      *handler.CartHandler
	exports   *handler.ExportHandler
	metrics   *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, h handlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/metrics/summary", h.metrics.Summary)

	catalog := api.Group("/catalog")
	catalog.GET("/courses", h.catalog.List)
	catalog.GET("/courses/:id", h.catalog.Get)
	catalog.POST("/reload", h.catalog.Reload)

	planner := api.Group("/planner")
	planner.GET("/preferences", h.planner.GetPreferences)
	planner.PUT("/preferences", h.planner.UpdatePreferences)
	planner.GET("/busy-times", h.planner.ListBusyTimes)
	planner.POST("/busy-times", h.planner.CreateBusyTime)
	planner.PUT("/busy-times/:id", h.planner.UpdateBusyTime)
	planner.DELETE("/busy-times/:id", h.planner.DeleteBusyTime)

	schedules := api.Group("/schedules")
	schedules.POST("/generate", h.generator.Generate)
	schedules.POST("/import", h.planner.ImportSchedule)
	schedules.GET("/selected", h.planner.SelectedSchedule)
	schedules.GET("", h.planner.ListSchedules)
	schedules.GET("/:id", h.planner.GetSchedule)
	schedules.DELETE("/:id", h.planner.DeleteSchedule)
	schedules.POST("/:id/select", h.planner.SelectSchedule)
	schedules.POST("/:id/sections", h.planner.AddSection)
	schedules.DELETE("/:id/sections/:sectionId", h.planner.RemoveSection)
	schedules.GET("/:id/export", h.planner.ExportSchedule)
	schedules.POST("/:id/exports", h.exports.Create)

	exports := api.Group("/exports")
	exports.GET("/download/:token", h.exports.Download)
	exports.GET("/:jobId", h.exports.Status)

	cart := api.Group("/cart")
	cart.GET("", h.cart.Get)
	cart.POST("", h.cart.Add)
	cart.DELETE("", h.cart.Clear)
	cart.POST("/validate", h.cart.Validate)
	cart.POST("/register", h.cart.Register)
}
