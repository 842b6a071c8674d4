package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func RegisterMiddlewares(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}

func RegisterRoutes(e *echo.Echo, taskHandler *TaskHandler, categoryHandler *CategoryHandler, analyticsHandler *AnalyticsHandler) {
	e.GET("/tasks", taskHandler.ListHandler)
	e.GET("/tasks/export", taskHandler.ExportHandler)
	e.GET("/tasks/:id", taskHandler.GetHandler)
	e.GET("/notifications", taskHandler.NotificationsHandler)
	e.POST("/sync", taskHandler.SyncHandler)
	e.GET("/status", taskHandler.StatusHandler)

	e.GET("/categories", categoryHandler.ListCategoriesHandler)
	e.GET("/subcategories", categoryHandler.ListSubCategoriesHandler)

	e.GET("/analytics", analyticsHandler.DashboardHandler)
	e.GET("/users/:id/tasks", analyticsHandler.UserTasksHandler)
}
