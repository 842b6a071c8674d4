package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"task-dashboard/internal/apiclient"
	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/service"
)

type AnalyticsReader interface {
	Dashboard(ctx context.Context) (service.Dashboard, error)
	UserTasks(ctx context.Context, userID model.ID) (service.UserTaskSummary, error)
}

// AnalyticsHandler passes the API's reporting endpoints through. Nothing
// here is cached.
type AnalyticsHandler struct {
	analytics AnalyticsReader
}

func NewAnalyticsHandler(analytics AnalyticsReader) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) DashboardHandler(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := h.analytics.Dashboard(ctx)
	if err != nil {
		logger.ErrorLog(ctx, "analytics: %v", err)
		return ResponseError(c, upstreamStatus(err), "Failed to load analytics", err)
	}
	return ResponseSuccess(c, http.StatusOK, "", d)
}

func (h *AnalyticsHandler) UserTasksHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID := model.ID(strings.TrimSpace(c.Param("id")))
	if userID == "" {
		return ResponseError(c, http.StatusBadRequest, "Missing user id", errors.New("empty user id"))
	}
	summary, err := h.analytics.UserTasks(ctx, userID)
	if err != nil {
		logger.ErrorLog(ctx, "user tasks: %v", err)
		return ResponseError(c, upstreamStatus(err), "Failed to load user tasks", err)
	}
	return ResponseSuccess(c, http.StatusOK, "", summary)
}

func upstreamStatus(err error) int {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
