// Package handler exposes the dashboard over HTTP with echo.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"task-dashboard/internal/export"
	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/notify"
	"task-dashboard/internal/query"
	"task-dashboard/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TaskQuerier interface {
	Query(ctx context.Context, f query.FilterState) (query.Result, error)
	Matching(ctx context.Context, f query.FilterState) ([]model.Task, error)
	GetTask(ctx context.Context, id model.ID) (*model.Task, error)
	LastRefresh(ctx context.Context) (time.Time, bool, error)
}

type NotificationReader interface {
	Current() (notify.Buckets, time.Time)
}

type Syncer interface {
	Sync(ctx context.Context) error
}

// TaskHandler serves the task table, its export, the notification buckets
// and manual syncs.
type TaskHandler struct {
	tasks           TaskQuerier
	notifications   NotificationReader
	syncer          Syncer
	defaultPageSize int
}

func NewTaskHandler(tasks TaskQuerier, notifications NotificationReader, syncer Syncer, defaultPageSize int) *TaskHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 5
	}
	return &TaskHandler{
		tasks:           tasks,
		notifications:   notifications,
		syncer:          syncer,
		defaultPageSize: defaultPageSize,
	}
}

type taskPage struct {
	query.Result
	PageCount int `json:"pageCount"`
}

// ListHandler returns one page of the filtered, sorted task table.
func (h *TaskHandler) ListHandler(c echo.Context) error {
	f, err := h.filterFromRequest(c)
	if err != nil {
		return ResponseError(c, http.StatusBadRequest, "Invalid query parameters", err)
	}

	res, err := h.tasks.Query(c.Request().Context(), f)
	if err != nil {
		if errors.Is(err, query.ErrInvalidFilterState) {
			return ResponseError(c, http.StatusBadRequest, "Invalid filter", err)
		}
		logger.ErrorLog(c.Request().Context(), "query tasks: %v", err)
		return ResponseError(c, http.StatusInternalServerError, "Failed to query tasks", err)
	}
	return ResponseSuccess(c, http.StatusOK, "", taskPage{Result: res, PageCount: res.PageCount()})
}

// ExportHandler streams every task matching the filters as an xlsx file.
func (h *TaskHandler) ExportHandler(c echo.Context) error {
	f, err := h.filterFromRequest(c)
	if err != nil {
		return ResponseError(c, http.StatusBadRequest, "Invalid query parameters", err)
	}

	tasks, err := h.tasks.Matching(c.Request().Context(), f)
	if err != nil {
		if errors.Is(err, query.ErrInvalidFilterState) {
			return ResponseError(c, http.StatusBadRequest, "Invalid filter", err)
		}
		return ResponseError(c, http.StatusInternalServerError, "Failed to query tasks", err)
	}

	var buf bytes.Buffer
	if err := export.WriteTasks(&buf, tasks); err != nil {
		return ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
	}

	filename := fmt.Sprintf("tasks_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(buf.Len()))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

type notificationsPayload struct {
	Buckets    notify.Buckets `json:"buckets"`
	Counts     notify.Counts  `json:"counts"`
	ComputedAt *time.Time     `json:"computedAt"`
}

// GetHandler returns a single cached task.
func (h *TaskHandler) GetHandler(c echo.Context) error {
	ctx := c.Request().Context()
	task, err := h.tasks.GetTask(ctx, model.ID(c.Param("id")))
	if errors.Is(err, service.ErrTaskNotFound) {
		return ResponseError(c, http.StatusNotFound, "Task not found", err)
	}
	if err != nil {
		logger.ErrorLog(ctx, "get task: %v", err)
		return ResponseError(c, http.StatusInternalServerError, "Failed to load task", err)
	}
	return ResponseSuccess(c, http.StatusOK, "", task)
}

type statusPayload struct {
	LastRefresh *time.Time    `json:"lastRefresh"`
	ComputedAt  *time.Time    `json:"computedAt"`
	Counts      notify.Counts `json:"counts"`
}

// StatusHandler reports how fresh the cached snapshot and buckets are.
func (h *TaskHandler) StatusHandler(c echo.Context) error {
	ctx := c.Request().Context()
	var payload statusPayload
	refreshed, ok, err := h.tasks.LastRefresh(ctx)
	if err != nil {
		logger.ErrorLog(ctx, "last refresh: %v", err)
		return ResponseError(c, http.StatusInternalServerError, "Failed to read snapshot state", err)
	}
	if ok {
		payload.LastRefresh = &refreshed
	}
	b, at := h.notifications.Current()
	payload.Counts = b.Counts()
	if !at.IsZero() {
		payload.ComputedAt = &at
	}
	return ResponseSuccess(c, http.StatusOK, "", payload)
}

// NotificationsHandler returns the latest notification buckets.
func (h *TaskHandler) NotificationsHandler(c echo.Context) error {
	b, at := h.notifications.Current()
	payload := notificationsPayload{Buckets: b, Counts: b.Counts()}
	if !at.IsZero() {
		payload.ComputedAt = &at
	}
	return ResponseSuccess(c, http.StatusOK, "", payload)
}

// SyncHandler refreshes everything from the API right away.
func (h *TaskHandler) SyncHandler(c echo.Context) error {
	if err := h.syncer.Sync(c.Request().Context()); err != nil {
		return ResponseError(c, http.StatusBadGateway, "Sync failed", err)
	}
	b, at := h.notifications.Current()
	return ResponseSuccess(c, http.StatusOK, "Synced", map[string]interface{}{
		"counts":     b.Counts(),
		"computedAt": at,
	})
}

func (h *TaskHandler) filterFromRequest(c echo.Context) (query.FilterState, error) {
	page, err := intParam(c, "page", 1)
	if err != nil {
		return query.FilterState{}, err
	}
	limit, err := intParam(c, "limit", h.defaultPageSize)
	if err != nil {
		return query.FilterState{}, err
	}

	f := query.FilterState{
		Priorities:    query.ParsePriorities(c.QueryParam("priority")),
		CategoryID:    model.ID(strings.TrimSpace(c.QueryParam("category_id"))),
		SubCategoryID: model.ID(strings.TrimSpace(c.QueryParam("sub_category_id"))),
		SortKey:       query.SortKey(strings.ToLower(strings.TrimSpace(c.QueryParam("sort")))),
		Direction:     query.Direction(strings.ToLower(strings.TrimSpace(c.QueryParam("order")))),
		Page:          page,
		PageSize:      limit,
	}

	if id := strings.TrimSpace(c.QueryParam("task_id")); id != "" {
		f.Title = query.Resolved(model.ID(id))
	} else {
		f.Title = query.Text(c.QueryParam("q"))
	}
	if id := strings.TrimSpace(c.QueryParam("sub_id")); id != "" {
		f.SubCategory = query.Resolved(model.ID(id))
	} else {
		f.SubCategory = query.Text(c.QueryParam("sub_q"))
	}
	return f, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
