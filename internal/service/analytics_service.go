package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
)

// AnalyticsSource is the read-only reporting side of the external API.
type AnalyticsSource interface {
	TaskAnalytics(ctx context.Context) (map[string]interface{}, error)
	UserAnalytics(ctx context.Context) (json.RawMessage, error)
	UserTasks(ctx context.Context, userID model.ID) ([]model.Task, error)
}

// Dashboard holds both server-side aggregations. A half that failed to load
// is nil and its error message is set instead.
type Dashboard struct {
	Tasks     map[string]interface{} `json:"tasks"`
	Users     json.RawMessage        `json:"users"`
	TaskError string                 `json:"taskError,omitempty"`
	UserError string                 `json:"userError,omitempty"`
}

type UserTaskSummary struct {
	UserID     model.ID     `json:"userId"`
	Tasks      []model.Task `json:"tasks"`
	Pending    int          `json:"pending"`
	InProgress int          `json:"inProgress"`
	Completed  int          `json:"completed"`
}

type AnalyticsService struct {
	api AnalyticsSource
}

func NewAnalyticsService(api AnalyticsSource) *AnalyticsService {
	return &AnalyticsService{api: api}
}

// Dashboard fetches task and user analytics independently. It fails only
// when neither could be loaded.
func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard

	tasks, taskErr := s.api.TaskAnalytics(ctx)
	if taskErr != nil {
		logger.WarnLog(ctx, "task analytics: %v", taskErr)
		d.TaskError = taskErr.Error()
	} else {
		d.Tasks = tasks
	}

	users, userErr := s.api.UserAnalytics(ctx)
	if userErr != nil {
		logger.WarnLog(ctx, "user analytics: %v", userErr)
		d.UserError = userErr.Error()
	} else {
		d.Users = users
	}

	if taskErr != nil && userErr != nil {
		return Dashboard{}, errors.Join(taskErr, userErr)
	}
	return d, nil
}

// UserTasks lists one user's tasks with per-status counts.
func (s *AnalyticsService) UserTasks(ctx context.Context, userID model.ID) (UserTaskSummary, error) {
	tasks, err := s.api.UserTasks(ctx, userID)
	if err != nil {
		return UserTaskSummary{}, fmt.Errorf("fetch tasks of user %s: %w", userID, err)
	}

	summary := UserTaskSummary{UserID: userID, Tasks: tasks}
	for _, task := range tasks {
		switch task.Status {
		case model.StatusPending:
			summary.Pending++
		case model.StatusInProgress:
			summary.InProgress++
		case model.StatusCompleted:
			summary.Completed++
		}
	}
	return summary, nil
}
