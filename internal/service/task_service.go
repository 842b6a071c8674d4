package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-dashboard/internal/apiclient"
	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/query"
	"task-dashboard/internal/repository"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskSource is the part of the external API the task service reads from.
type TaskSource interface {
	ListTasks(ctx context.Context, params apiclient.TaskListParams) ([]model.Task, error)
}

// TaskService keeps the local snapshot in step with the API and answers
// dashboard queries against it.
type TaskService struct {
	api      TaskSource
	taskRepo *repository.TaskRepository
	now      func() time.Time
}

func NewTaskService(api TaskSource, taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{api: api, taskRepo: taskRepo, now: time.Now}
}

// Refresh fetches the whole collection and replaces the cached snapshot.
// On failure the previous snapshot stays in place.
func (s *TaskService) Refresh(ctx context.Context) (int, error) {
	tasks, err := s.api.ListTasks(ctx, apiclient.TaskListParams{})
	if err != nil {
		return 0, fmt.Errorf("fetch tasks: %w", err)
	}
	if err := s.taskRepo.ReplaceSnapshot(ctx, tasks, s.now()); err != nil {
		return 0, fmt.Errorf("store snapshot: %w", err)
	}
	logger.InfoLog(ctx, "task snapshot refreshed: %d tasks", len(tasks))
	return len(tasks), nil
}

func (s *TaskService) Snapshot(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.Snapshot(ctx)
}

// LastRefresh reports when the snapshot was last replaced with a non-empty
// collection.
func (s *TaskService) LastRefresh(ctx context.Context) (time.Time, bool, error) {
	return s.taskRepo.LastFetchedAt(ctx)
}

// Query runs f against the cached snapshot and returns one page.
func (s *TaskService) Query(ctx context.Context, f query.FilterState) (query.Result, error) {
	tasks, err := s.taskRepo.Snapshot(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return query.Run(tasks, f)
}

// Matching returns every cached task passing f, sorted, without pagination.
func (s *TaskService) Matching(ctx context.Context, f query.FilterState) ([]model.Task, error) {
	tasks, err := s.taskRepo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return query.Matching(tasks, f)
}

func (s *TaskService) GetTask(ctx context.Context, id model.ID) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, err
}
