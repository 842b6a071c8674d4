package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"task-dashboard/internal/logger"
)

// SyncService runs one full refresh: reference data, the task snapshot and
// then the notification buckets. Concurrent calls are serialized.
type SyncService struct {
	tasks         *TaskService
	categories    *CategoryService
	notifications *NotificationService
	now           func() time.Time

	mu sync.Mutex
}

func NewSyncService(tasks *TaskService, categories *CategoryService, notifications *NotificationService, loc *time.Location) *SyncService {
	if loc == nil {
		loc = time.Local
	}
	return &SyncService{
		tasks:         tasks,
		categories:    categories,
		notifications: notifications,
		now:           func() time.Time { return time.Now().In(loc) },
	}
}

// Sync refreshes everything. A category failure does not stop the task
// refresh; buckets are recomputed from whatever snapshot is cached.
func (s *SyncService) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.categories.Refresh(ctx); err != nil {
		logger.WarnLog(ctx, "category refresh failed: %v", err)
		errs = append(errs, err)
	}
	if _, err := s.tasks.Refresh(ctx); err != nil {
		logger.WarnLog(ctx, "task refresh failed, keeping cached snapshot: %v", err)
		errs = append(errs, err)
	}
	if _, err := s.notifications.Recompute(ctx, s.now()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RecomputeNotifications re-buckets the cached snapshot as of now.
func (s *SyncService) RecomputeNotifications(ctx context.Context) error {
	_, err := s.notifications.Recompute(ctx, s.now())
	return err
}
