package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-dashboard/internal/model"
)

// TaskRepository caches the latest task snapshot fetched from the API.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// ReplaceSnapshot swaps the cached snapshot for tasks in a single transaction.
// Embedded subcategories are stored alongside when not known yet.
func (r *TaskRepository) ReplaceSnapshot(ctx context.Context, tasks []model.Task, fetchedAt time.Time) error {
	rows := make([]model.Task, len(tasks))
	for i, task := range tasks {
		task.Position = i
		task.FetchedAt = fetchedAt
		rows[i] = task
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("store tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the cached tasks in fetch order.
func (r *TaskRepository) Snapshot(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Preload("SubCategory.Category").
		Order("position ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id model.ID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("SubCategory.Category").Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// LastFetchedAt reports when the cached snapshot was taken. ok is false when
// the cache is empty.
func (r *TaskRepository) LastFetchedAt(ctx context.Context) (at time.Time, ok bool, err error) {
	var task model.Task
	err = r.db.WithContext(ctx).Order("fetched_at DESC").Limit(1).Find(&task).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if task.ID == "" {
		return time.Time{}, false, nil
	}
	return task.FetchedAt, true, nil
}
