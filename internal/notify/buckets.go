// Package notify sorts a task snapshot into deadline-relative and
// status-relative notification buckets as of a given instant.
package notify

import (
	"slices"
	"time"

	"task-dashboard/internal/model"
)

// Buckets is recomputed wholesale on every call to Classify.
type Buckets struct {
	PastDue  []model.Task `json:"pastDue"`
	Today    []model.Task `json:"today"`
	ThisWeek []model.Task `json:"thisWeek"`
	NextWeek []model.Task `json:"nextWeek"`

	Pending    []model.Task `json:"pending"`
	InProgress []model.Task `json:"inProgress"`
	Completed  []model.Task `json:"completed"`
	Cancelled  []model.Task `json:"cancelled"`

	// All holds every task that is neither completed nor cancelled.
	All []model.Task `json:"all"`
}

type Counts struct {
	PastDue    int `json:"pastDue"`
	Today      int `json:"today"`
	ThisWeek   int `json:"thisWeek"`
	NextWeek   int `json:"nextWeek"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	All        int `json:"all"`
}

func (b Buckets) Counts() Counts {
	return Counts{
		PastDue:    len(b.PastDue),
		Today:      len(b.Today),
		ThisWeek:   len(b.ThisWeek),
		NextWeek:   len(b.NextWeek),
		Pending:    len(b.Pending),
		InProgress: len(b.InProgress),
		Completed:  len(b.Completed),
		Cancelled:  len(b.Cancelled),
		All:        len(b.All),
	}
}

// Active reports whether a task is eligible for All and the time buckets.
func Active(task model.Task) bool {
	return task.Status != model.StatusCompleted && task.Status != model.StatusCancelled
}

// Classify partitions tasks as of now. Every bucket is sorted by deadline
// ascending with deadline-less tasks last. The input is not modified.
func Classify(tasks []model.Task, now time.Time) Buckets {
	window := WindowAt(now)
	b := Buckets{
		PastDue:    []model.Task{},
		Today:      []model.Task{},
		ThisWeek:   []model.Task{},
		NextWeek:   []model.Task{},
		Pending:    []model.Task{},
		InProgress: []model.Task{},
		Completed:  []model.Task{},
		Cancelled:  []model.Task{},
		All:        []model.Task{},
	}

	for _, task := range tasks {
		switch task.Status {
		case model.StatusPending:
			b.Pending = append(b.Pending, task)
		case model.StatusInProgress:
			b.InProgress = append(b.InProgress, task)
		case model.StatusCompleted:
			b.Completed = append(b.Completed, task)
		case model.StatusCancelled:
			b.Cancelled = append(b.Cancelled, task)
		}

		if !Active(task) {
			continue
		}
		b.All = append(b.All, task)

		if task.Deadline == nil {
			continue
		}
		switch window.Place(*task.Deadline) {
		case PastDue:
			b.PastDue = append(b.PastDue, task)
		case Today:
			b.Today = append(b.Today, task)
		case ThisWeek:
			b.ThisWeek = append(b.ThisWeek, task)
		case NextWeek:
			b.NextWeek = append(b.NextWeek, task)
		}
	}

	for _, bucket := range []*[]model.Task{
		&b.PastDue, &b.Today, &b.ThisWeek, &b.NextWeek,
		&b.Pending, &b.InProgress, &b.Completed, &b.Cancelled, &b.All,
	} {
		sortByDeadline(*bucket)
	}
	return b
}

func sortByDeadline(tasks []model.Task) {
	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			return 0
		case a.Deadline == nil:
			return 1
		case b.Deadline == nil:
			return -1
		default:
			return a.Deadline.Compare(*b.Deadline)
		}
	})
}
