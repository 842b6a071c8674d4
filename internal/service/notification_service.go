package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/notify"
)

// digestSectionLimit caps how many tasks a digest lists per section.
const digestSectionLimit = 10

// SnapshotSource yields the task snapshot to bucket.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]model.Task, error)
}

// NotificationService holds the latest notification buckets. Readers always
// see a complete set; Recompute swaps it in one step.
type NotificationService struct {
	tasks SnapshotSource

	mu         sync.RWMutex
	buckets    notify.Buckets
	computedAt time.Time
}

func NewNotificationService(tasks SnapshotSource) *NotificationService {
	return &NotificationService{tasks: tasks, buckets: notify.Classify(nil, time.Time{})}
}

// Recompute classifies the current snapshot as of now and replaces the held
// buckets. The previous buckets are kept when the snapshot cannot be read.
func (s *NotificationService) Recompute(ctx context.Context, now time.Time) (notify.Buckets, error) {
	tasks, err := s.tasks.Snapshot(ctx)
	if err != nil {
		return notify.Buckets{}, fmt.Errorf("load snapshot: %w", err)
	}
	buckets := notify.Classify(tasks, now)

	s.mu.Lock()
	s.buckets = buckets
	s.computedAt = now
	s.mu.Unlock()

	c := buckets.Counts()
	logger.DebugLog(ctx, "notifications recomputed: pastDue=%d today=%d thisWeek=%d nextWeek=%d", c.PastDue, c.Today, c.ThisWeek, c.NextWeek)
	return buckets, nil
}

// Current returns the latest buckets and the instant they were computed for.
// computedAt is zero before the first Recompute.
func (s *NotificationService) Current() (notify.Buckets, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets, s.computedAt
}

// Digest renders buckets as Telegram HTML.
func (s *NotificationService) Digest(b notify.Buckets, now time.Time) string {
	c := b.Counts()

	var builder strings.Builder
	builder.WriteString("📋 <b>Task digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("Mon 02 Jan 2006 15:04")))
	builder.WriteString(fmt.Sprintf("Open: %d · pending %d · in progress %d\n", c.All, c.Pending, c.InProgress))

	writeSection(&builder, "⚠️", "Past due", b.PastDue, now)
	writeSection(&builder, "🔥", "Today", b.Today, now)
	writeSection(&builder, "📅", "This week", b.ThisWeek, now)
	writeSection(&builder, "🗂", "Next weeks", b.NextWeek, now)

	return strings.TrimSpace(builder.String())
}

func writeSection(builder *strings.Builder, icon, title string, tasks []model.Task, now time.Time) {
	builder.WriteString(fmt.Sprintf("\n%s <b>%s</b> (%d)\n", icon, title, len(tasks)))
	if len(tasks) == 0 {
		builder.WriteString("— nothing here\n")
		return
	}
	for i, task := range tasks {
		if i == digestSectionLimit {
			builder.WriteString(fmt.Sprintf("… and %d more\n", len(tasks)-digestSectionLimit))
			break
		}
		builder.WriteString(formatTask(task, now))
	}
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if name := strings.TrimSpace(task.SubCategoryName()); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}
	if p := strings.TrimSpace(string(task.Priority)); p != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", html.EscapeString(p)))
	}

	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format("2006-01-02 15:04")))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}
