package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-dashboard/internal/apiclient"
	"task-dashboard/internal/model"
	"task-dashboard/internal/notify"
	"task-dashboard/internal/query"
	"task-dashboard/internal/repository"
)

type fakeAPI struct {
	tasks      []model.Task
	categories []model.Category
	subs       []model.SubCategory
	err        error
}

func (f *fakeAPI) ListTasks(context.Context, apiclient.TaskListParams) ([]model.Task, error) {
	return f.tasks, f.err
}

func (f *fakeAPI) ListCategories(context.Context) ([]model.Category, error) {
	return f.categories, f.err
}

func (f *fakeAPI) ListSubCategories(context.Context, model.ID) ([]model.SubCategory, error) {
	return f.subs, f.err
}

type fixture struct {
	api           *fakeAPI
	tasks         *TaskService
	categories    *CategoryService
	notifications *NotificationService
	sync          *SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	api := &fakeAPI{}
	tasks := NewTaskService(api, repository.NewTaskRepository(db))
	categories := NewCategoryService(api, repository.NewCategoryRepository(db))
	notifications := NewNotificationService(tasks)
	return &fixture{
		api:           api,
		tasks:         tasks,
		categories:    categories,
		notifications: notifications,
		sync:          NewSyncService(tasks, categories, notifications, time.UTC),
	}
}

// Wednesday.
var now = time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

func deadline(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func sampleTasks() []model.Task {
	backend := &model.SubCategory{ID: "s1", Name: "Backend", CategoryID: "c1"}
	return []model.Task{
		{ID: "1", Title: "Ship <release>", Status: model.StatusPending, Priority: "High", Deadline: deadline(-26 * time.Hour), SubCategory: backend},
		{ID: "2", Title: "Review PR", Status: model.StatusInProgress, Priority: "low", Deadline: deadline(3 * time.Hour)},
		{ID: "3", Title: "Archive", Status: model.StatusCompleted, Priority: "High", Deadline: deadline(3 * time.Hour)},
		{ID: "4", Title: "Plan sprint", Status: model.StatusPending, Priority: "Medium", Deadline: deadline(8 * 24 * time.Hour)},
	}
}

func TestTaskServiceRefreshAndQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.tasks = sampleTasks()

	n, err := f.tasks.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := f.tasks.Query(ctx, query.FilterState{Priorities: []string{"high"}, Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalMatching)
	assert.Equal(t, "Archive", res.Visible[0].Title)

	res, err = f.tasks.Query(ctx, query.FilterState{SubCategoryID: "s1", Page: 1, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalMatching)
	assert.Equal(t, "Backend", res.Visible[0].SubCategoryName())

	_, err = f.tasks.Query(ctx, query.FilterState{Page: 0, PageSize: 5})
	assert.ErrorIs(t, err, query.ErrInvalidFilterState)

	all, err := f.tasks.Matching(ctx, query.FilterState{SortKey: query.SortDeadline, Direction: query.Desc})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.ID("4"), all[0].ID)
}

func TestTaskServiceRefreshFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.tasks = sampleTasks()
	_, err := f.tasks.Refresh(ctx)
	require.NoError(t, err)

	f.api.err = apiclient.ErrUnauthorized
	_, err = f.tasks.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apiclient.ErrUnauthorized))

	snap, err := f.tasks.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 4)
}

func TestTaskServiceGetTaskAndLastRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tasks.now = func() time.Time { return now }

	_, ok, err := f.tasks.LastRefresh(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	f.api.tasks = sampleTasks()
	_, err = f.tasks.Refresh(ctx)
	require.NoError(t, err)

	at, ok, err := f.tasks.LastRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, now.Equal(at))

	task, err := f.tasks.GetTask(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Backend", task.SubCategoryName())

	_, err = f.tasks.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCategoryServiceRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.categories = []model.Category{{ID: "c1", Name: "Engineering"}, {ID: "c2", Name: "Admin"}}
	f.api.subs = []model.SubCategory{{ID: "s1", Name: "Backend", CategoryID: "c1"}, {ID: "s2", Name: "Payroll", CategoryID: "c2"}}

	require.NoError(t, f.categories.Refresh(ctx))

	cats, err := f.categories.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Admin", cats[0].Name)

	subs, err := f.categories.SubCategories(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, model.ID("s1"), subs[0].ID)
}

func TestNotificationServiceRecompute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, at := f.notifications.Current()
	assert.True(t, at.IsZero())
	assert.Empty(t, b.All)
	assert.NotNil(t, b.All)

	f.api.tasks = sampleTasks()
	_, err := f.tasks.Refresh(ctx)
	require.NoError(t, err)

	_, err = f.notifications.Recompute(ctx, now)
	require.NoError(t, err)

	b, at = f.notifications.Current()
	assert.Equal(t, now, at)
	c := b.Counts()
	assert.Equal(t, 1, c.PastDue)
	assert.Equal(t, 1, c.Today)
	assert.Equal(t, 1, c.NextWeek)
	assert.Equal(t, 3, c.All)
	assert.Equal(t, 1, c.Completed)
}

func TestDigestRendersSections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.tasks = sampleTasks()
	_, err := f.tasks.Refresh(ctx)
	require.NoError(t, err)
	b, err := f.notifications.Recompute(ctx, now)
	require.NoError(t, err)

	digest := f.notifications.Digest(b, now)
	assert.Contains(t, digest, "<b>Past due</b> (1)")
	assert.Contains(t, digest, "<b>Today</b> (1)")
	assert.Contains(t, digest, "<b>This week</b> (0)")
	assert.Contains(t, digest, "Ship &lt;release&gt;")
	assert.Contains(t, digest, "<i>(Backend)</i>")
	assert.Contains(t, digest, "overdue")
	assert.NotContains(t, digest, "Archive")
}

func TestDigestCapsLongSections(t *testing.T) {
	f := newFixture(t)
	var tasks []model.Task
	for i := 0; i < digestSectionLimit+3; i++ {
		tasks = append(tasks, model.Task{ID: model.ID(strconv.Itoa(i)), Title: "t", Status: model.StatusPending, Deadline: deadline(-48 * time.Hour)})
	}
	digest := f.notifications.Digest(notify.Classify(tasks, now), now)
	assert.Contains(t, digest, "… and 3 more")
	assert.Equal(t, digestSectionLimit, strings.Count(digest, "⏰"))
}

func TestSyncServiceRefreshesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.tasks = sampleTasks()
	f.api.categories = []model.Category{{ID: "c1", Name: "Engineering"}}

	require.NoError(t, f.sync.Sync(ctx))

	cats, err := f.categories.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	b, at := f.notifications.Current()
	assert.False(t, at.IsZero())
	assert.Len(t, b.All, 3)

	f.api.err = errors.New("api down")
	err = f.sync.Sync(ctx)
	require.Error(t, err)
	b, _ = f.notifications.Current()
	assert.Len(t, b.All, 3, "buckets are rebuilt from the cached snapshot")
}

func TestSchedulerRunNowAndDailySpec(t *testing.T) {
	s := NewSchedulerService(context.Background(), time.UTC)

	var calls atomic.Int32
	s.RunNow("count", func(context.Context) error {
		calls.Add(1)
		return errors.New("logged, not returned")
	})
	assert.Equal(t, int32(1), calls.Load())

	_, err := s.ScheduleDaily("digest", "08:30", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.ScheduleDaily("digest", "25:00", func(context.Context) error { return nil })
	assert.Error(t, err)
	_, err = s.ScheduleInterval("refresh", 0, func(context.Context) error { return nil })
	assert.Error(t, err)

	spec, err := buildDailySpec("07:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 7 * * *", spec)

	s.Start()
	s.Stop()
}

type fakeAnalytics struct {
	tasks    map[string]interface{}
	users    json.RawMessage
	taskErr  error
	userErr  error
	byUser   map[model.ID][]model.Task
	lastUser model.ID
}

func (f *fakeAnalytics) TaskAnalytics(context.Context) (map[string]interface{}, error) {
	return f.tasks, f.taskErr
}

func (f *fakeAnalytics) UserAnalytics(context.Context) (json.RawMessage, error) {
	return f.users, f.userErr
}

func (f *fakeAnalytics) UserTasks(_ context.Context, userID model.ID) ([]model.Task, error) {
	f.lastUser = userID
	return f.byUser[userID], nil
}

func TestAnalyticsDashboardToleratesOneFailure(t *testing.T) {
	ctx := context.Background()
	api := &fakeAnalytics{
		tasks:   map[string]interface{}{"total": 3},
		userErr: errors.New("users down"),
	}
	svc := NewAnalyticsService(api)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Tasks["total"])
	assert.Nil(t, d.Users)
	assert.Equal(t, "users down", d.UserError)

	api.taskErr = errors.New("tasks down")
	_, err = svc.Dashboard(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks down")
	assert.Contains(t, err.Error(), "users down")
}

func TestAnalyticsUserTasksCountsStatuses(t *testing.T) {
	api := &fakeAnalytics{byUser: map[model.ID][]model.Task{"u1": sampleTasks()}}
	summary, err := NewAnalyticsService(api).UserTasks(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.ID("u1"), api.lastUser)
	assert.Len(t, summary.Tasks, 4)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 1, summary.Completed)
}
