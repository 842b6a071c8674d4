package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-dashboard/internal/model"
)

// Wednesday.
var now = time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

func at(year int, month time.Month, day, hour, minute int) *time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	return &t
}

func ids(tasks []model.Task) []model.ID {
	out := make([]model.ID, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestWindowPlace(t *testing.T) {
	w := WindowAt(now)
	cases := []struct {
		name     string
		deadline *time.Time
		want     TimeBucket
	}{
		{"yesterday late", at(2025, 6, 3, 23, 59), PastDue},
		{"start of today", at(2025, 6, 4, 0, 0), Today},
		{"earlier today", at(2025, 6, 4, 8, 0), Today},
		{"later today", at(2025, 6, 4, 23, 0), Today},
		{"tomorrow", at(2025, 6, 5, 9, 0), ThisWeek},
		{"sunday", at(2025, 6, 8, 23, 59), ThisWeek},
		{"next monday", at(2025, 6, 9, 0, 0), NextWeek},
		{"eight days out", at(2025, 6, 12, 10, 0), NextWeek},
		{"last day of window", at(2025, 7, 21, 23, 59), NextWeek},
		{"past window", at(2025, 7, 22, 0, 0), NoBucket},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Place(*tc.deadline))
		})
	}
}

func TestWindowWeekStartsMonday(t *testing.T) {
	sunday := time.Date(2025, 6, 8, 18, 0, 0, 0, time.UTC)
	w := WindowAt(sunday)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), w.StartOfNextWeek)

	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	w = WindowAt(monday)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), w.StartOfNextWeek)
	assert.Equal(t, time.Date(2025, 7, 29, 0, 0, 0, 0, time.UTC), w.EndOfNextWeek)
}

func TestWindowUsesCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	localNow := time.Date(2025, 6, 4, 1, 0, 0, 0, loc)
	w := WindowAt(localNow)

	assert.Equal(t, Today, w.Place(time.Date(2025, 6, 3, 21, 0, 0, 0, time.UTC)))
	assert.Equal(t, PastDue, w.Place(time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)))
}

func TestClassifyCompletedExcluded(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Status: model.StatusPending, Priority: "High", Title: "A", Deadline: at(2025, 6, 4, 17, 0)},
		{ID: "2", Status: model.StatusCompleted, Priority: "Low", Title: "B", Deadline: at(2025, 6, 4, 17, 0)},
	}

	b := Classify(tasks, now)
	assert.Equal(t, []model.ID{"1"}, ids(b.Today))
	assert.Equal(t, []model.ID{"2"}, ids(b.Completed))
	assert.Equal(t, []model.ID{"1"}, ids(b.All))
	assert.Equal(t, []model.ID{"1"}, ids(b.Pending))
}

func TestClassifyEightDaysOut(t *testing.T) {
	tasks := []model.Task{{ID: "1", Status: model.StatusInProgress, Deadline: at(2025, 6, 12, 10, 0)}}
	b := Classify(tasks, now)
	assert.Equal(t, []model.ID{"1"}, ids(b.NextWeek))
	assert.Equal(t, 1, b.Counts().NextWeek)
}

func TestClassifyEmpty(t *testing.T) {
	b := Classify(nil, now)
	assert.Equal(t, Counts{}, b.Counts())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"pastDue":[]`)
	assert.Contains(t, string(out), `"all":[]`)
}

func TestClassifyCancelledOnlyInCancelledBucket(t *testing.T) {
	tasks := []model.Task{{ID: "1", Status: model.StatusCancelled, Deadline: at(2025, 6, 4, 12, 0)}}
	b := Classify(tasks, now)
	c := b.Counts()
	assert.Equal(t, 1, c.Cancelled)
	assert.Equal(t, Counts{Cancelled: 1}, c)
}

func TestClassifyMissingDeadline(t *testing.T) {
	tasks := []model.Task{
		{ID: "nodl", Status: model.StatusPending},
		{ID: "late", Status: model.StatusPending, Deadline: at(2025, 6, 1, 9, 0)},
		{ID: "done", Status: model.StatusCompleted},
	}
	b := Classify(tasks, now)

	assert.Equal(t, []model.ID{"late", "nodl"}, ids(b.Pending), "deadline-less tasks sort last")
	assert.Equal(t, []model.ID{"late", "nodl"}, ids(b.All))
	assert.Equal(t, []model.ID{"late"}, ids(b.PastDue))
	assert.Equal(t, []model.ID{"done"}, ids(b.Completed))
	assert.Empty(t, b.Today)
}

func TestClassifyUnknownStatusIsActive(t *testing.T) {
	tasks := []model.Task{{ID: "1", Status: "blocked", Deadline: at(2025, 6, 5, 9, 0)}}
	b := Classify(tasks, now)
	assert.Equal(t, []model.ID{"1"}, ids(b.All))
	assert.Equal(t, []model.ID{"1"}, ids(b.ThisWeek))
	assert.Empty(t, b.Pending)
}

func TestClassifySortsEachBucket(t *testing.T) {
	tasks := []model.Task{
		{ID: "c", Status: model.StatusPending, Deadline: at(2025, 6, 4, 18, 0)},
		{ID: "a", Status: model.StatusInProgress, Deadline: at(2025, 6, 4, 9, 0)},
		{ID: "b", Status: model.StatusPending, Deadline: at(2025, 6, 4, 12, 0)},
		{ID: "d", Status: model.StatusPending},
		{ID: "e", Status: model.StatusPending},
	}
	b := Classify(tasks, now)
	assert.Equal(t, []model.ID{"a", "b", "c"}, ids(b.Today))
	assert.Equal(t, []model.ID{"b", "c", "d", "e"}, ids(b.Pending))
	assert.Equal(t, []model.ID{"a", "b", "c", "d", "e"}, ids(b.All))
}

func TestClassifyTimeBucketsAreExclusive(t *testing.T) {
	var tasks []model.Task
	start := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*70; h += 7 {
		d := start.Add(time.Duration(h) * time.Hour)
		tasks = append(tasks, model.Task{ID: model.ID(d.Format(time.RFC3339)), Status: model.StatusPending, Deadline: &d})
	}

	b := Classify(tasks, now)
	seen := make(map[model.ID]int)
	for _, bucket := range [][]model.Task{b.PastDue, b.Today, b.ThisWeek, b.NextWeek} {
		for _, task := range bucket {
			seen[task.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "task %s placed %d times", id, n)
	}
	assert.Less(t, len(seen), len(tasks), "deadlines past the window stay out of every time bucket")
	assert.Len(t, b.All, len(tasks))
}

func TestClassifyDeadlineFieldTolerance(t *testing.T) {
	var canonical, misspelled model.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","status":"pending","expiredDate":"2025-06-05T09:00:00Z"}`), &canonical))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","status":"pending","expried_date":"2025-06-05T09:00:00Z"}`), &misspelled))

	assert.Equal(t, Classify([]model.Task{canonical}, now).Counts(), Classify([]model.Task{misspelled}, now).Counts())
	assert.Equal(t, 1, Classify([]model.Task{misspelled}, now).Counts().ThisWeek)
}

func TestClassifyIsIdempotent(t *testing.T) {
	tasks := []model.Task{
		{ID: "2", Status: model.StatusPending, Deadline: at(2025, 6, 6, 9, 0)},
		{ID: "1", Status: model.StatusPending, Deadline: at(2025, 6, 5, 9, 0)},
	}
	first := Classify(tasks, now)
	second := Classify(tasks, now)
	assert.Equal(t, first, second)
	assert.Equal(t, model.ID("2"), tasks[0].ID, "input order is untouched")
}

func TestClassifyDateOnlyDeadlineWestOfUTC(t *testing.T) {
	zone := time.FixedZone("EDT", -4*60*60)
	prev := model.DeadlineLocation
	t.Cleanup(func() { model.DeadlineLocation = prev })
	model.DeadlineLocation = zone

	var task model.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"Due today","status":"pending","expiredDate":"2025-06-04"}`), &task))

	b := Classify([]model.Task{task}, time.Date(2025, 6, 4, 10, 0, 0, 0, zone))
	assert.Equal(t, []model.ID{"1"}, ids(b.Today))
	assert.Empty(t, b.PastDue)
}
