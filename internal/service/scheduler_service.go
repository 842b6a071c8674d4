package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"task-dashboard/internal/logger"
)

// Job is a scheduled unit of work. Errors are logged, never fatal.
type Job func(ctx context.Context) error

// SchedulerService wraps cron-based jobs. A job still running when its next
// tick fires is skipped for that tick.
type SchedulerService struct {
	ctx  context.Context
	cron *cron.Cron
}

func NewSchedulerService(ctx context.Context, loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{ctx: ctx}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &SchedulerService{ctx: ctx, cron: c}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(name, timeStr string, job Job) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(name string, interval time.Duration, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// RunNow executes job synchronously with the same logging as scheduled runs.
func (s *SchedulerService) RunNow(name string, job Job) {
	s.wrap(name, job)()
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) wrap(name string, job Job) func() {
	return func() {
		ctx := logger.WithFields(s.ctx, "job", name)
		start := time.Now()
		if err := job(ctx); err != nil {
			logger.ErrorLog(ctx, "job %s failed after %s: %v", name, time.Since(start), err)
			return
		}
		logger.DebugLog(ctx, "job %s finished in %s", name, time.Since(start))
	}
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.DebugLog(l.ctx, "cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorLog(l.ctx, "cron: %s: %v %v", msg, err, keysAndValues)
}
