package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"task-dashboard/internal/apiclient"
	"task-dashboard/internal/bot"
	"task-dashboard/internal/config"
	"task-dashboard/internal/handler"
	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/repository"
	"task-dashboard/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.ErrorLog(ctx, "config: %v", err)
		os.Exit(1)
	}
	if err := logger.InitLogging(cfg.LogFilePath, cfg.LogLevel); err != nil {
		logger.ErrorLog(ctx, "logging: %v", err)
		os.Exit(1)
	}

	model.DeadlineLocation = cfg.Timezone

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.ErrorLog(ctx, "db: %v", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	client := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.APITimeout), apiclient.WithToken(cfg.APIToken))
	login := func(ctx context.Context) error {
		if cfg.APIEmail == "" || cfg.APIPassword == "" {
			return nil
		}
		_, err := client.Login(ctx, cfg.APIEmail, cfg.APIPassword, cfg.APIAdminLogin)
		return err
	}
	if cfg.APIToken == "" {
		if err := login(ctx); err != nil {
			logger.ErrorLog(ctx, "api login: %v", err)
			os.Exit(1)
		}
	}

	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)

	taskSvc := service.NewTaskService(client, taskRepo)
	categorySvc := service.NewCategoryService(client, categoryRepo)
	notificationSvc := service.NewNotificationService(taskSvc)
	syncSvc := service.NewSyncService(taskSvc, categorySvc, notificationSvc, cfg.Timezone)

	sync := func(ctx context.Context) error {
		err := syncSvc.Sync(ctx)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			logger.WarnLog(ctx, "api token rejected, logging in again")
			if loginErr := login(ctx); loginErr != nil {
				return errors.Join(err, loginErr)
			}
			return syncSvc.Sync(ctx)
		}
		return err
	}

	scheduler := service.NewSchedulerService(ctx, cfg.Timezone)
	scheduler.RunNow("sync", sync)
	if _, err := scheduler.ScheduleInterval("sync", cfg.RefreshInterval, sync); err != nil {
		logger.ErrorLog(ctx, "schedule sync: %v", err)
		os.Exit(1)
	}
	// Buckets shift at midnight and on Mondays even when no task changed.
	if _, err := scheduler.ScheduleInterval("buckets", time.Minute, syncSvc.RecomputeNotifications); err != nil {
		logger.ErrorLog(ctx, "schedule buckets: %v", err)
		os.Exit(1)
	}

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, taskSvc, categorySvc, notificationSvc, subscriberRepo, cfg)
		if err != nil {
			logger.ErrorLog(ctx, "bot: %v", err)
			os.Exit(1)
		}
		if cfg.DigestTime != "" {
			_, err = scheduler.ScheduleDaily("digest", cfg.DigestTime, telegramBot.SendDigests)
		} else {
			_, err = scheduler.ScheduleInterval("digest", cfg.ReportInterval, telegramBot.SendDigests)
		}
		if err != nil {
			logger.ErrorLog(ctx, "schedule digest: %v", err)
			os.Exit(1)
		}
	} else {
		logger.InfoLog(ctx, "TELEGRAM_TOKEN not set, bot disabled")
	}

	scheduler.Start()
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	handler.RegisterMiddlewares(e)
	handler.RegisterRoutes(e,
		handler.NewTaskHandler(taskSvc, notificationSvc, syncSvc, cfg.DefaultPageSize),
		handler.NewCategoryHandler(categorySvc),
		handler.NewAnalyticsHandler(service.NewAnalyticsService(client)),
	)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLog(ctx, "http server: %v", err)
			stop()
		}
	}()

	if telegramBot != nil {
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorLog(ctx, "bot stopped with error: %v", err)
			}
		}()
	}

	logger.InfoLog(ctx, "task dashboard started on %s", cfg.HTTPAddr)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLog(shutdownCtx, "http shutdown: %v", err)
	}
	logger.InfoLog(shutdownCtx, "shutdown complete")
}
