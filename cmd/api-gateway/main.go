package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/bbifather/student-orders-api/internal/handler"
	"github.com/bbifather/student-orders-api/internal/middleware"
	"github.com/bbifather/student-orders-api/internal/notify"
	"github.com/bbifather/student-orders-api/internal/repository"
	"github.com/bbifather/student-orders-api/internal/service"
	"github.com/bbifather/student-orders-api/pkg/cache"
	"github.com/bbifather/student-orders-api/pkg/config"
	"github.com/bbifather/student-orders-api/pkg/database"
	"github.com/bbifather/student-orders-api/pkg/export"
	"github.com/bbifather/student-orders-api/pkg/logger"
	corsmiddleware "github.com/bbifather/student-orders-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bbifather/student-orders-api/pkg/middleware/requestid"
	"github.com/bbifather/student-orders-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	store, err := storage.NewOrderStore(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	metricsSvc := service.NewMetricsService()

	var sender notify.Sender
	if cfg.Telegram.BotToken != "" {
		api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint,
			notify.NewAPIClient(cfg.Notifications.SendTimeout))
		if err != nil {
			logr.Sugar().Warnw("telegram api unavailable, falling back to log sender", "error", err)
			sender = notify.NewLogSender(logr)
		} else {
			sender = notify.NewTelegramSender(api, cfg.Telegram.WebAppURL)
		}
	} else {
		logr.Sugar().Warnw("telegram bot token not configured, notifications go to the log")
		sender = notify.NewLogSender(logr)
	}

	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		AdminChatID:          cfg.Telegram.AdminChatID,
		ExtraAdminChatIDs:    cfg.Telegram.ExtraAdminChatIDs,
		SpecialSubjectName:   cfg.Telegram.SpecialSubjectName,
		SpecialSubjectChatID: cfg.Telegram.SpecialSubjectChatID,
		Workers:              cfg.Notifications.Workers,
		BufferSize:           cfg.Notifications.BufferSize,
		MaxRetries:           cfg.Notifications.MaxRetries,
		RetryDelay:           cfg.Notifications.RetryDelay,
		SendTimeout:          cfg.Notifications.SendTimeout,
	}, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	validate := validator.New()

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, redisClient, cfg.Subjects.CacheTTL, logr)
	orderSvc := service.NewOrderService(orderRepo, studentRepo, subjectRepo, dispatcher, store, export.NewDeliverableGenerator(), validate, logr, service.OrderServiceConfig{
		DedupWindow:        cfg.Orders.DedupWindow,
		CustomSubjectName:  cfg.Orders.CustomSubjectName,
		MaxFileSizeBytes:   cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions:  cfg.Uploads.AllowedExtensions,
		RecompleteOnAttach: cfg.Uploads.RecompleteOnAttach,
	})

	if err := subjectSvc.Seed(ctx, service.DefaultSubjects); err != nil {
		logr.Sugar().Warnw("subject seeding failed", "error", err)
	}

	studentHandler := handler.NewStudentHandler(studentSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	orderHandler := handler.NewOrderHandler(orderSvc, metricsSvc, logr)
	notificationHandler := handler.NewNotificationHandler(dispatcher)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	// The bot posts here without the API prefix.
	r.POST("/save-chat-id", studentHandler.SaveChatID)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/students", studentHandler.List)
		api.POST("/save-chat-id", studentHandler.SaveChatID)

		api.GET("/subjects", subjectHandler.List)
		api.GET("/subjects/:id", subjectHandler.Get)

		api.GET("/orders", orderHandler.List)
		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/:id", orderHandler.Get)
		api.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
		api.PATCH("/orders/:id/price", orderHandler.UpdatePrice)
		api.PATCH("/orders/:id/paid", orderHandler.MarkPaid)
		api.POST("/orders/:id/files", orderHandler.AttachFiles)
		api.GET("/orders/:id/download/:filename", orderHandler.Download)
		api.GET("/orders/:id/download-all", orderHandler.DownloadAll)
		api.POST("/orders/:id/payment-notification", orderHandler.NotifyPayment)
		api.POST("/orders/:id/request-revision", orderHandler.RequestRevision)

		api.POST("/send-files-to-telegram", orderHandler.SendFilesToTelegram)
		api.POST("/test-notification", notificationHandler.Test)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("shutdown incomplete", "error", err)
	}
}
