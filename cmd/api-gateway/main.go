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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/opuscenter/tutor-center-api/api/swagger"
	"github.com/opuscenter/tutor-center-api/internal/handler"
	"github.com/opuscenter/tutor-center-api/internal/middleware"
	"github.com/opuscenter/tutor-center-api/internal/models"
	"github.com/opuscenter/tutor-center-api/internal/repository"
	"github.com/opuscenter/tutor-center-api/internal/scheduler"
	"github.com/opuscenter/tutor-center-api/internal/service"
	"github.com/opuscenter/tutor-center-api/pkg/cache"
	"github.com/opuscenter/tutor-center-api/pkg/config"
	"github.com/opuscenter/tutor-center-api/pkg/database"
	"github.com/opuscenter/tutor-center-api/pkg/line"
	"github.com/opuscenter/tutor-center-api/pkg/logger"
	corsmiddleware "github.com/opuscenter/tutor-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opuscenter/tutor-center-api/pkg/middleware/requestid"
)

// @title Tutor Center API
// @version 0.1.0
// @description Back-office API for course booking, attendance and parent reminders
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	lineClient, err := line.New(cfg.Line, logr)
	if err != nil {
		logr.Fatal("failed to init line client", zap.Error(err))
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)

	metrics := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	conflictService := service.NewConflictService(bookingRepo, validate, logr)
	bookingService := service.NewBookingService(bookingRepo, conflictService, validate, logr)
	guardianService := service.NewGuardianService(guardianRepo, logr)

	notifier := service.NewStaffNotifier(userRepo, teacherRepo, lineClient, cfg.Notify, logr)
	confirmationService := service.NewConfirmationService(bookingService, guardianRepo, bookingRepo, notifier, logr)

	runLock := service.NewRedisRunLock(redisClient)
	reminderService := service.NewReminderService(bookingRepo, guardianRepo, lineClient, runLock, cfg.Reminder, logr)

	authHandler := handler.NewAuthHandler(authService)
	bookingHandler := handler.NewBookingHandler(bookingService, conflictService, metrics)
	guardianHandler := handler.NewGuardianHandler(guardianService)
	reminderHandler := handler.NewReminderHandler(reminderService, metrics)
	webhookHandler := handler.NewWebhookHandler(lineClient, lineClient, confirmationService, metrics, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/line/webhook", webhookHandler.Handle)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		protected := api.Group("")
		protected.Use(middleware.JWT(authService))
		{
			protected.GET("/auth/me", authHandler.Me)

			staff := protected.Group("")
			staff.Use(middleware.RBAC(models.RoleAdmin, models.RoleRegistrar))
			{
				staff.PATCH("/bookings/:id", bookingHandler.Update)
				staff.POST("/bookings/check-conflicts", bookingHandler.CheckConflicts)
				staff.POST("/guardians/:id/line-identity", guardianHandler.BindLineIdentity)
				staff.POST("/reminders/run", reminderHandler.Run)
				staff.POST("/reminders/test", reminderHandler.SendTest)
			}

			protected.GET("/bookings/day-sheet", bookingHandler.DaySheet)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	sched := scheduler.New(reminderService, metrics, cfg.Reminder, logr)
	sched.Start(ctx)
	defer sched.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
