package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/noah-isme/visit-intake-api/api/swagger"
	"github.com/noah-isme/visit-intake-api/internal/handler"
	internalmiddleware "github.com/noah-isme/visit-intake-api/internal/middleware"
	"github.com/noah-isme/visit-intake-api/internal/repository"
	"github.com/noah-isme/visit-intake-api/internal/service"
	"github.com/noah-isme/visit-intake-api/pkg/cache"
	"github.com/noah-isme/visit-intake-api/pkg/config"
	"github.com/noah-isme/visit-intake-api/pkg/database"
	"github.com/noah-isme/visit-intake-api/pkg/jobs"
	"github.com/noah-isme/visit-intake-api/pkg/logger"
	"github.com/noah-isme/visit-intake-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/visit-intake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/visit-intake-api/pkg/middleware/requestid"
	"github.com/noah-isme/visit-intake-api/pkg/scheduler"
	"github.com/noah-isme/visit-intake-api/pkg/storage"
)

// @title Visit & Internship Intake API
// @version 1.0.0
// @description Slot-limited visit booking and internship applications with admin review.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	availabilityCache := newAvailabilityCache(ctx, cfg, metrics, logr)

	store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("document storage unavailable", "error", err, "dir", cfg.Documents.StorageDir)
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	validate := validator.New()
	visitRepo := repository.NewVisitRepository(db)
	internshipRepo := repository.NewInternshipRepository(db)

	documents := service.NewDocumentService(store, cfg.Documents.MaxFileSizeBytes, metrics, logr)
	removalQueue := jobs.NewQueue("document-removal", documents.HandleRemovalJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: time.Minute,
		JobTimeout: 10 * time.Second,
		Logger:     logr,
	})
	documents.UseRemovalQueue(removalQueue)

	mailer := service.NewDecisionMailer(mail.NewSender(cfg.Mail, logr), signer, cfg.Documents.PublicBaseURL, logr)
	mailQueue := jobs.NewQueue("decision-mail", mailer.Handle, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		RetryDelay: 30 * time.Second,
		JobTimeout: 30 * time.Second,
		Logger:     logr,
	})
	mailer.UseQueue(mailQueue)

	hub := service.NewNotificationHub(cfg.Notifications.SubscriberBuffer, metrics, logr)
	policy := service.NewAdmissionPolicy(cfg.Booking.SlotCapacity, cfg.Location())
	ledger := service.NewSlotLedger(visitRepo, policy, availabilityCache, logr)

	visitSvc := service.NewVisitService(visitRepo, ledger, documents, validate, logr,
		service.WithVisitNotifications(hub),
		service.WithVisitMailer(mailer),
		service.WithVisitSigner(signer),
		service.WithVisitMetrics(metrics),
	)
	internshipSvc := service.NewInternshipService(internshipRepo, documents, validate, logr,
		service.WithInternshipNotifications(hub),
		service.WithInternshipMailer(mailer),
		service.WithInternshipMetrics(metrics),
	)
	statusSvc := service.NewStatusService(visitSvc, internshipSvc, validate)
	reportingSvc := service.NewReportingService(visitRepo, internshipRepo, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	if err := hub.Load(ctx, visitSvc.PendingNotifications, internshipSvc.PendingNotifications); err != nil {
		logr.Sugar().Warnw("failed to preload pending notifications", "error", err)
	}

	removalQueue.Start(ctx)
	mailQueue.Start(ctx)

	jobsScheduler := scheduler.New(cfg.Location(), logr)
	if cfg.Documents.SweepEnabled {
		sweeper := service.NewDocumentSweeper(store, cfg.Documents.SweepGrace, logr, visitRepo, internshipRepo)
		if err := jobsScheduler.Register(cfg.Documents.SweepSchedule, "document-sweep", sweeper.Run); err != nil {
			logr.Sugar().Fatalw("invalid sweep schedule", "error", err, "schedule", cfg.Documents.SweepSchedule)
		}
	}
	jobsScheduler.Start()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes := handler.Routes{
		Visits:        handler.NewVisitHandler(visitSvc),
		Internships:   handler.NewInternshipHandler(internshipSvc),
		Status:        handler.NewStatusHandler(statusSvc),
		Reports:       handler.NewReportHandler(reportingSvc),
		Notifications: handler.NewNotificationHandler(hub, cfg.Notifications.KeepAlive),
		Authenticate:  internalmiddleware.JWT(authSvc),
	}
	if cfg.RateLimit.Enabled {
		limiter := internalmiddleware.NewRateLimiter(internalmiddleware.RateLimiterConfig{
			Rate:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:   cfg.RateLimit.Burst,
			IdleTTL: cfg.RateLimit.IdleTTL,
		}, logr)
		routes.Throttle = limiter.RateLimit()
	}
	routes.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	// Streams never finish on their own; closing the hub ends them before Shutdown waits.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	jobsScheduler.Stop(shutdownCtx)
	mailQueue.Stop()
	removalQueue.Stop()
}

func newAvailabilityCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.AvailabilityCache {
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			return service.NewAvailabilityCache(repository.NewCacheRepository(client, logr), metrics, cfg.Booking.CacheTTL, logr)
		}
		logr.Sugar().Warnw("redis unavailable, using in-process cache", "error", err)
	}
	return service.NewAvailabilityCache(repository.NewMemoryCacheRepository(cfg.Booking.CacheTTL), metrics, cfg.Booking.CacheTTL, logr)
}
