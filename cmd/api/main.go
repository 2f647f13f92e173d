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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/biodivhub/biodiv-api/api/swagger"
	"github.com/biodivhub/biodiv-api/internal/handler"
	"github.com/biodivhub/biodiv-api/internal/middleware"
	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/internal/search"
	"github.com/biodivhub/biodiv-api/internal/service"
	"github.com/biodivhub/biodiv-api/pkg/cache"
	"github.com/biodivhub/biodiv-api/pkg/config"
	"github.com/biodivhub/biodiv-api/pkg/database"
	"github.com/biodivhub/biodiv-api/pkg/jobs"
	"github.com/biodivhub/biodiv-api/pkg/logger"
	corsmiddleware "github.com/biodivhub/biodiv-api/pkg/middleware/cors"
	reqidmiddleware "github.com/biodivhub/biodiv-api/pkg/middleware/requestid"
	"github.com/biodivhub/biodiv-api/pkg/storage"
)

// @title BiodivHub API
// @version 1.0.0
// @description Biodiversity data management API: occurrence submissions, attachment security review, region associations and funding sources.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ruleSearch, err := search.NewSecurityRuleSearch(cfg.Search, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build security rule search client", "error", err)
	}

	submissionStorage, err := storage.NewLocalStorage(cfg.Submissions.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare submission storage", "error", err)
	}
	attachmentStorage, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	// Repositories.
	submissionRepo := repository.NewSubmissionRepository(db, logr)
	attachmentRepo := repository.NewAttachmentRepository(db, logr)
	securityRepo := repository.NewSecurityRepository(db, logr)
	regionRepo := repository.NewRegionRepository(db, logr)
	fundingRepo := repository.NewFundingSourceRepository(db, logr)
	userRepo := repository.NewUserRepository(db, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "biodiv-api",
	})

	submissionSvc := service.NewSubmissionService(db, submissionRepo, submissionStorage, nil, metricsSvc, logr, cfg.Attachments.MaxFileSizeBytes)

	validateQueue := jobs.NewQueue("submission-validate", func(ctx context.Context, job jobs.Job) error {
		id, ok := job.Payload.(int64)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		return submissionSvc.ProcessSubmission(ctx, id)
	}, jobs.QueueConfig{
		Workers:    cfg.Submissions.WorkerConcurrency,
		BufferSize: cfg.Submissions.QueueBuffer,
		MaxRetries: cfg.Submissions.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	submissionSvc.SetQueue(validateQueue)

	securitySvc := service.NewSecurityService(db, attachmentRepo, securityRepo, ruleSearch, cacheRepo, userRepo, metricsSvc, logr, service.SecurityServiceConfig{
		CacheEnabled: cfg.Security.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Security.CacheTTL,
	})
	regionSvc := service.NewRegionService(db, regionRepo, cacheRepo, logr, cfg.Security.CacheTTL)
	fundingSvc := service.NewFundingSourceService(fundingRepo, logr)
	attachmentSvc := service.NewAttachmentService(attachmentRepo, securityRepo, attachmentStorage, signer, logr, cfg.Attachments.MaxFileSizeBytes)
	exportSvc := service.NewExportService(submissionRepo, attachmentRepo, securityRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, exportSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc, exportSvc)
	securityHandler := handler.NewSecurityHandler(securitySvc)
	regionHandler := handler.NewRegionHandler(regionSvc)
	fundingHandler := handler.NewFundingSourceHandler(fundingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	adminRoles := middleware.RequireRoles(models.RoleSystemAdmin, models.RoleDataAdmin)
	anyRole := middleware.RequireRoles(models.RoleSystemAdmin, models.RoleDataAdmin, models.RoleBiologist)

	surveys := api.Group("/projects/:projectId/surveys/:surveyId")
	{
		surveys.POST("/submissions", anyRole, submissionHandler.Upload)
		surveys.GET("/summary/submission", anyRole, submissionHandler.SummarySubmission)
		surveys.POST("/attachments", anyRole, attachmentHandler.Upload)
		surveys.GET("/attachments", anyRole, attachmentHandler.List)
		surveys.GET("/attachments/:attachmentId/download", anyRole, attachmentHandler.SignDownload)
		if cfg.Exports.Enabled {
			surveys.GET("/security/export", adminRoles, attachmentHandler.ExportSecuritySummary)
		}

		attachmentSecurity := surveys.Group("/attachments/:attachmentId/security")
		attachmentSecurity.Use(adminRoles)
		{
			attachmentSecurity.PUT("/apply", middleware.Audit(userRepo, logr, models.AuditActionApplySecurity, "attachment_security"), securityHandler.Apply)
			attachmentSecurity.DELETE("", middleware.Audit(userRepo, logr, models.AuditActionRemoveSecurity, "attachment_security"), securityHandler.Remove)
			attachmentSecurity.GET("/reasons", securityHandler.Reasons)
		}

		surveys.PUT("/regions", adminRoles, regionHandler.ReplaceSurveyRegions)
		surveys.GET("/regions", anyRole, regionHandler.ListSurveyRegions)
	}

	submissions := api.Group("/submissions/:submissionId")
	{
		submissions.POST("/errors", anyRole, submissionHandler.RecordError)
		submissions.POST("/status", anyRole, submissionHandler.RecordStatusAndMessage)
		submissions.GET("/status/latest", anyRole, submissionHandler.LatestStatus)
		if cfg.Exports.Enabled {
			submissions.GET("/errors/export", anyRole, submissionHandler.ExportMessages)
		}
	}

	api.GET("/security-rules", anyRole, securityHandler.Rules)
	api.GET("/attachments/download", attachmentHandler.Download)

	api.POST("/regions/search", anyRole, regionHandler.Search)
	api.PUT("/projects/:projectId/regions", adminRoles, regionHandler.ReplaceProjectRegions)
	api.GET("/projects/:projectId/regions", anyRole, regionHandler.ListProjectRegions)

	fundingSources := api.Group("/funding-sources")
	{
		fundingSources.GET("", anyRole, fundingHandler.List)
		fundingSources.GET("/:id", anyRole, fundingHandler.Get)
		fundingSources.POST("", adminRoles, fundingHandler.Create)
		fundingSources.PUT("/:id", adminRoles, fundingHandler.Update)
		fundingSources.DELETE("/:id", middleware.RequireRoles(models.RoleSystemAdmin), fundingHandler.Delete)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validateQueue.Start(rootCtx)
	defer validateQueue.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
