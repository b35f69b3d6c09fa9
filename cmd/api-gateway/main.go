package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bloodconnect/bloodconnect-api/api/swagger"
	"github.com/bloodconnect/bloodconnect-api/internal/handler"
	"github.com/bloodconnect/bloodconnect-api/internal/locator"
	"github.com/bloodconnect/bloodconnect-api/internal/middleware"
	"github.com/bloodconnect/bloodconnect-api/internal/repository"
	"github.com/bloodconnect/bloodconnect-api/internal/service"
	"github.com/bloodconnect/bloodconnect-api/pkg/cache"
	"github.com/bloodconnect/bloodconnect-api/pkg/config"
	"github.com/bloodconnect/bloodconnect-api/pkg/database"
	"github.com/bloodconnect/bloodconnect-api/pkg/logger"
	"github.com/bloodconnect/bloodconnect-api/pkg/mail"
	corsmiddleware "github.com/bloodconnect/bloodconnect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bloodconnect/bloodconnect-api/pkg/middleware/requestid"
)

// @title BloodConnect API
// @version 1.0.0
// @description Blood donor matching and request resolution backend
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	otpRepo := repository.NewOTPRepository(redisClient, cfg.OTP.TTL)
	facilityRepo := repository.NewFacilityRepository(cfg.Facilities.DatasetPath)

	// Services.
	sender := mail.NewMailjetSender(cfg.Mail, logr)
	metricsSvc := service.NewMetricsService()

	notifier := service.NewNotificationService(sender, metricsSvc, logr,
		cfg.Mail.PublicBaseURL, cfg.Notifications.Workers, cfg.Notifications.BufferSize)
	notifier.Start(ctx)
	defer notifier.Stop()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	otpSvc := service.NewOTPService(otpRepo, sender, nil, logr)
	donorSvc := service.NewDonorService(donorRepo, userRepo, metricsSvc, nil, logr)
	requestSvc := service.NewRequestService(requestRepo, donorRepo, notifier, metricsSvc, nil, logr)

	sources := make([]locator.Source, 0, len(cfg.Facilities.SourceURLs))
	for i, url := range cfg.Facilities.SourceURLs {
		name := fmt.Sprintf("source-%d", i+1)
		sources = append(sources, locator.NewHTTPSource(name, url, cfg.Facilities.FetchTimeout))
	}
	var facilitySvc *service.FacilityService
	if cfg.Facilities.CacheEnabled {
		facilityCache := repository.NewCacheRepository(redisClient, logr)
		facilitySvc = service.NewFacilityService(facilityRepo, sources, facilityCache,
			cfg.Facilities.CacheTTL, nil, logr)
	} else {
		facilitySvc = service.NewFacilityService(facilityRepo, sources, nil,
			cfg.Facilities.CacheTTL, nil, logr)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, otpSvc)
	donorHandler := handler.NewDonorHandler(donorSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	facilityHandler := handler.NewFacilityHandler(facilitySvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/otp/send", authHandler.SendOTP)
		auth.POST("/otp/verify", authHandler.VerifyOTP)
	}

	donors := api.Group("/donors")
	{
		donors.GET("", donorHandler.List)
		donors.GET("/export", donorHandler.Export)
		donors.POST("", middleware.JWT(authSvc), donorHandler.Register)
	}

	profile := api.Group("/profile", middleware.JWT(authSvc))
	{
		profile.GET("", donorHandler.GetProfile)
		profile.PUT("", donorHandler.UpdateProfile)
	}

	requests := api.Group("/requests")
	{
		requests.POST("", requestHandler.Create)
		requests.GET("/pending", requestHandler.PendingForDonor)
		requests.GET("/mine", requestHandler.Mine)
		requests.GET("/:id/respond", requestHandler.RespondViaLink)
		requests.GET("/:id/donor", requestHandler.AcceptedDonor)
		requests.PUT("/:id", requestHandler.Resolve)
	}

	bloodbanks := api.Group("/bloodbanks")
	{
		bloodbanks.POST("", facilityHandler.ByCity)
		bloodbanks.GET("/nearby", facilityHandler.Nearby)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
