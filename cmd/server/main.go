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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"caseflow/docs"
	"caseflow/internal/auth"
	"caseflow/internal/cache"
	"caseflow/internal/config"
	"caseflow/internal/db"
	"caseflow/internal/handler"
	"caseflow/internal/logger"
	"caseflow/internal/metrics"
	"caseflow/internal/model"
	"caseflow/internal/repository"
	"caseflow/internal/router"
	"caseflow/internal/service"
)

// @title Caseflow API
// @version 1.0
// @description Administrative case submission and workflow routing.
// @host localhost:8001
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal("database init", zap.Error(err))
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Warn("RESET_DB=true detected, dropping all tables")
		for _, table := range []interface{}{&model.WorkflowEvent{}, &model.Case{}, &model.CaseSequence{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Warn("drop table", zap.Error(err))
			}
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn("redis unreachable, running without cache and token revocation", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repositories
	caseRepo := repository.NewCaseRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, log)
	userService := service.NewUserService(userRepo, log)
	caseService := service.NewCaseService(caseRepo, userRepo, cacheClient, m, log, service.Options{
		StoreTimeout:   cfg.StoreTimeout,
		MaxActAttempts: cfg.ActMaxAttempts,
		StatsCacheTTL:  cfg.CaseCacheTTL,
	})

	if cfg.SeedDefaultUsers {
		if _, err := userService.SeedUsers(ctx, service.DefaultUsers); err != nil {
			log.Fatal("seed default users", zap.Error(err))
		}
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService),
		CaseHandler: handler.NewCaseHandler(caseService),
		UserHandler: handler.NewUserHandler(caseService),
		JWTService:  jwtService,
		TokenStore:  tokenStore,
		Users:       userRepo,
		Gatherer:    reg,
		Logger:      log,
	})

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("swagger", "http://localhost"+addr+"/swagger/index.html"))
		errCh <- e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
}
