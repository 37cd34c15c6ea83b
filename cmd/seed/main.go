package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"caseflow/internal/config"
	"caseflow/internal/db"
	"caseflow/internal/logger"
	"caseflow/internal/model"
	"caseflow/internal/repository"
	"caseflow/internal/service"
)

func main() {
	username := flag.String("username", "", "create a single user instead of the default staff set")
	password := flag.String("password", "", "password for -username")
	fullName := flag.String("full-name", "", "display name for -username")
	role := flag.String("role", string(model.RoleRegistrar), "role for -username")
	team := flag.String("team", "", "optional team for -username")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting seed script")

	// Connect to database
	gormDB, err := db.NewMySQL(cfg.MySQLDSN, db.Options{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	users := service.DefaultUsers
	if *username != "" {
		users = []service.SeedUser{{
			Username: *username,
			Password: *password,
			FullName: *fullName,
			Role:     model.Role(*role),
			Team:     *team,
		}}
	}

	svc := service.NewUserService(repository.NewUserRepository(gormDB), log)
	created, err := svc.SeedUsers(context.Background(), users)
	if err != nil {
		log.Fatal("failed to seed users", zap.Error(err))
	}

	log.Info("seed completed",
		zap.Int("created", len(created)),
		zap.Int("skipped", len(users)-len(created)),
	)
}
