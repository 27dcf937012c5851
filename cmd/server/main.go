package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avellaud/pictobank/internal/api"
	"github.com/avellaud/pictobank/internal/app"
	"github.com/avellaud/pictobank/internal/app/maintenance"
	iauth "github.com/avellaud/pictobank/internal/auth"
	"github.com/avellaud/pictobank/internal/database"
	"github.com/avellaud/pictobank/internal/services"
	"github.com/avellaud/pictobank/internal/storage"
	"github.com/avellaud/pictobank/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pictobank: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()
	log := logger.WithModule("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndPrepare(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Options:  cfg.Database.Options,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	mirror, err := storage.NewFilesystemMirror(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("open storage mirror: %w", err)
	}
	if err := mirror.EnsureDir(database.GlobalRootPath); err != nil {
		return fmt.Errorf("materialize global root: %w", err)
	}

	hierarchy, err := services.NewHierarchyService(db, mirror,
		services.WithForbiddenAsset(cfg.Storage.ForbiddenAsset))
	if err != nil {
		return fmt.Errorf("init hierarchy service: %w", err)
	}

	accounts, err := services.NewAccountService(db, hierarchy)
	if err != nil {
		return fmt.Errorf("init account service: %w", err)
	}

	artifacts, err := services.NewArtifactService(db)
	if err != nil {
		return fmt.Errorf("init artifact service: %w", err)
	}

	jwt, err := iauth.NewJWTService(iauth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		repairer, err := maintenance.NewRepairer(db, mirror,
			maintenance.WithSchedule(cfg.Maintenance.Schedule))
		if err != nil {
			return fmt.Errorf("init mirror repairer: %w", err)
		}
		if err := repairer.Start(); err != nil {
			return fmt.Errorf("start mirror repairer: %w", err)
		}
		defer repairer.Stop()

		// Catch up on anything that drifted while the service was down.
		if repaired, err := repairer.RunOnce(ctx); err != nil {
			log.Warn("initial mirror repair incomplete", zap.Error(err))
		} else if repaired > 0 {
			log.Info("initial mirror repair completed", zap.Int("repaired", repaired))
		}
	}

	router := api.NewRouter(api.Deps{
		Config:    cfg,
		DB:        db,
		JWT:       jwt,
		Accounts:  accounts,
		Hierarchy: hierarchy,
		Artifacts: artifacts,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
