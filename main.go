package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/adapter/choiceview"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/logging"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/policy"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/prompts"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/repository"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
	handler "github.com/RadishSystems/choiceview-webapi-demo/internal/transport/http"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "visualivr: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting visual IVR",
		zap.Int("external_port", cfg.HTTPPort),
		zap.Int("internal_port", cfg.InternalPort),
		zap.String("public_url", cfg.PublicURL),
		zap.String("choiceview_url", cfg.ChoiceViewURL),
		zap.String("database", cfg.DatabaseURL))

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		b, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("failed to read policy file: %w", err)
		}
		policyContent = string(b)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent, cfg.EndButton)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Load prompts
	catalog := prompts.Default()
	if cfg.PromptsFile != "" {
		if catalog, err = prompts.Load(cfg.PromptsFile); err != nil {
			return fmt.Errorf("failed to load prompts: %w", err)
		}
	}
	catalog.BindEndButton(cfg.EndButton)

	// Initialize service
	client := choiceview.NewClient(cfg.ChoiceViewURL, cfg.ChoiceViewUsername, cfg.ChoiceViewPassword, cfg.RequestTimeout)
	bridge := signalbridge.New(logger.Named("signals"))
	svc := service.New(db, client, bridge, policyEngine, catalog, cfg, logger.Named("call"))

	// Voice gateway
	gateway := ws.NewServer(cfg, ws.NewHub(logger.Named("hub")), svc, logger.Named("gateway"))

	externalServer := handler.NewExternalServer(svc, logger.Named("external"))
	internalServer := handler.NewInternalServer(svc, gateway, logger.Named("internal"))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("external API started", zap.String("addr", addr))
		if err := externalServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("external server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		logger.Info("internal API started", zap.String("addr", addr))
		if err := internalServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := internalServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown internal server gracefully", zap.Error(err))
		}
		// Running calls finish their cleanup while signals can still arrive.
		gateway.Close()
		if err := externalServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown external server gracefully", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("visual IVR stopped")
	return nil
}
