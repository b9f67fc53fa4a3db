package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"pinbot/clients/discord"
	"pinbot/config"
	"pinbot/core/log"
	"pinbot/handlers"
	"pinbot/services/identity"
	"pinbot/usecases/pins"
	"pinbot/utils"
)

type Options struct {
	Config     string `long:"config" default:"config.json" description:"Path to the JSON config file"`
	LogLevel   string `long:"log-level" description:"Log level (debug, info, warn, error), overrides the config file"`
	HealthAddr string `long:"health-addr" description:"Address for the health endpoint, e.g. :8080 (disabled when empty)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.HealthAddr != "" {
		cfg.HealthAddr = opts.HealthAddr
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	shardLock, err := utils.NewShardLock(cfg.LockDir, discord.ShardID)
	if err != nil {
		return err
	}
	if err := shardLock.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := shardLock.Unlock(); err != nil {
			log.Warn("⚠️ Failed to release shard lock", "path", shardLock.LockPath(), "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return err
	}

	discordClient := discord.NewDiscordClient(session)
	gatewayClient := discord.NewGatewayClient(session)
	identityService := identity.NewIdentityService()
	pinsUseCase := pins.NewPinsUseCase(discordClient)
	gatewayEventsHandler := handlers.NewGatewayEventsHandler(
		gatewayClient,
		discordClient,
		pinsUseCase,
		identityService,
		cfg.CleanupWorkers,
	)

	if cfg.HealthAddr != "" {
		server := startHealthServer(cfg.HealthAddr, identityService)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("⚠️ Failed to shut down health server", "error", err)
			}
		}()
	}

	if err := gatewayClient.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := gatewayClient.Close(); err != nil {
			log.Warn("⚠️ Failed to close gateway connection", "error", err)
		}
	}()

	log.Info("🤖 Pin bot is now running and listening for events")

	err = gatewayEventsHandler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("🔌 Shutdown signal received, stopping")
		return nil
	}
	return err
}

func startHealthServer(addr string, identityService *identity.IdentityService) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handlers.NewHealthHandler(identityService).NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("🩺 Health endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("❌ Health server failed", "error", err)
		}
	}()

	return server
}
