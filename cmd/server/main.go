package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/livechat/internal/coordinator"
	"github.com/Tyrowin/livechat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	config, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	policy, err := coordinator.ParseRenamePolicy(config.RenamePolicy)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	coord := coordinator.New(log, coordinator.Options{
		InboxSize:    config.InboxSize,
		RenamePolicy: policy,
	})
	go coord.Run()

	gateway := server.New(*config, log, coord)
	httpServer := server.CreateServer(config.Addr(), gateway.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(log, httpServer); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		_ = gateway.Shutdown(config.ShutdownTimeout)
		return err
	}

	if err := server.ShutdownServer(log, httpServer, config.ShutdownTimeout); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := gateway.Shutdown(config.ShutdownTimeout); err != nil {
		log.Warn("Gateway shutdown incomplete", "error", err)
	}
	log.Info("Server stopped cleanly")
	return nil
}
