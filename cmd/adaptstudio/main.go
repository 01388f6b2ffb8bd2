// Package main is the entry point for the AdAPT creative studio server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptstudio/config"
	"adaptstudio/internal/app"
	"adaptstudio/internal/logging"

	// Import generator packages to trigger their init() registration
	_ "adaptstudio/internal/providers/gemini"
	_ "adaptstudio/internal/providers/genai"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println("adaptstudio", version)
		os.Exit(0)
	}

	result, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := result.Config

	slog.SetDefault(logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}))
	slog.Info("starting adaptstudio", "version", version)

	application, err := app.New(app.Config{AppConfig: result})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
