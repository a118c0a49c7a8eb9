package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/app"
	"github.com/ironsheep/gabarito-omr/internal/config"
	"github.com/ironsheep/gabarito-omr/internal/logging"
	"github.com/ironsheep/gabarito-omr/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("gabarito-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("gabarito-mcp - MCP server for answer-sheet correction")
			fmt.Println()
			fmt.Println("Usage: gabarito-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  GABARITO_LOG_LEVEL=debug         Enable debug logging")
			fmt.Println("  GABARITO_ENGINE=native|opencv    Vision engine")
			fmt.Println("  GABARITO_REDIS_URL               Store answer keys in Redis")
			fmt.Println("  GABARITO_DATABASE_URL            Store results in PostgreSQL")
			fmt.Println("  GABARITO_OCR_ENABLED=true        Read the student header")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Log to stderr; stdout is for MCP protocol
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Output: os.Stderr})
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("Gabarito MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer a.Close()

	srv := server.New(a.Service, logger)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("Server error")
		a.Close()
		os.Exit(1)
	}
}
