// Command sitewatch-mcp serves the evaluation tools over MCP stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/logging"
	"sitewatch/internal/mcpserver"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to stderr or a file.
	var logger *zap.Logger
	if cfg.Log.File != "" {
		logger, err = logging.NewLoggerTo(cfg.Log.Level, cfg.Log.Format, "sitewatch-mcp", cfg.Log.File)
	} else {
		logger, err = logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "sitewatch-mcp")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := database.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	worker, err := database.NewWorkerFromConfig(ctx, cfg, stores, logger)
	if err != nil {
		return err
	}
	if err := worker.PullOnce(ctx); err != nil {
		return fmt.Errorf("initial pass: %w", err)
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:    cfg.MCP.Name,
		ServerVersion: cfg.MCP.Version,
		GeminiAPIKey:  cfg.Gemini.APIKey,
		GeminiModel:   cfg.Gemini.Model,
		Risk:          cfg.FlaggerConfig(),
	}, worker, stores.Index, stores.Graph, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	logger.Info("mcp server listening on stdio",
		zap.String("name", cfg.MCP.Name),
		zap.Bool("graph", cfg.GraphEnabled()),
		zap.Bool("ask", cfg.AskEnabled()),
	)

	// The server returns when stdin closes; that ends the worker too.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		worker.Stop()
		return nil
	})
	g.Go(func() error {
		err := server.Start(gctx)
		if err != nil && gctx.Err() == nil {
			return err
		}
		return context.Canceled
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
