package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/logging"
	"sitewatch/internal/output"
	"sitewatch/ui/console"
	"sitewatch/ui/export"
	"sitewatch/ui/tui"
)

type options struct {
	configPath string
	once       bool
	exportPath string
	logFile    string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.BoolVar(&opts.once, "once", false, "print one console report and exit")
	flag.StringVar(&opts.exportPath, "export", "", "write one pass as an .xlsx workbook and exit")
	flag.StringVar(&opts.logFile, "log", "", "write logs to this file (the dashboard owns the terminal)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.logFile == "" {
		opts.logFile = cfg.Log.File
	}
	oneShot := opts.once || opts.exportPath != ""

	logger := zap.NewNop()
	switch {
	case opts.logFile != "":
		logger, err = logging.NewLoggerTo(cfg.Log.Level, cfg.Log.Format, "sitewatch", opts.logFile)
	case oneShot:
		logger, err = logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "sitewatch")
	}
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	stores, err := database.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close(ctx)

	worker, err := database.NewWorkerFromConfig(ctx, cfg, stores, logger)
	if err != nil {
		return err
	}
	defer worker.Stop()

	if oneShot {
		if err := worker.PullOnce(ctx); err != nil {
			return err
		}
		p := worker.Latest()
		if opts.exportPath != "" {
			if err := export.WriteFile(opts.exportPath, p); err != nil {
				return err
			}
			logger.Info("workbook written", zap.String("path", opts.exportPath), zap.String("run_id", p.RunID))
		}
		if opts.once {
			console.Print(os.Stdout, output.BuildDashboard(p, output.SmartFilter{}))
		}
		return nil
	}

	// The dashboard drives passes itself; the worker loop stays idle.
	return tui.Start(worker, worker.Interval(), logger)
}
