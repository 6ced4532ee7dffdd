// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command atlas builds and serves project dependency graphs.
//
// Usage:
//
//	atlas serve --config atlas.yaml --root /path/to/project
//	atlas scan /path/to/project --output graph.json
//	atlas snapshots list --db /var/lib/atlas
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/AleutianAtlas/services/atlas"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/config"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/graph"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/storage/badger"
)

var (
	flagConfig string
	flagRoot   string
	flagOutput string
	flagDBPath string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Project dependency graph service",
	Long: `atlas scans a source tree, builds its dependency graph (files,
functions, classes, imports, calls) and serves it over HTTP.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <root>",
	Short: "Scan a project once and print statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args[0])
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage stored graph snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshotsList()
	},
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshotsDelete(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	serveCmd.Flags().StringVar(&flagConfig, "config", "", "path to YAML configuration")
	serveCmd.Flags().StringVar(&flagRoot, "root", "", "project to scan at startup")

	scanCmd.Flags().StringVar(&flagConfig, "config", "", "path to YAML configuration")
	scanCmd.Flags().StringVar(&flagOutput, "output", "", "write the graph JSON to this file")

	snapshotsListCmd.Flags().StringVar(&flagDBPath, "db", "", "snapshot database directory")
	_ = snapshotsListCmd.MarkFlagRequired("db")

	snapshotsDeleteCmd.Flags().StringVar(&flagDBPath, "db", "", "snapshot database directory")
	_ = snapshotsDeleteCmd.MarkFlagRequired("db")

	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsDeleteCmd)
	rootCmd.AddCommand(serveCmd, scanCmd, snapshotsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogger installs the process-wide structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// setupMetrics wires the OpenTelemetry meter provider to a Prometheus
// exporter so /metrics serves every instrument in the process.
func setupMetrics(logger *slog.Logger) {
	exporter, err := otelprom.New()
	if err != nil {
		logger.Warn("metrics exporter init failed, metrics disabled", "error", err)
		return
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
}

// loadConfig reads the config file if given, otherwise defaults.
func loadConfig() (config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

func runServe() error {
	logger := setupLogger()
	setupMetrics(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []atlas.ServiceOption
	opts = append(opts, atlas.WithLogger(logger))

	if cfg.Snapshots.Enabled {
		dbCfg := badger.DefaultConfig()
		dbCfg.Path = cfg.Snapshots.Path
		dbCfg.Logger = logger
		db, err := badger.OpenDB(dbCfg)
		if err != nil {
			// Snapshots are a persistence convenience; the service
			// still works without them.
			logger.Warn("snapshot database unavailable, snapshots disabled",
				"path", cfg.Snapshots.Path, "error", err)
		} else {
			defer db.Close()
			manager, err := graph.NewSnapshotManager(db)
			if err != nil {
				return err
			}
			opts = append(opts, atlas.WithSnapshotManager(manager))
		}
	}

	service := atlas.NewService(cfg, opts...)

	if flagRoot != "" {
		logger.Info("running startup scan", "root", flagRoot)
		if _, err := service.Scan(ctx, flagRoot); err != nil {
			return fmt.Errorf("startup scan: %w", err)
		}
	}

	if cfg.Watch.Enabled {
		if flagRoot == "" {
			logger.Warn("watch mode requires --root, skipping")
		} else {
			watcher, err := atlas.NewWatcher(service,
				time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("watcher stopped", "error", err)
				}
			}()
		}
	}

	if !flagDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("atlas"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	atlas.RegisterRoutes(router.Group("/v1/atlas"), atlas.NewHandlers(service, logger))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("atlas listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runScan(root string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := atlas.NewService(cfg, atlas.WithLogger(logger))
	scan, err := service.Scan(ctx, root)
	if err != nil {
		return err
	}

	if flagOutput != "" {
		data, err := service.Export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagOutput, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", flagOutput, err)
		}
		logger.Info("graph written", "path", flagOutput)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"scan_id":     scan.ID,
		"root":        scan.Root,
		"commit_hash": scan.CommitHash,
		"stats":       scan.Result.Stats,
		"file_errors": scan.Result.FileErrors,
	})
}

func runSnapshotsList() error {
	setupLogger()

	dbCfg := badger.DefaultConfig()
	dbCfg.Path = flagDBPath
	db, err := badger.OpenDB(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	manager, err := graph.NewSnapshotManager(db)
	if err != nil {
		return err
	}
	metas, err := manager.List(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(metas)
}

// runSnapshotsDelete removes one snapshot from the database at --db.
func runSnapshotsDelete(id string) error {
	setupLogger()

	dbCfg := badger.DefaultConfig()
	dbCfg.Path = flagDBPath
	db, err := badger.OpenDB(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	manager, err := graph.NewSnapshotManager(db)
	if err != nil {
		return err
	}
	if err := manager.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "deleted", id)
	return nil
}
