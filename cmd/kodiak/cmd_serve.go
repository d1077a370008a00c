// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/kodiak/pkg/logging"
	"github.com/AleutianAI/kodiak/pkg/ux"
	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/server"
	"github.com/AleutianAI/kodiak/services/kodiak/telemetry"
)

// runServe starts the dispatch server and blocks until it exits.
//
// Description:
//
//	Loads configuration (file first, then flag overrides), initializes
//	logging and the telemetry stack, assembles the service, and runs
//	the HTTP router. SIGINT and SIGTERM stop the watcher and exit.
func runServe(cmd *cobra.Command, args []string) {
	cfg := kodiak.DefaultServiceConfig()
	if configPath != "" {
		loaded, err := kodiak.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if serveListen != "" {
		cfg.ListenAddr = serveListen
	}
	if serveWorkspace != "" {
		cfg.Workspace = serveWorkspace
	}
	if serveSections != "" {
		cfg.SectionsFile = serveSections
	}
	if serveNoWatch {
		cfg.Watcher.Enabled = false
	}

	level, err := logging.ParseLevel(serveLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", serveLogLevel, err)
		os.Exit(1)
	}
	logJSON := serveLogJSON
	if !cmd.Flags().Changed("log-json") {
		// Default to JSON when logs are piped somewhere.
		fd := os.Stderr.Fd()
		logJSON = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  serveLogDir,
		Service: "kodiak",
		JSON:    logJSON,
	})
	defer logger.Close()
	log := logger.Slog()

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	meter := otel.Meter("kodiak")
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		log.Error("Failed to create metrics", "error", err)
		os.Exit(1)
	}

	svc, err := kodiak.New(cfg, kodiak.WithLogger(log), kodiak.WithMetrics(metrics))
	if err != nil {
		log.Error("Failed to assemble service", "error", err)
		os.Exit(1)
	}

	registry := svc.Registry()
	if _, err := telemetry.RegisterBufferGauge(meter, func() int64 {
		return int64(registry.Len())
	}); err != nil {
		log.Warn("Buffer gauge registration failed", "error", err)
	}
	if _, err := telemetry.RegisterResolveCounter(meter, func() (int64, int64, int64) {
		stats := registry.Stats()
		return stats.Hits, stats.Loads, stats.Placeholders
	}); err != nil {
		log.Warn("Resolve counter registration failed", "error", err)
	}

	if err := svc.Start(ctx); err != nil {
		log.Error("Failed to start service", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Shutting down kodiak server")
		svc.Stop()
		os.Exit(0)
	}()

	if level == logging.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(svc, log)

	if ux.GetPersonality().Level != ux.PersonalityMachine {
		printServeBanner(cfg, svc.Workspace())
	}
	log.Info("Starting kodiak server",
		"address", cfg.ListenAddr,
		"workspace", svc.Workspace(),
		"sections", cfg.SectionsFile,
		"watcher", cfg.Watcher.Enabled)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

// printServeBanner prints a startup summary for interactive terminals.
func printServeBanner(cfg kodiak.ServiceConfig, workspace string) {
	watcher := "enabled"
	if !cfg.Watcher.Enabled {
		watcher = "disabled"
	}
	ux.Box("kodiak "+server.ServiceVersion, fmt.Sprintf(
		"Listening:  %s\nWorkspace:  %s\nSections:   %s\nWatcher:    %s",
		cfg.ListenAddr, workspace, cfg.SectionsFile, watcher))
}
