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
	"github.com/AleutianAI/kodiak/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string // Path to a kodiak.yaml config file
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	serveListen    string // Listen address override
	serveWorkspace string // Workspace root override
	serveSections  string // Sections file override
	serveLogLevel  string
	serveLogJSON   bool
	serveLogDir    string
	serveNoWatch   bool

	sectionsFile string
	sectionsTags string
	sectionsJSON bool

	serverURL   string // Base URL of a running server (drift/buffers)
	driftJSON   bool
	buffersJSON bool

	rootCmd = &cobra.Command{
		Use:   "kodiak",
		Short: "A cli to run and operate the kodiak analysis dispatch service",
		Long: `Kodiak keeps editor buffers in sync with a workspace and dispatches
analysis runs over tag-filtered sections. The serve command starts the
HTTP and websocket server; the other commands inspect a sections file
locally or query a running server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the kodiak dispatch server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	sectionsCmd = &cobra.Command{
		Use:   "sections",
		Short: "List configured sections, optionally filtered by tags",
		Run:   runSections, // Defined in cmd_sections.go
	}

	driftCmd = &cobra.Command{
		Use:   "drift [file]",
		Short: "Show drift between a tracked buffer and its file on disk",
		Args:  cobra.ExactArgs(1),
		Run:   runDrift, // Defined in cmd_drift.go
	}

	buffersCmd = &cobra.Command{
		Use:   "buffers",
		Short: "List buffers tracked by a running server",
		Run:   runBuffers, // Defined in cmd_buffers.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the kodiak version",
		Run:   runVersion, // Defined in cmd_version.go
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(buffersCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"UX personality level: full, standard, minimal, machine (or set KODIAK_PERSONALITY)")

	serveCmd.Flags().StringVar(&configPath, "config", "",
		"Path to a kodiak.yaml config file")
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Listen address, e.g. :8750 (overrides config)")
	serveCmd.Flags().StringVar(&serveWorkspace, "workspace", "",
		"Workspace root directory (overrides config)")
	serveCmd.Flags().StringVar(&serveSections, "sections", "",
		"Path to the sections file (overrides config)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	serveCmd.Flags().BoolVar(&serveLogJSON, "log-json", false,
		"Emit stderr logs as JSON (defaults on when stderr is not a terminal)")
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", "",
		"Directory for JSON log files (file logging disabled when empty)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false,
		"Disable the workspace file watcher")

	sectionsCmd.Flags().StringVarP(&sectionsFile, "file", "f", "sections.yaml",
		"Path to the sections file")
	sectionsCmd.Flags().StringVarP(&sectionsTags, "tags", "t", "",
		"Comma-separated tags to filter by")
	sectionsCmd.Flags().BoolVar(&sectionsJSON, "json", false,
		"Output as JSON for scripting")

	driftCmd.Flags().StringVar(&serverURL, "server", defaultServerURL,
		"Base URL of a running kodiak server")
	driftCmd.Flags().BoolVar(&driftJSON, "json", false,
		"Output as JSON for scripting")

	buffersCmd.Flags().StringVar(&serverURL, "server", defaultServerURL,
		"Base URL of a running kodiak server")
	buffersCmd.Flags().BoolVar(&buffersJSON, "json", false,
		"Output as JSON for scripting")
}
