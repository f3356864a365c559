// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/app"
	"github.com/agentberlin/outlinks/internal/logger"
	"github.com/agentberlin/outlinks/internal/metrics"
	"github.com/agentberlin/outlinks/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	dbPath     string
	logLevel   string
	logFormat  string
}

// NewRootCmd returns the root command of the outlinks CLI.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "outlinks",
		Short:         "Sitemap-driven crawler for the external links of blog posts",
		Long:          "outlinks discovers the sitemaps of a site, classifies its URLs into posts and extracts every outgoing link with its position on the page.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML settings file (default: settings stored in the database)")
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (default ~/.outlinks/outlinks.db)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(newCrawlCmd(g))
	rootCmd.AddCommand(newSitesCmd(g))
	rootCmd.AddCommand(newPostsCmd(g))
	rootCmd.AddCommand(newLinksCmd(g))
	rootCmd.AddCommand(newErrorsCmd(g))
	rootCmd.AddCommand(newExportCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newMCPCmd(g))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// env bundles what a command needs to talk to the database.
type env struct {
	app    *app.App
	store  *store.Store
	logger *zap.Logger
}

func (r *env) Close() {
	r.app.Shutdown()
	r.store.Close()
	r.logger.Sync() //nolint:errcheck
}

// open builds the logger, the store and the app. reg may be nil when
// metrics are not exported.
func (g *globalFlags) open(emitter app.EventEmitter, reg prometheus.Registerer) (*env, error) {
	log, err := logger.New(logger.Config{Level: g.logLevel, Encoding: g.logFormat})
	if err != nil {
		return nil, err
	}

	var st *store.Store
	if g.dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(g.dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		st, err = store.Open(g.dbPath)
	} else {
		st, err = store.NewStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	opts := []app.Option{app.WithLogger(log)}
	if g.configFile != "" {
		settings, err := outlinks.LoadSettingsFile(g.configFile)
		if err != nil {
			st.Close()
			return nil, err
		}
		opts = append(opts, app.WithSettings(settings))
	}
	if reg != nil {
		opts = append(opts, app.WithMetrics(metrics.New(reg)))
	}

	a := app.NewApp(st, emitter, opts...)
	a.Startup(context.Background())
	return &env{app: a, store: st, logger: log}, nil
}
