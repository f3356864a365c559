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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/outlinks/internal/app"
	"github.com/agentberlin/outlinks/internal/mcp"
	"github.com/agentberlin/outlinks/internal/server"
	"github.com/agentberlin/outlinks/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API with Prometheus metrics on /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			var log *zap.Logger
			emitter := app.EmitterFunc(func(eventType app.EventType, data interface{}) {
				if log != nil && eventType != app.EventCrawlProgress {
					log.Info("crawl event", zap.String("event", string(eventType)), zap.Any("data", data))
				}
			})
			e, err := g.open(emitter, reg)
			if err != nil {
				return err
			}
			defer e.Close()
			log = e.logger

			srv := server.NewServer(e.app,
				server.WithLogger(e.logger),
				server.WithGatherer(reg),
				server.WithVersion(version.CurrentVersion),
			)

			addr := fmt.Sprintf("%s:%d", host, port)
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("api server starting", zap.String("addr", addr), zap.String("version", version.CurrentVersion))
				fmt.Fprintf(cmd.OutOrStdout(), "Outlinks API %s listening on http://%s/api/v1/health\n", version.CurrentVersion, addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			return waitAndShutdown(cmd.Context(), e.logger, httpServer, errCh)
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to bind the server to")
	cmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
	return cmd
}

func newMCPCmd(g *globalFlags) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			s := mcp.NewMCPServer(e.app, e.logger)
			switch transport {
			case "stdio":
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return s.RunStdio(ctx)
			case "http":
				httpServer, err := s.RunHTTP(addr)
				if err != nil {
					return err
				}
				return waitAndShutdown(cmd.Context(), e.logger, httpServer, nil)
			default:
				return fmt.Errorf("invalid transport: %s (must be stdio or http)", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "listen address for the http transport")
	return cmd
}

// waitAndShutdown blocks until an interrupt or a listener error, then shuts
// the server down gracefully.
func waitAndShutdown(ctx context.Context, log *zap.Logger, httpServer *http.Server, errCh <-chan error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("failed to start server: %v", err)
		}
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %v", err)
	}
	log.Info("server exited gracefully")
	return nil
}
