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

// Package mcp exposes crawl jobs and stored link data as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agentberlin/outlinks/internal/app"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	ServerName    = "outlinks"
	ServerVersion = "1.0.0"
)

// MCPServer wraps the core app and exposes it via MCP protocol
type MCPServer struct {
	server *mcp.Server
	app    *app.App
	logger *zap.Logger
}

// NewMCPServer registers the tools over a.
func NewMCPServer(a *app.App, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MCPServer{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		app:    a,
		logger: logger,
	}
	s.registerTools()

	logger.Info("mcp server initialized")
	return s
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// RunStdio serves a single client over stdin/stdout until ctx is done or
// the client disconnects.
func (s *MCPServer) RunStdio(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server with HTTP transport using StreamableHTTPHandler
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	handler := mcp.NewStreamableHTTPHandler(
		func(req *http.Request) *mcp.Server {
			return s.server
		},
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mcp http server error", zap.Error(err))
		}
	}()

	s.logger.Info("mcp http server started", zap.String("addr", addr))
	return httpServer, nil
}
