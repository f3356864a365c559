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

package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/store"
	"github.com/agentberlin/outlinks/internal/types"
	"go.uber.org/zap"
)

// App represents the core application logic shared by the CLI, the HTTP
// API and the MCP server.
type App struct {
	ctx        context.Context
	store      *store.Store
	emitter    EventEmitter
	logger     *zap.Logger
	metrics    outlinks.Metrics
	coordOpts  []outlinks.CoordinatorOption
	settings   *outlinks.Settings
	jobs       map[string]*job
	activeSite map[string]string // site URL -> job ID
	jobsMutex  sync.RWMutex
	wg         sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger passed down to the engine.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithMetrics reports engine measurements to m.
func WithMetrics(m outlinks.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithSettings pins the settings used for every job instead of the ones
// persisted in the store.
func WithSettings(s outlinks.Settings) Option {
	return func(a *App) { a.settings = &s }
}

// WithCoordinatorOptions appends options to every coordinator the App
// builds, e.g. replacement fetchers in tests.
func WithCoordinatorOptions(opts ...outlinks.CoordinatorOption) Option {
	return func(a *App) { a.coordOpts = append(a.coordOpts, opts...) }
}

// NewApp creates a new App instance with dependencies injected
func NewApp(st *store.Store, emitter EventEmitter, opts ...Option) *App {
	if emitter == nil {
		emitter = &NoOpEmitter{}
	}

	a := &App{
		ctx:        context.Background(),
		store:      st,
		emitter:    emitter,
		logger:     zap.NewNop(),
		jobs:       make(map[string]*job),
		activeSite: make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup sets the context jobs run under. Cancelling it stops every job.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Shutdown stops running jobs and waits for them to record their outcome.
func (a *App) Shutdown() {
	a.jobsMutex.RLock()
	for _, j := range a.jobs {
		j.cancel()
	}
	a.jobsMutex.RUnlock()
	a.wg.Wait()
}

// Settings returns the settings new jobs will use.
func (a *App) Settings(ctx context.Context) (outlinks.Settings, error) {
	a.jobsMutex.RLock()
	pinned := a.settings
	a.jobsMutex.RUnlock()
	if pinned != nil {
		return *pinned, nil
	}
	return a.store.LoadSettings(ctx)
}

// UpdateSettings validates and persists settings for future jobs.
func (a *App) UpdateSettings(ctx context.Context, s outlinks.Settings) error {
	a.jobsMutex.Lock()
	defer a.jobsMutex.Unlock()
	if a.settings != nil {
		if err := s.Validate(); err != nil {
			return err
		}
		a.settings = &s
		return nil
	}
	return a.store.SaveSettings(ctx, s)
}

// CheckSystemHealth reports whether Chrome is available for the browser
// fallback. Without it pages are fetched over plain HTTP only.
func (a *App) CheckSystemHealth(ctx context.Context) *types.SystemHealthCheck {
	settings, err := a.Settings(ctx)
	if err != nil {
		return &types.SystemHealthCheck{
			IsHealthy:  false,
			ErrorTitle: "Settings Unavailable",
			ErrorMsg:   fmt.Sprintf("Failed to load settings: %v", err),
		}
	}
	if !settings.EnableBrowserFallback || isChromeBrowserAvailable() {
		return &types.SystemHealthCheck{IsHealthy: true}
	}
	return &types.SystemHealthCheck{
		IsHealthy:  false,
		ErrorTitle: "Chrome Browser Required",
		ErrorMsg:   "Google Chrome or Chromium is required for the browser fallback but was not found on your system.",
		Suggestion: "Install Google Chrome or Chromium, set CHROME_EXECUTABLE_PATH, or disable enable_browser_fallback.",
	}
}

// isChromeBrowserAvailable checks if Chrome or Chromium is available
func isChromeBrowserAvailable() bool {
	if customPath := os.Getenv("CHROME_EXECUTABLE_PATH"); customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return true
		}
	}

	var chromePaths []string
	switch runtime.GOOS {
	case "darwin":
		chromePaths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		chromePaths = []string{
			os.Getenv("ProgramFiles") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("ProgramFiles(x86)") + "\\Google\\Chrome\\Application\\chrome.exe",
		}
	case "linux":
		chromePaths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
