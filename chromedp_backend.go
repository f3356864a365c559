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

package outlinks

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/kennygrant/sanitize"
	"go.uber.org/zap"
)

// ChromeFetcher renders pages in headless Chrome. It is the heavyweight
// fetch path for pages that need JavaScript or refuse plain clients.
// A single browser process is shared; each fetch gets its own tab.
type ChromeFetcher struct {
	userAgent     string
	rendering     RenderingConfig
	screenshotDir string
	logger        *zap.Logger
	metrics       Metrics

	once          sync.Once
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	startErr      error
}

// ChromeFetcherOption configures a ChromeFetcher.
type ChromeFetcherOption func(*ChromeFetcher)

// WithChromeLogger sets the logger.
func WithChromeLogger(l *zap.Logger) ChromeFetcherOption {
	return func(f *ChromeFetcher) { f.logger = l }
}

// WithChromeMetrics reports every render to m.
func WithChromeMetrics(m Metrics) ChromeFetcherOption {
	return func(f *ChromeFetcher) { f.metrics = m }
}

// NewChromeFetcher returns a browser fetcher. The browser starts lazily on
// the first Fetch.
func NewChromeFetcher(s Settings, opts ...ChromeFetcherOption) *ChromeFetcher {
	f := &ChromeFetcher{
		userAgent:     s.UserAgent,
		rendering:     s.Rendering,
		screenshotDir: s.ScreenshotDir,
		logger:        zap.NewNop(),
		metrics:       nopMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	return f
}

func (f *ChromeFetcher) init() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// an empty Run launches the browser so later tabs attach to it
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		f.startErr = fmt.Errorf("failed to start browser: %w", err)
		f.logger.Error("browser start failed", zap.Error(err))
		return
	}
	f.allocCancel = allocCancel
	f.browserCtx, f.browserCancel = browserCtx, browserCancel
}

// Close terminates the browser process.
func (f *ChromeFetcher) Close() {
	if f.browserCancel != nil {
		f.browserCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}
}

// Fetch implements Fetcher. The returned status is the one of the main
// document response; a page that rendered but answered non-2xx is a
// *FetchError like on the lightweight path.
func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	f.once.Do(f.init)
	start := time.Now()
	if f.startErr != nil {
		fetchErr := newTransportError(rawURL, f.startErr)
		f.metrics.ObserveFetch(string(StrategyBrowser), 0, fetchErr, time.Since(start))
		return nil, fetchErr
	}

	// a context derived from the browser context opens a new tab in it
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	// tie the tab to the caller so cancellation closes it
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		status   int
		finalURL string
		mimeType string
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if ev, ok := ev.(*network.EventResponseReceived); ok && ev.Type == network.ResourceTypeDocument {
			mu.Lock()
			if status == 0 || ev.Response.URL != finalURL {
				status = int(ev.Response.Status)
				finalURL = ev.Response.URL
				mimeType = ev.Response.MimeType
			}
			mu.Unlock()
		}
	})

	wait := func(ms int) chromedp.Action {
		return chromedp.Sleep(time.Duration(ms) * time.Millisecond)
	}
	var html string
	var shot []byte
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		wait(f.rendering.InitialWaitMs),
		chromedp.Evaluate(`window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'})`, nil),
		wait(f.rendering.ScrollWaitMs),
		chromedp.Evaluate(`window.scrollTo({top: 0, behavior: 'smooth'})`, nil),
		wait(f.rendering.FinalWaitMs),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if f.screenshotDir != "" {
		actions = append(actions, chromedp.FullScreenshot(&shot, 80))
	}

	err := chromedp.Run(tabCtx, actions...)
	mu.Lock()
	code, final, ct := status, finalURL, mimeType
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		fetchErr := newTransportError(rawURL, fmt.Errorf("chromedp rendering failed: %w", err))
		f.metrics.ObserveFetch(string(StrategyBrowser), code, fetchErr, time.Since(start))
		return nil, fetchErr
	}
	if code != 0 && (code < 200 || code >= 300) {
		fetchErr := newStatusError(rawURL, code)
		f.metrics.ObserveFetch(string(StrategyBrowser), code, fetchErr, time.Since(start))
		return nil, fetchErr
	}
	if code == 0 {
		code = 200
	}
	if final == "" {
		final = rawURL
	}

	res := &FetchResult{
		URL:         rawURL,
		FinalURL:    final,
		StatusCode:  code,
		Body:        []byte(html),
		ContentType: ct,
		Strategy:    StrategyBrowser,
		Duration:    time.Since(start),
	}
	if len(shot) > 0 {
		path, err := f.saveScreenshot(rawURL, shot)
		if err != nil {
			f.logger.Warn("screenshot not saved", zap.String("url", rawURL), zap.Error(err))
		} else {
			res.ScreenshotPath = path
		}
	}
	f.metrics.ObserveFetch(string(StrategyBrowser), code, nil, res.Duration)
	return res, nil
}

// saveScreenshot writes JPEG data under screenshotDir using a
// file name derived from the host and path of the page.
func (f *ChromeFetcher) saveScreenshot(rawURL string, data []byte) (string, error) {
	if err := os.MkdirAll(f.screenshotDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.screenshotDir, screenshotName(rawURL)+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func screenshotName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Host + u.Path
	}
	name = sanitize.BaseName(name)
	if len(name) > 120 {
		name = name[:120]
	}
	if name == "" {
		name = "page"
	}
	return fmt.Sprintf("%s-%x", name, urlKey(rawURL)&0xffffffff)
}
