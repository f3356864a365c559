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
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxRedirects = 10
	// maxBodySize caps how much of a response is read.
	maxBodySize = 10 << 20
)

// HTTPFetcher is the lightweight fetch path: a plain GET with a browser
// identity, manual redirect following and transparent gzip.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   Metrics
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the client. Its redirect policy is overridden so
// redirects are followed by the fetcher itself.
func WithHTTPClient(c *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *zap.Logger) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.logger = l }
}

// WithFetcherMetrics reports every fetch to m.
func WithFetcherMetrics(m Metrics) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.metrics = m }
}

// NewHTTPFetcher builds the lightweight fetcher from settings. TLS
// certificates are verified unless InsecureSkipVerify is set, which is
// logged as a warning.
func NewHTTPFetcher(s Settings, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent: s.UserAgent,
		logger:    zap.NewNop(),
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}

	if f.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if s.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
			f.logger.Warn("TLS certificate verification disabled for lightweight fetches")
		}
		f.client = &http.Client{Transport: transport, Timeout: s.RequestTimeout}
	}
	f.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if s.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(s.RequestsPerSecond), 1)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	start := time.Now()
	res, err := f.do(ctx, rawURL)
	status := 0
	if res != nil {
		status = res.StatusCode
		res.Duration = time.Since(start)
	} else if fe, ok := err.(*FetchError); ok {
		status = fe.StatusCode
	}
	f.metrics.ObserveFetch(string(StrategyHTTP), status, err, time.Since(start))
	return res, err
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, newTransportError(rawURL, err)
		}
	}

	current := rawURL
	for hop := 0; hop <= maxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, http.NoBody)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		f.setHeaders(req)
		trace := &fetchTrace{}
		req = trace.withTrace(req)

		res, err := f.client.Do(req)
		if err != nil {
			return nil, newTransportError(rawURL, err)
		}

		location := res.Header.Get("Location")
		if res.StatusCode >= 300 && res.StatusCode < 400 && location != "" {
			res.Body.Close()
			next, err := req.URL.Parse(location)
			if err != nil {
				return nil, &FetchError{URL: rawURL, StatusCode: res.StatusCode, Err: fmt.Errorf("bad redirect location %q: %w", location, err)}
			}
			f.logger.Debug("following redirect", zap.String("from", current), zap.String("to", next.String()), zap.Int("status", res.StatusCode))
			current = next.String()
			continue
		}

		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
			return nil, newStatusError(rawURL, res.StatusCode)
		}

		body, err := readBody(res, current)
		if err != nil {
			return nil, newTransportError(rawURL, err)
		}
		contentType := res.Header.Get("Content-Type")
		f.logger.Debug("fetched",
			zap.String("url", current),
			zap.Int("status", res.StatusCode),
			zap.Duration("connect", trace.connectTime),
			zap.Duration("first_byte", trace.firstByte))
		return &FetchResult{
			URL:         rawURL,
			FinalURL:    current,
			StatusCode:  res.StatusCode,
			Body:        toUTF8(body, contentType),
			ContentType: contentType,
			Strategy:    StrategyHTTP,
			FirstByte:   trace.firstByte,
		}, nil
	}
	return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("stopped after %d redirects", maxRedirects)}
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// readBody reads at most maxBodySize bytes, decompressing gzip bodies the
// transport left compressed (.xml.gz sitemaps, gzip content types).
func readBody(res *http.Response, finalURL string) ([]byte, error) {
	var r io.Reader = io.LimitReader(res.Body, maxBodySize)
	contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	contentType := strings.ToLower(res.Header.Get("Content-Type"))
	if !res.Uncompressed && (strings.Contains(contentEncoding, "gzip") ||
		(contentEncoding == "" && strings.Contains(contentType, "gzip")) ||
		strings.HasSuffix(strings.ToLower(finalURL), ".xml.gz")) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}
