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
	"time"
)

// Strategy names a fetch path.
type Strategy string

const (
	StrategyHTTP    Strategy = "http"
	StrategyBrowser Strategy = "browser"
)

// FetchResult is a fetched document.
type FetchResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	Body        []byte
	ContentType string
	Strategy    Strategy
	Duration    time.Duration
	// FirstByte is the time to first response byte of the final hop. Only
	// the lightweight fetcher sets it.
	FirstByte time.Duration
	// ScreenshotPath is set by the browser fetcher when screenshots are on.
	ScreenshotPath string
}

// Fetcher retrieves a URL. Implementations return a *FetchError for
// non-2xx responses and connection failures so callers can tell transient
// failures from permanent ones.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*FetchResult, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	return f(ctx, url)
}
