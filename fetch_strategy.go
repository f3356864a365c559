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
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// FallbackFetcher tries Primary first and switches to Fallback for a single
// URL when the primary fetch failed at connection level, was blocked, or
// returned a page whose main content has fewer than MinTextWords words.
// The decision is made per URL; a fallback for one page never changes how
// the next page is fetched.
type FallbackFetcher struct {
	Primary  Fetcher
	Fallback Fetcher
	// MinTextWords is the sufficiency threshold. Zero disables the check.
	MinTextWords int
	Logger       *zap.Logger
}

// Fetch implements Fetcher.
func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	res, err := f.Primary.Fetch(ctx, url)
	if f.Fallback == nil {
		return res, err
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err != nil {
		if !shouldFallBack(err) || ctx.Err() != nil {
			return nil, err
		}
		logger.Debug("switching to browser fetch", zap.String("url", url), zap.Error(err))
		fres, ferr := f.Fallback.Fetch(ctx, url)
		if ferr != nil {
			return nil, ferr
		}
		return fres, nil
	}

	if f.MinTextWords <= 0 || !isHTML(res.ContentType) {
		return res, nil
	}
	words := primaryTextWords(res.Body)
	if words >= f.MinTextWords {
		return res, nil
	}

	logger.Debug("insufficient content, switching to browser fetch",
		zap.String("url", url),
		zap.Int("words", words),
		zap.Int("min_words", f.MinTextWords))
	fres, ferr := f.Fallback.Fetch(ctx, url)
	if ferr != nil {
		// keep what the lightweight path got rather than losing the page
		logger.Debug("browser fetch failed, keeping lightweight result", zap.String("url", url), zap.Error(ferr))
		return res, nil
	}
	return fres, nil
}

// shouldFallBack reports whether a primary failure may succeed in a real
// browser: no response at all, or a status that bot protection uses.
func shouldFallBack(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if fe.ConnectionLevel() {
		return true
	}
	switch fe.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "html")
}
