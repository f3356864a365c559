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
	"strings"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// Discoverer resolves the sitemap entry point of a site.
type Discoverer struct {
	Fetcher Fetcher
	// Paths are probed in order. DefaultSitemapPaths is used when empty.
	Paths  []string
	Logger *zap.Logger
}

// Discover returns the sitemap URL to walk for rootURL. A non-empty
// override disables probing: it fails with *NotFoundError when it cannot be
// fetched and with *ParseError when it is not a sitemap. Otherwise the
// probe paths are tried in order, then the Sitemap directives of
// robots.txt; the first candidate that answers 2xx with a sitemap document
// wins.
func (d *Discoverer) Discover(ctx context.Context, rootURL, override string) (string, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if override != "" {
		res, err := d.Fetcher.Fetch(ctx, override)
		if err != nil {
			return "", &NotFoundError{URL: override, Err: err}
		}
		if _, err := ParseSitemap(res.Body); err != nil {
			return "", &ParseError{URL: override, Err: err}
		}
		return override, nil
	}

	root := strings.TrimRight(rootURL, "/")
	paths := d.Paths
	if len(paths) == 0 {
		paths = DefaultSitemapPaths
	}

	var (
		tried   []string
		lastErr error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := root + p
		tried = append(tried, candidate)
		ok, err := d.probe(ctx, candidate)
		if ok {
			logger.Debug("sitemap found by probing", zap.String("url", candidate))
			return candidate, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	for _, candidate := range d.robotsSitemaps(ctx, root) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tried = append(tried, candidate)
		ok, err := d.probe(ctx, candidate)
		if ok {
			logger.Debug("sitemap found in robots.txt", zap.String("url", candidate))
			return candidate, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	return "", &DiscoveryFailedError{SiteURL: rootURL, Tried: tried, Err: lastErr}
}

// probe fetches candidate and reports whether it is a sitemap document.
func (d *Discoverer) probe(ctx context.Context, candidate string) (bool, error) {
	res, err := d.Fetcher.Fetch(ctx, candidate)
	if err != nil {
		return false, err
	}
	if _, err := ParseSitemap(res.Body); err != nil {
		return false, err
	}
	return true, nil
}

// robotsSitemaps returns the Sitemap directives of root's robots.txt.
func (d *Discoverer) robotsSitemaps(ctx context.Context, root string) []string {
	res, err := d.Fetcher.Fetch(ctx, root+"/robots.txt")
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromBytes(res.Body)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(robots.Sitemaps))
	for _, s := range robots.Sitemaps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
