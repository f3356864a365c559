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
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
)

// SitemapKind tells an index apart from a URL set.
type SitemapKind string

const (
	KindIndex  SitemapKind = "index"
	KindURLSet SitemapKind = "urlset"
)

// SitemapEntry is a page URL listed by a leaf sitemap.
type SitemapEntry struct {
	Loc     string
	LastMod *time.Time
}

// SitemapDocument is one parsed sitemap.
type SitemapDocument struct {
	Kind SitemapKind
	// Children holds child sitemap URLs of an index.
	Children []string
	// Entries holds page URLs of a URL set.
	Entries []SitemapEntry
}

var (
	errNotSitemap = errors.New("root element is neither urlset nor sitemapindex")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// lastModLayouts are the W3C datetime profiles seen in sitemaps.
var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseSitemap parses a sitemap document. Gzip-compressed input is
// accepted. Namespaces are ignored so unprefixed and prefixed documents
// parse the same way.
func ParseSitemap(body []byte) (*SitemapDocument, error) {
	if bytes.HasPrefix(body, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		defer zr.Close()
		if body, err = io.ReadAll(zr); err != nil {
			return nil, &ParseError{Err: err}
		}
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	root := rootElement(doc)
	if root == nil {
		return nil, &ParseError{Err: errNotSitemap}
	}

	switch strings.ToLower(root.Data) {
	case "sitemapindex":
		out := &SitemapDocument{Kind: KindIndex}
		for _, n := range xmlquery.Find(root, "./*[local-name()='sitemap']/*[local-name()='loc']") {
			if loc := strings.TrimSpace(n.InnerText()); loc != "" {
				out.Children = append(out.Children, loc)
			}
		}
		return out, nil

	case "urlset":
		out := &SitemapDocument{Kind: KindURLSet}
		for _, n := range xmlquery.Find(root, "./*[local-name()='url']") {
			locNode := xmlquery.FindOne(n, "./*[local-name()='loc']")
			if locNode == nil {
				continue
			}
			loc := strings.TrimSpace(locNode.InnerText())
			if loc == "" {
				continue
			}
			entry := SitemapEntry{Loc: loc}
			if lm := xmlquery.FindOne(n, "./*[local-name()='lastmod']"); lm != nil {
				entry.LastMod = parseLastMod(lm.InnerText())
			}
			out.Entries = append(out.Entries, entry)
		}
		return out, nil
	}
	return nil, &ParseError{Err: fmt.Errorf("%w: <%s>", errNotSitemap, root.Data)}
}

// IsSitemap reports whether body parses as a sitemap index or URL set.
func IsSitemap(body []byte) bool {
	_, err := ParseSitemap(body)
	return err == nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// WalkFailure is a sitemap document that could not be fetched or parsed.
type WalkFailure struct {
	URL      string
	Depth    int
	Attempts int
	Err      error
}

// WalkResult is the outcome of walking a sitemap tree.
type WalkResult struct {
	// Entries is the deduplicated union of leaf URLs, in discovery order.
	Entries  []SitemapEntry
	Sitemaps []SitemapRef
	Failures []WalkFailure
	// Truncated counts child references dropped by the depth bound.
	Truncated int
}

// SitemapWalker resolves a sitemap tree breadth-first. A seen-set keyed by
// normalized URL guarantees each document is fetched at most once, so
// cycles and self references terminate.
type SitemapWalker struct {
	Fetcher    Fetcher
	Controller *Controller
	MaxDepth   int
	// SiteRoot, when https, upgrades http locs on the same host.
	SiteRoot string
	Logger   *zap.Logger
	// OnDocument is called after each document finishes.
	OnDocument func(url string, completed, total int)
}

type frontierItem struct {
	url   string
	depth int
}

// Walk fetches root and every sitemap reachable from it. It returns an
// error only when root itself fails; failures below the root are reported
// in WalkResult.Failures.
func (w *SitemapWalker) Walk(ctx context.Context, root string) (*WalkResult, error) {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := w.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSitemapDepth
	}

	result := &WalkResult{}
	seenDocs := make(map[uint64]struct{})
	seenPages := make(map[uint64]struct{})

	frontier := []frontierItem{{url: root, depth: 0}}
	seenDocs[urlKey(root)] = struct{}{}
	done, total := 0, 1

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		depthOf := make(map[string]int, len(frontier))
		urls := make([]string, 0, len(frontier))
		for _, it := range frontier {
			depthOf[it.url] = it.depth
			urls = append(urls, it.url)
		}
		frontier = nil

		for res := range w.Controller.Run(ctx, urls, w.fetchDocument) {
			done++
			depth := depthOf[res.Item]
			if !res.OK() {
				logger.Warn("sitemap failed",
					zap.String("url", res.Item),
					zap.Int("depth", depth),
					zap.Int("attempts", res.Attempts),
					zap.Error(res.Err))
				result.Failures = append(result.Failures, WalkFailure{URL: res.Item, Depth: depth, Attempts: res.Attempts, Err: res.Err})
				if w.OnDocument != nil {
					w.OnDocument(res.Item, done, total)
				}
				continue
			}

			doc := res.Payload.(*SitemapDocument)
			ref := SitemapRef{URL: res.Item, Depth: depth, IsIndex: doc.Kind == KindIndex, Primary: depth == 0}
			if doc.Kind == KindIndex {
				ref.URLCount = len(doc.Children)
				for _, child := range doc.Children {
					child = w.normalize(child)
					key := urlKey(child)
					if _, ok := seenDocs[key]; ok {
						continue
					}
					if depth+1 > maxDepth {
						result.Truncated++
						continue
					}
					seenDocs[key] = struct{}{}
					frontier = append(frontier, frontierItem{url: child, depth: depth + 1})
					total++
				}
			} else {
				ref.URLCount = len(doc.Entries)
				for _, e := range doc.Entries {
					e.Loc = w.normalize(e.Loc)
					key := urlKey(e.Loc)
					if _, ok := seenPages[key]; ok {
						continue
					}
					seenPages[key] = struct{}{}
					result.Entries = append(result.Entries, e)
				}
			}
			result.Sitemaps = append(result.Sitemaps, ref)
			if w.OnDocument != nil {
				w.OnDocument(res.Item, done, total)
			}
		}
	}

	if result.Truncated > 0 {
		logger.Warn("sitemap depth limit reached", zap.Int("max_depth", maxDepth), zap.Int("dropped", result.Truncated))
	}
	if len(result.Sitemaps) == 0 && len(result.Failures) > 0 && result.Failures[0].Depth == 0 {
		return result, result.Failures[0].Err
	}
	return result, nil
}

func (w *SitemapWalker) fetchDocument(ctx context.Context, u string) (any, error) {
	res, err := w.Fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	doc, err := ParseSitemap(res.Body)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.URL = u
		}
		return nil, err
	}
	return doc, nil
}

func (w *SitemapWalker) normalize(raw string) string {
	raw = upgradeScheme(strings.TrimSpace(raw), w.SiteRoot)
	if n, err := NormalizeURL(raw); err == nil {
		return n
	}
	return raw
}
