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
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sitemapIndex(children ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, c := range children {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", c)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func urlSet(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", l)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func mockFetcher(mt *MockTransport) *HTTPFetcher {
	return NewHTTPFetcher(Settings{RequestTimeout: 5 * time.Second}, WithHTTPClient(&http.Client{Transport: mt}))
}

func newWalker(t *testing.T, mt *MockTransport, maxDepth int) *SitemapWalker {
	t.Helper()
	c, err := NewController(4, fastPolicy(2))
	require.NoError(t, err)
	return &SitemapWalker{
		Fetcher:    mockFetcher(mt),
		Controller: c,
		MaxDepth:   maxDepth,
		SiteRoot:   "https://example.com/",
	}
}

func entryLocs(entries []SitemapEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Loc
	}
	return out
}

func TestParseSitemapURLSet(t *testing.T) {
	doc, err := ParseSitemap([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc> https://example.com/blog/a </loc><lastmod>2024-05-01</lastmod></url>
  <url><loc>https://example.com/blog/b</loc><lastmod>2024-05-02T10:30:00+02:00</lastmod></url>
  <url><loc>https://example.com/blog/c</loc><lastmod>not a date</lastmod></url>
  <url><lastmod>2024-05-01</lastmod></url>
</urlset>`))
	require.NoError(t, err)
	assert.Equal(t, KindURLSet, doc.Kind)
	require.Len(t, doc.Entries, 3)

	assert.Equal(t, "https://example.com/blog/a", doc.Entries[0].Loc)
	require.NotNil(t, doc.Entries[0].LastMod)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *doc.Entries[0].LastMod)
	require.NotNil(t, doc.Entries[1].LastMod)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), *doc.Entries[1].LastMod)
	assert.Nil(t, doc.Entries[2].LastMod)
}

func TestParseSitemapIndexWithPrefixedNamespace(t *testing.T) {
	doc, err := ParseSitemap([]byte(`<?xml version="1.0"?>
<sm:sitemapindex xmlns:sm="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sm:sitemap><sm:loc>https://example.com/posts.xml</sm:loc></sm:sitemap>
  <sm:sitemap><sm:loc>https://example.com/pages.xml</sm:loc></sm:sitemap>
</sm:sitemapindex>`))
	require.NoError(t, err)
	assert.Equal(t, KindIndex, doc.Kind)
	assert.Equal(t, []string{"https://example.com/posts.xml", "https://example.com/pages.xml"}, doc.Children)
}

func TestParseSitemapGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(urlSet("https://example.com/blog/a")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := ParseSitemap(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/a"}, entryLocs(doc.Entries))
}

func TestParseSitemapRejectsOtherDocuments(t *testing.T) {
	_, err := ParseSitemap([]byte("<html><body>not a sitemap</body></html>"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)

	_, err = ParseSitemap(nil)
	assert.Error(t, err)

	assert.False(t, IsSitemap([]byte(`{"json": true}`)))
	assert.True(t, IsSitemap([]byte(urlSet())))
}

func TestWalkIndexUnionsChildren(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/sitemap.xml", sitemapIndex(
		"https://example.com/sitemap-1.xml",
		"https://example.com/sitemap-2.xml",
	))
	mt.RegisterXML("https://example.com/sitemap-1.xml", urlSet(
		"https://example.com/blog/1", "https://example.com/blog/2", "https://example.com/blog/3"))
	mt.RegisterXML("https://example.com/sitemap-2.xml", urlSet(
		"https://example.com/blog/4", "https://example.com/blog/5", "https://example.com/blog/6"))

	var progress []int
	w := newWalker(t, mt, 5)
	w.OnDocument = func(_ string, completed, _ int) { progress = append(progress, completed) }

	res, err := w.Walk(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"https://example.com/blog/1", "https://example.com/blog/2", "https://example.com/blog/3",
		"https://example.com/blog/4", "https://example.com/blog/5", "https://example.com/blog/6",
	}, entryLocs(res.Entries))
	assert.Empty(t, res.Failures)
	assert.Zero(t, res.Truncated)
	require.Len(t, res.Sitemaps, 3)
	assert.True(t, res.Sitemaps[0].Primary)
	assert.True(t, res.Sitemaps[0].IsIndex)
	assert.Equal(t, 2, res.Sitemaps[0].URLCount)
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestWalkTerminatesOnCycles(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/a.xml", sitemapIndex("https://example.com/b.xml", "https://example.com/a.xml"))
	mt.RegisterXML("https://example.com/b.xml", sitemapIndex("https://example.com/a.xml", "https://example.com/c.xml"))
	mt.RegisterXML("https://example.com/c.xml", urlSet("https://example.com/blog/x", "https://example.com/blog/x"))

	res, err := newWalker(t, mt, 5).Walk(context.Background(), "https://example.com/a.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/x"}, entryLocs(res.Entries))
	assert.Equal(t, 1, mt.Hits("https://example.com/a.xml"))
	assert.Equal(t, 1, mt.Hits("https://example.com/b.xml"))
	assert.Equal(t, 1, mt.Hits("https://example.com/c.xml"))
}

func TestWalkDepthBound(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/d0.xml", sitemapIndex("https://example.com/d1.xml", "https://example.com/leaf0.xml"))
	mt.RegisterXML("https://example.com/leaf0.xml", urlSet("https://example.com/blog/shallow"))
	mt.RegisterXML("https://example.com/d1.xml", sitemapIndex("https://example.com/d2.xml"))
	mt.RegisterXML("https://example.com/d2.xml", urlSet("https://example.com/blog/deep"))

	res, err := newWalker(t, mt, 1).Walk(context.Background(), "https://example.com/d0.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/shallow"}, entryLocs(res.Entries))
	assert.Equal(t, 1, res.Truncated)
	assert.Zero(t, mt.Hits("https://example.com/d2.xml"))
}

func TestWalkRecordsChildFailures(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/sitemap.xml", sitemapIndex(
		"https://example.com/ok.xml",
		"https://example.com/missing.xml",
		"https://example.com/broken.xml",
	))
	mt.RegisterXML("https://example.com/ok.xml", urlSet("https://example.com/blog/ok"))
	mt.RegisterXML("https://example.com/broken.xml", "<html><body>oops</body></html>")

	res, err := newWalker(t, mt, 5).Walk(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/ok"}, entryLocs(res.Entries))
	require.Len(t, res.Failures, 2)

	byURL := map[string]WalkFailure{}
	for _, f := range res.Failures {
		byURL[f.URL] = f
	}
	assert.Equal(t, CategoryPermanentFetch, CategorizeError(byURL["https://example.com/missing.xml"].Err))
	assert.Equal(t, CategoryParse, CategorizeError(byURL["https://example.com/broken.xml"].Err))
	assert.Equal(t, 1, byURL["https://example.com/broken.xml"].Depth)
}

func TestWalkRootFailure(t *testing.T) {
	mt := NewMockTransport()
	_, err := newWalker(t, mt, 5).Walk(context.Background(), "https://example.com/sitemap.xml")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestWalkUpgradesSameHostScheme(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/sitemap.xml", sitemapIndex("http://example.com/posts.xml"))
	mt.RegisterXML("https://example.com/posts.xml", urlSet("http://example.com/blog/a", "http://other.com/blog/b"))

	res, err := newWalker(t, mt, 5).Walk(context.Background(), "https://example.com/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/a", "http://other.com/blog/b"}, entryLocs(res.Entries))
}

func TestWalkStopsOnCancel(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterXML("https://example.com/sitemap.xml", urlSet("https://example.com/blog/a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newWalker(t, mt, 5).Walk(ctx, "https://example.com/sitemap.xml")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mt.TotalHits())
}
