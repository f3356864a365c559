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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, page string, excluded ...string) *Extraction {
	t.Helper()
	e, err := NewExtractor("https://example.com", excluded)
	require.NoError(t, err)
	out, err := e.Extract([]byte(page), "https://example.com/blog/post")
	require.NoError(t, err)
	return out
}

func linkURLs(links []ExtractedLink) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}

func TestExtractParagraphPositions(t *testing.T) {
	page := `<html><head><title>Two paragraphs</title></head><body>
<article>
  <p>One two three four five <a href="https://ext.com/a">first link</a> after it.</p>
  <p>Alpha beta <a href="https://other.org/b">second</a> end.</p>
</article>
</body></html>`

	out := extract(t, page)
	assert.Equal(t, "Two paragraphs", out.Title)
	assert.Equal(t, "article", out.Region)
	require.Len(t, out.Links, 2)

	first, second := out.Links[0], out.Links[1]
	assert.Equal(t, "https://ext.com/a", first.URL)
	assert.Equal(t, "first link", first.AnchorText)
	assert.Equal(t, 0, first.Paragraph)
	assert.Equal(t, 5, first.WordOffset)
	assert.Equal(t, 5, first.ParagraphWordOffset)

	assert.Equal(t, "https://other.org/b", second.URL)
	assert.Equal(t, 1, second.Paragraph)
	assert.Equal(t, 2, second.ParagraphWordOffset)
	assert.Equal(t, 11, second.WordOffset)

	for _, l := range out.Links {
		assert.True(t, l.InPrimaryContent)
		assert.Equal(t, LocationPrimaryContent, l.Location)
	}
}

func TestExtractPositionsAreMonotonic(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><article>")
	for i := 0; i < 20; i++ {
		b.WriteString("<p>Some words here <a href=\"https://ext")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(".com/\">link</a> and more words.</p>")
		if i%3 == 0 {
			b.WriteString("<div></div><p>   </p>")
		}
	}
	b.WriteString("</article></body></html>")

	out := extract(t, b.String())
	require.Len(t, out.Links, 20)
	for i := 1; i < len(out.Links); i++ {
		prev, cur := out.Links[i-1], out.Links[i]
		assert.Greater(t, cur.WordOffset, prev.WordOffset)
		assert.Equal(t, prev.Paragraph+1, cur.Paragraph, "empty blocks do not count as paragraphs")
	}
}

func TestExtractImageLinksAdvancePositions(t *testing.T) {
	page := `<html><body><article>
<p>Partners: <a href="https://a.com/"><img src="a.png"></a><a href="https://b.com/"><img src="b.png"></a> and more text.</p>
<p>Logo <a href="https://c.com/"><img src="c.png" alt="Cee Corp"></a><a href="https://d.com/"></a><a href="https://e.com/">e</a></p>
</article></body></html>`

	out := extract(t, page)
	require.Len(t, out.Links, 5)

	a, b, c, d, e := out.Links[0], out.Links[1], out.Links[2], out.Links[3], out.Links[4]
	assert.Equal(t, 0, a.Paragraph)
	assert.Equal(t, 1, a.WordOffset)
	assert.Equal(t, 0, b.Paragraph)
	assert.Equal(t, 2, b.WordOffset)
	assert.Equal(t, 2, b.ParagraphWordOffset)

	assert.Equal(t, 1, c.Paragraph)
	assert.Equal(t, 1, c.ParagraphWordOffset)
	assert.Equal(t, "Cee Corp", c.AnchorText)
	assert.Equal(t, 3, d.ParagraphWordOffset, "alt text counts as words")
	assert.Equal(t, 4, e.ParagraphWordOffset, "an empty anchor takes one position")

	for i := 1; i < len(out.Links); i++ {
		prev, cur := out.Links[i-1], out.Links[i]
		assert.Greater(t, cur.WordOffset, prev.WordOffset)
		if cur.Paragraph == prev.Paragraph {
			assert.Greater(t, cur.ParagraphWordOffset, prev.ParagraphWordOffset)
		}
	}
}

func TestExtractDropsInternalAndNonHTTPLinks(t *testing.T) {
	page := `<html><body><article><p>
<a href="/about">relative</a>
<a href="https://example.com/other">same host</a>
<a href="https://www.example.com/x">www</a>
<a href="https://blog.example.com/y">subdomain</a>
<a href="#top">fragment</a>
<a href="mailto:me@ext.com">mail</a>
<a href="javascript:void(0)">js</a>
<a href="tel:+123">phone</a>
<a href="ftp://files.ext.com/f">ftp</a>
<a>no href</a>
<a href="https://ext.com/keep">keep</a>
</p></article></body></html>`

	assert.Equal(t, []string{"https://ext.com/keep"}, linkURLs(extract(t, page).Links))
}

func TestExtractDeduplicatesTargets(t *testing.T) {
	page := `<html><body><article>
<p>First <a href="https://ext.com/a#intro">one</a>.</p>
<p>Again <a href="https://ext.com/a">two</a>.</p>
</article></body></html>`

	out := extract(t, page)
	require.Len(t, out.Links, 1)
	assert.Equal(t, "one", out.Links[0].AnchorText)
	assert.Equal(t, 0, out.Links[0].Paragraph)
}

func TestExtractExcludedDomains(t *testing.T) {
	page := `<html><body><article><p>
<a href="https://twitter.com/share">t</a>
<a href="https://m.facebook.com/page">f</a>
<a href="https://ad.doubleclick.net/click">ad</a>
<a href="https://ext.com/keep">keep</a>
</p></article></body></html>`

	out := extract(t, page, "twitter.com", "www.facebook.com", "*.doubleclick.net")
	assert.Equal(t, []string{"https://ext.com/keep"}, linkURLs(out.Links))
}

func TestExtractLocations(t *testing.T) {
	page := `<html><body>
<header><a href="https://h.com/">h</a></header>
<nav><a href="https://n.com/">n</a></nav>
<div class="breadcrumbs"><a href="https://b.com/">b</a></div>
<article><p>This is the article and it has a <a href="https://p.com/">primary</a> link in it.</p></article>
<aside><a href="https://s.com/">s</a></aside>
<div class="widget-area"><a href="https://w.com/">w</a></div>
<ul class="pagination"><li><a href="https://pg.com/">2</a></li></ul>
<h2><a href="https://hd.com/">heading</a></h2>
<div><a href="https://o.com/">other</a></div>
<footer><a href="https://f.com/">f</a></footer>
</body></html>`

	want := map[string]LinkLocation{
		"https://h.com/":  LocationHeader,
		"https://n.com/":  LocationNavigation,
		"https://b.com/":  LocationBreadcrumbs,
		"https://p.com/":  LocationPrimaryContent,
		"https://s.com/":  LocationSidebar,
		"https://w.com/":  LocationSidebar,
		"https://pg.com/": LocationPagination,
		"https://hd.com/": LocationHeading,
		"https://o.com/":  LocationOther,
		"https://f.com/":  LocationFooter,
	}
	out := extract(t, page)
	require.Len(t, out.Links, len(want))
	for _, l := range out.Links {
		assert.Equal(t, want[l.URL], l.Location, l.URL)
		assert.Equal(t, l.URL == "https://p.com/", l.InPrimaryContent, l.URL)
	}
}

func TestExtractLocationMarkersMatchWholeWords(t *testing.T) {
	page := `<html><body>
<article><p>The article body has enough words to be the primary region of this page.</p></article>
<div class="canvas"><a href="https://canvas.com/">c</a></div>
<div class="unavailable"><a href="https://unavailable.com/">u</a></div>
<div class="theheaderless"><a href="https://hdrless.com/">x</a></div>
<div id="main_nav"><a href="https://mainnav.com/">m</a></div>
<div class="site-navbar"><a href="https://navbar.com/">n</a></div>
<ul class="menu-item"><li><a href="https://menu.com/">i</a></li></ul>
<div class="Site-Footer"><a href="https://foot.com/">f</a></div>
</body></html>`

	want := map[string]LinkLocation{
		"https://canvas.com/":      LocationOther,
		"https://unavailable.com/": LocationOther,
		"https://hdrless.com/":     LocationOther,
		"https://mainnav.com/":     LocationNavigation,
		"https://navbar.com/":      LocationNavigation,
		"https://menu.com/":        LocationNavigation,
		"https://foot.com/":        LocationFooter,
	}
	out := extract(t, page)
	require.Len(t, out.Links, len(want))
	for _, l := range out.Links {
		assert.Equal(t, want[l.URL], l.Location, l.URL)
	}
}

func TestExtractRelAttributes(t *testing.T) {
	page := `<html><body><article><p>
<a href="https://a.com/" rel="nofollow noopener" target="_blank">a</a>
<a href="https://b.com/" rel="Sponsored">b</a>
<a href="https://c.com/" rel="ugc nofollow">c</a>
<a href="https://d.com/">d</a>
</p></article></body></html>`

	links := extract(t, page).Links
	require.Len(t, links, 4)
	assert.True(t, links[0].NoFollow)
	assert.Equal(t, "_blank", links[0].Target)
	assert.Equal(t, "nofollow noopener", links[0].Rel)
	assert.True(t, links[1].Sponsored)
	assert.True(t, links[2].UGC)
	assert.True(t, links[2].NoFollow)
	assert.False(t, links[3].NoFollow || links[3].Sponsored || links[3].UGC)
}

func TestExtractHonoursBaseHref(t *testing.T) {
	page := `<html><head><base href="https://cdn.partner.com/docs/"></head>
<body><article><p>See <a href="guide.html">the guide</a>.</p></article></body></html>`

	assert.Equal(t, []string{"https://cdn.partner.com/docs/guide.html"}, linkURLs(extract(t, page).Links))
}

func TestExtractContentHashAndTitleFallback(t *testing.T) {
	a := extract(t, `<html><body><h1>Heading Title</h1><article><p>Same text. Posted 2 hours ago.</p></article></body></html>`)
	b := extract(t, `<html><body><h1>Heading Title</h1><article><p>Same text. Posted 9 hours ago.</p></article></body></html>`)
	assert.Equal(t, "Heading Title", a.Title)
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.Equal(t, 6, a.RegionWords)
}

func TestExtractIgnoresScriptOnlyRegion(t *testing.T) {
	page := `<html><body>
<article><script type="application/ld+json">{"@type":"BlogPosting","headline":"A headline with several words"}</script></article>
<main><p>The real post text lives here in <a href="https://ext.com/">main</a>.</p></main>
</body></html>`

	out := extract(t, page)
	assert.Equal(t, "main", out.Region)
	assert.Equal(t, 8, out.RegionWords)
	assert.Equal(t, primaryTextWords([]byte(page)), out.RegionWords)
	require.Len(t, out.Links, 1)
	assert.True(t, out.Links[0].InPrimaryContent)
}

func TestExtractTruncatesAnchorText(t *testing.T) {
	long := strings.Repeat("é", maxAnchorText+50)
	links := extract(t, `<html><body><article><p><a href="https://ext.com/">`+long+`</a></p></article></body></html>`).Links
	require.Len(t, links, 1)
	assert.Equal(t, maxAnchorText, len([]rune(links[0].AnchorText)))
}
