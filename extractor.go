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
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gobwas/glob"
	"golang.org/x/net/html"
)

// maxAnchorText caps the stored anchor text, in characters.
const maxAnchorText = 500

// ExtractedLink is an external link found in a page, with its position.
type ExtractedLink struct {
	URL        string
	AnchorText string
	// Paragraph is the 0-based index of the block the link sits in.
	Paragraph int
	// WordOffset is the number of words preceding the link in the document.
	WordOffset int
	// ParagraphWordOffset is the number of words preceding the link in its
	// paragraph.
	ParagraphWordOffset int
	Location            LinkLocation
	InPrimaryContent    bool
	Rel                 string
	Target              string
	NoFollow            bool
	Sponsored           bool
	UGC                 bool
}

// Extraction is the result of analysing one page.
type Extraction struct {
	Title string
	// Links are in document order, one per distinct target URL.
	Links []ExtractedLink
	// Region names the selector or strategy that located the primary content.
	Region      string
	RegionWords int
	ContentHash uint64
}

// Extractor finds the outgoing links of a site's pages. It holds no state
// between calls; Extract is a pure function of its input.
type Extractor struct {
	siteHost string
	exact    []string
	globs    []glob.Glob
}

// NewExtractor returns an extractor for pages of siteURL. Links to the
// site's own registrable domain are internal and dropped. Excluded domains
// match exactly and on subdomains; entries containing glob metacharacters
// are matched as globs against the host.
func NewExtractor(siteURL string, excludedDomains []string) (*Extractor, error) {
	e := &Extractor{}
	if siteURL != "" {
		u, err := url.Parse(siteURL)
		if err != nil {
			return nil, fmt.Errorf("invalid site URL: %w", err)
		}
		e.siteHost = strings.ToLower(u.Hostname())
	}
	for _, d := range excludedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, "*?[{") {
			g, err := glob.Compile(d, '.')
			if err != nil {
				return nil, fmt.Errorf("excluded domain %q: %w", d, err)
			}
			e.globs = append(e.globs, g)
			continue
		}
		e.exact = append(e.exact, strings.TrimPrefix(d, "www."))
	}
	return e, nil
}

// Extract parses content and returns its external links. baseURL is the
// final URL of the page; a <base href> in the document takes precedence.
func (e *Extractor) Extract(content []byte, baseURL string) (*Extraction, error) {
	root, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{URL: baseURL, Err: err}
	}

	base := baseURL
	if n := htmlquery.FindOne(root, "//base[@href]"); n != nil {
		if resolved, err := resolveURL(baseURL, htmlquery.SelectAttr(n, "href")); err == nil {
			base = resolved
		}
	}
	siteHost := e.siteHost
	if siteHost == "" {
		if u, err := url.Parse(baseURL); err == nil {
			siteHost = strings.ToLower(u.Hostname())
		}
	}

	doc := goquery.NewDocumentFromNode(root)
	out := &Extraction{Title: pageTitle(doc)}
	stripInvisible(doc)

	region, regionName := findPrimaryRegion(doc)
	out.Region = regionName
	regionText := extractTextWithSpacing(region)
	out.RegionWords = len(strings.Fields(regionText))
	out.ContentHash = ContentHash(regionText)

	var regionNode *html.Node
	if region.Length() > 0 {
		regionNode = region.Get(0)
	}

	w := &linkWalker{
		extractor:  e,
		base:       base,
		siteHost:   siteHost,
		regionNode: regionNode,
		seen:       make(map[string]struct{}),
	}
	start := root
	if body := htmlquery.FindOne(root, "//body"); body != nil {
		start = body
	}
	w.walk(start, false)
	out.Links = w.links
	return out, nil
}

// linkWalker visits a document in order, keeping the paragraph and word
// counters that position each link.
type linkWalker struct {
	extractor  *Extractor
	base       string
	siteHost   string
	regionNode *html.Node
	seen       map[string]struct{}
	links      []ExtractedLink

	paragraph   int
	words       int
	paraWords   int
	paraHasText bool
	inAnchor    bool
}

// boundary closes the current paragraph if it produced any text.
func (w *linkWalker) boundary() {
	if w.paraHasText {
		w.paragraph++
		w.paraWords = 0
		w.paraHasText = false
	}
}

func (w *linkWalker) walk(n *html.Node, inRegion bool) {
	if n == w.regionNode {
		inRegion = true
	}
	switch n.Type {
	case html.TextNode:
		w.count(len(strings.Fields(n.Data)))
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if n.Data == "br" {
			return
		}
		if n.Data == "img" {
			if w.inAnchor {
				w.count(len(strings.Fields(attr(n, "alt"))))
			}
			return
		}
	}

	block := n.Type == html.ElementNode && isBlockElement(n.Data)
	if block {
		w.boundary()
	}
	if n.Type == html.ElementNode && n.Data == "a" && !w.inAnchor {
		recorded := w.visitAnchor(n, inRegion)
		before := w.words
		w.inAnchor = true
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c, inRegion)
		}
		w.inAnchor = false
		// a kept link always occupies at least one position
		if recorded && w.words == before {
			w.count(1)
		}
	} else {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c, inRegion)
		}
	}
	if block {
		w.boundary()
	}
}

func (w *linkWalker) count(words int) {
	if words <= 0 {
		return
	}
	w.words += words
	w.paraWords += words
	w.paraHasText = true
}

// visitAnchor records n before its own text is counted, so a link's
// offset is the number of words preceding it. It reports whether the link
// was kept.
func (w *linkWalker) visitAnchor(n *html.Node, inRegion bool) bool {
	href := strings.TrimSpace(attr(n, "href"))
	target, ok := w.resolve(href)
	if !ok {
		return false
	}
	if _, dup := w.seen[target]; dup {
		return false
	}
	w.seen[target] = struct{}{}

	link := ExtractedLink{
		URL:                 target,
		AnchorText:          truncateRunes(anchorText(n), maxAnchorText),
		Paragraph:           w.paragraph,
		WordOffset:          w.words,
		ParagraphWordOffset: w.paraWords,
		InPrimaryContent:    inRegion,
		Rel:                 attr(n, "rel"),
		Target:              attr(n, "target"),
	}
	if inRegion {
		link.Location = LocationPrimaryContent
	} else {
		link.Location = classifyLocation(n)
	}
	for _, token := range strings.Fields(strings.ToLower(link.Rel)) {
		switch token {
		case "nofollow":
			link.NoFollow = true
		case "sponsored":
			link.Sponsored = true
		case "ugc":
			link.UGC = true
		}
	}
	w.links = append(w.links, link)
	return true
}

// anchorText is the visible text of n, or the alt text of its images when
// it has none.
func anchorText(n *html.Node) string {
	if text := nodeText(n); text != "" {
		return text
	}
	var alts []string
	for _, img := range htmlquery.Find(n, ".//img[@alt]") {
		if alt := normalizeWhitespace(htmlquery.SelectAttr(img, "alt")); alt != "" {
			alts = append(alts, alt)
		}
	}
	return strings.Join(alts, " ")
}

// resolve turns href into an absolute external URL, or reports false when
// the link is not one to keep.
func (w *linkWalker) resolve(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	abs, err := resolveURL(w.base, href)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	if w.siteHost != "" && sameSite(host, w.siteHost) {
		return "", false
	}
	if w.extractor.excluded(host) {
		return "", false
	}
	return abs, true
}

// excluded reports whether host is in the excluded-domain set.
func (e *Extractor) excluded(host string) bool {
	bare := strings.TrimPrefix(host, "www.")
	for _, d := range e.exact {
		if bare == d || strings.HasSuffix(bare, "."+d) {
			return true
		}
	}
	for _, g := range e.globs {
		if g.Match(host) || g.Match(bare) {
			return true
		}
	}
	return false
}

func pageTitle(doc *goquery.Document) string {
	if t := normalizeWhitespace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return normalizeWhitespace(t)
	}
	return normalizeWhitespace(doc.Find("h1").First().Text())
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
