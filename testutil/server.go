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

// Package testutil provides a fixture blog served over httptest for
// discovery, extraction and end-to-end tests.
package testutil

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// External link targets placed on the fixture articles.
const (
	PrimaryTarget  = "https://research.example.org/paper"
	SecondTarget   = "https://docs.example.net/guide"
	SidebarTarget  = "https://blogroll.example.com/"
	FooterTarget   = "https://status.example.io/"
	ExcludedTarget = "https://twitter.com/fixture"
)

// ArticlePaths are the content URLs listed in the fixture post sitemap.
var ArticlePaths = []string{
	"/blog/first-post",
	"/blog/second-post",
	"/2024/05/dated-post",
}

// SiteServer is a small blog: robots.txt pointing at a sitemap index,
// a post sitemap, a page sitemap and article pages.
type SiteServer struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	failures map[string]int
	extra    map[string]string
}

// NewSiteServer starts the fixture site. Close it when done.
func NewSiteServer() *SiteServer {
	s := &SiteServer{
		hits:     make(map[string]int),
		failures: make(map[string]int),
		extra:    make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// NewSiteServerAt starts the fixture site on a fixed address such as
// "127.0.0.1:8081".
func NewSiteServerAt(addr string) (*SiteServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &SiteServer{
		hits:     make(map[string]int),
		failures: make(map[string]int),
		extra:    make(map[string]string),
	}
	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(s.serve))
	s.Server.Listener.Close()
	s.Server.Listener = l
	s.Server.Start()
	return s, nil
}

// Hits returns how many times path was requested.
func (s *SiteServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// FailNext makes the next n requests for path answer 503.
func (s *SiteServer) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = n
}

// AddArticle serves an extra article page at path. It is not listed in
// any sitemap unless the caller imports one.
func (s *SiteServer) AddArticle(path, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[path] = html
}

func (s *SiteServer) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	s.mu.Lock()
	s.hits[path]++
	fail := s.failures[path] > 0
	if fail {
		s.failures[path]--
	}
	extra, hasExtra := s.extra[path]
	s.mu.Unlock()

	if fail {
		http.Error(w, "try again later", http.StatusServiceUnavailable)
		return
	}

	base := "http://" + r.Host
	switch path {
	case "/robots.txt":
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap_index.xml\n", base)
	case "/sitemap_index.xml":
		writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>%[1]s/page-sitemap.xml</loc></sitemap>
</sitemapindex>`, base))
	case "/post-sitemap.xml":
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
		b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
		for _, p := range ArticlePaths {
			fmt.Fprintf(&b, "  <url><loc>%s%s</loc><lastmod>2024-05-01</lastmod></url>\n", base, p)
		}
		b.WriteString("</urlset>")
		writeXML(w, b.String())
	case "/page-sitemap.xml":
		writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/about</loc></url>
  <url><loc>%[1]s/contact</loc></url>
  <url><loc>%[1]s/category/news/</loc></url>
</urlset>`, base))
	case "/blog/first-post":
		writeHTML(w, FirstPostHTML)
	case "/blog/second-post":
		writeHTML(w, articleHTML("Second post", SecondTarget))
	case "/2024/05/dated-post":
		writeHTML(w, articleHTML("Dated post", PrimaryTarget))
	case "/about", "/contact", "/category/news/":
		writeHTML(w, `<html><head><title>Page</title></head><body><p>Nothing to see.</p></body></html>`)
	default:
		if hasExtra {
			writeHTML(w, extra)
			return
		}
		http.NotFound(w, r)
	}
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, body)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

// FirstPostHTML has one link in each interesting location: the article
// body, a sidebar blogroll, the footer, an excluded social host and an
// internal link.
const FirstPostHTML = `<!DOCTYPE html>
<html>
<head><title>First post</title></head>
<body>
<header class="site-header"><nav><a href="/">Home</a> <a href="/about">About</a></nav></header>
<div class="wrapper">
<article>
<h1>First post</h1>
<p>This opening paragraph sets the scene for the whole article and has no links at all.</p>
<p>The second paragraph cites <a href="` + PrimaryTarget + `" rel="noopener" target="_blank">the original paper</a> before continuing with more words.</p>
<p>A third paragraph points back to <a href="/blog/second-post">another post</a> on this blog.</p>
</article>
<aside class="sidebar"><h3>Blogroll</h3><ul><li><a href="` + SidebarTarget + `" rel="nofollow">A friend</a></li></ul></aside>
</div>
<footer><p>Hosted with care. <a href="` + FooterTarget + `">Status</a> <a href="` + ExcludedTarget + `">Follow us</a></p></footer>
</body>
</html>`

func articleHTML(title, target string) string {
	return `<!DOCTYPE html>
<html>
<head><title>` + title + `</title></head>
<body>
<article>
<h1>` + title + `</h1>
<p>Some introductory words for this article so it reads like a real page.</p>
<p>Read <a href="` + target + `">this reference</a> for details.</p>
</article>
</body>
</html>`
}
