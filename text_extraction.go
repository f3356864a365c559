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
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// primaryRegionSelectors are tried in order; the first match with text
// is the primary content region.
var primaryRegionSelectors = []string{
	"article",
	`[role="main"]`,
	"main",
	".post-content",
	".entry-content",
	".article-content",
	"#content",
	".content",
}

// regionScored and regionBody name the fallbacks used when no selector matched.
const (
	regionScored = "scored"
	regionBody   = "body"
)

// findPrimaryRegion locates the main content of doc. It returns a
// single-node selection and the selector or strategy that found it.
func findPrimaryRegion(doc *goquery.Document) (*goquery.Selection, string) {
	for _, sel := range primaryRegionSelectors {
		found := doc.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) != ""
		}).First()
		if found.Length() > 0 {
			return found, sel
		}
	}
	if best := findBestContentNode(doc); best != nil {
		return best, regionScored
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return doc.Selection, regionBody
	}
	return body, regionBody
}

// findBestContentNode scores paragraph-like elements by stopwords and
// length and returns the ancestor collecting the highest score. Parents get
// the full score of a paragraph, grandparents half of it.
func findBestContentNode(doc *goquery.Document) *goquery.Selection {
	scores := make(map[*html.Node]int)
	var order []*html.Node

	add := func(n *html.Node, score int) {
		if n == nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := scores[n]; !ok {
			order = append(order, n)
		}
		scores[n] += score
	}

	doc.Find("p, pre, td").Each(func(i int, s *goquery.Selection) {
		text := s.Text()
		if countStopwords(text) < 2 || isHighLinkDensity(s) {
			return
		}
		score := scoreText(text)
		parent := s.Get(0).Parent
		add(parent, score)
		if parent != nil {
			add(parent.Parent, score/2)
		}
	})

	// first node in document order wins ties
	var best *html.Node
	bestScore := 0
	for _, n := range order {
		if scores[n] > bestScore {
			best, bestScore = n, scores[n]
		}
	}
	if best == nil {
		return nil
	}
	return doc.FindNodes(best)
}

// stripInvisible removes elements whose text is never rendered, so it can
// neither win region selection nor be counted.
func stripInvisible(doc *goquery.Document) {
	doc.Find("script, style, noscript, template").Remove()
}

// primaryTextWords counts the words of the primary content region of an
// HTML body. It is the sufficiency check of the fetch fallback.
func primaryTextWords(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0
	}
	stripInvisible(doc)
	region, _ := findPrimaryRegion(doc)
	return len(strings.Fields(extractTextWithSpacing(region)))
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
