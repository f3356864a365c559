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

// content_filters.go holds the scoring heuristics used to find the main
// content block of a page when no semantic container marks it. They follow
// GoOse's CalculateBestNode.

package outlinks

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// maxLinkRatio is the share of words inside links above which a block
	// counts as navigation.
	maxLinkRatio = 0.5
	// minLinksForDensity is the link count below which density is ignored.
	minLinksForDensity = 3
)

// isHighLinkDensity reports whether most of the text of node is link text.
func isHighLinkDensity(node *goquery.Selection) bool {
	links := node.Find("a")
	if links.Length() < minLinksForDensity {
		return false
	}

	nwords := len(strings.Fields(node.Text()))
	if nwords == 0 {
		return true
	}

	var linkText strings.Builder
	links.Each(func(i int, s *goquery.Selection) {
		linkText.WriteString(s.Text())
		linkText.WriteString(" ")
	})
	linkRatio := float64(len(strings.Fields(linkText.String()))) / float64(nwords)

	if linkRatio > maxLinkRatio {
		return true
	}
	// many links with moderate density
	return links.Length() > 5 && linkRatio > 0.3
}

// englishStopwords is a subset of the most common English stopwords.
var englishStopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"against": true, "all": true, "also": true, "am": true, "an": true,
	"and": true, "another": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "below": true, "between": true, "both": true, "but": true,
	"by": true, "can": true, "could": true, "did": true, "do": true,
	"does": true, "doing": true, "down": true, "during": true, "each": true,
	"even": true, "few": true, "for": true, "from": true, "further": true,
	"get": true, "had": true, "has": true, "have": true, "having": true,
	"he": true, "her": true, "here": true, "hers": true, "herself": true,
	"him": true, "himself": true, "his": true, "how": true, "i": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "just": true, "like": true, "make": true,
	"many": true, "me": true, "might": true, "more": true, "most": true,
	"much": true, "must": true, "my": true, "myself": true, "never": true,
	"no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "on": true, "once": true, "only": true, "or": true,
	"other": true, "our": true, "ours": true, "ourselves": true, "out": true,
	"over": true, "own": true, "said": true, "same": true, "she": true,
	"should": true, "so": true, "some": true, "still": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "theirs": true,
	"them": true, "themselves": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "to": true,
	"too": true, "under": true, "until": true, "up": true, "upon": true,
	"us": true, "very": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"who": true, "whom": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true, "yours": true, "yourself": true,
	"yourselves": true,
}

// countStopwords returns the number of stopwords in text.
func countStopwords(text string) int {
	count := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}—–-")
		if englishStopwords[word] {
			count++
		}
	}
	return count
}

// scoreText rates how much text looks like prose: stopwords plus a bonus
// per hundred characters.
func scoreText(text string) int {
	score := countStopwords(text)
	if n := len(text); n > 100 {
		score += n / 100
	}
	return score
}
