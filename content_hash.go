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
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var (
	// timestampPatterns match absolute dates with a time of day.
	timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(?::\d{2})? (?:AM|PM)`),
		regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4}\s+\d{1,2}:\d{2}`),
	}

	// relativeTimePatterns match "3 hours ago" style labels.
	relativeTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`),
		regexp.MustCompile(`(?i)(?:just\s+now|moments?\s+ago)`),
	}
)

// ContentHash fingerprints the text of a page's primary region. Timestamps
// and relative times are stripped first so a page whose only change is
// "updated 5 minutes ago" keeps its hash across crawls.
func ContentHash(text string) uint64 {
	for _, p := range timestampPatterns {
		text = p.ReplaceAllString(text, "")
	}
	for _, p := range relativeTimePatterns {
		text = p.ReplaceAllString(text, "")
	}
	return xxhash.Sum64String(strings.ToLower(normalizeWhitespace(text)))
}
