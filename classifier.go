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
	"fmt"
	"net/url"
	"regexp"
)

// Verdict is the per-path result of the classifier.
type Verdict int

const (
	VerdictUndetermined Verdict = iota
	VerdictInclude
	VerdictExclude
)

func (v Verdict) String() string {
	switch v {
	case VerdictInclude:
		return "include"
	case VerdictExclude:
		return "exclude"
	}
	return "undetermined"
}

// ClassificationMode tells which policy produced a Classification.
type ClassificationMode string

const (
	// ModeStrict includes only paths matching an include pattern.
	ModeStrict ClassificationMode = "strict"
	// ModePermissive includes every path that is not excluded. It is used
	// for a whole set when strict mode would include nothing.
	ModePermissive ClassificationMode = "permissive"
)

// Classifier decides which sitemap URLs are content pages.
// Exclude patterns always win over include patterns.
type Classifier struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewClassifier compiles the pattern lists. Matching is case-insensitive
// and runs against the URL path.
func NewClassifier(include, exclude []string) (*Classifier, error) {
	c := &Classifier{}
	var err error
	if c.include, err = compilePatterns(include); err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	if c.exclude, err = compilePatterns(exclude); err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return c, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// ClassifyPath returns the verdict for a single path.
func (c *Classifier) ClassifyPath(path string) Verdict {
	for _, re := range c.exclude {
		if re.MatchString(path) {
			return VerdictExclude
		}
	}
	for _, re := range c.include {
		if re.MatchString(path) {
			return VerdictInclude
		}
	}
	return VerdictUndetermined
}

// Classification is the result of classifying a URL set.
type Classification struct {
	Mode     ClassificationMode
	Included []string
	Excluded []string
	// Skipped holds URLs that matched nothing under strict mode.
	Skipped []string
}

// Classify applies the set-level policy to urls. Strict mode is tried
// first; if it includes nothing the whole set is reclassified in permissive
// mode. Output keeps input order with duplicates dropped, so the same input
// always yields the same result.
func (c *Classifier) Classify(urls []string) Classification {
	seen := make(map[string]struct{}, len(urls))
	var included, excluded, undetermined []string
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		switch c.ClassifyPath(pathOf(u)) {
		case VerdictExclude:
			excluded = append(excluded, u)
		case VerdictInclude:
			included = append(included, u)
		default:
			undetermined = append(undetermined, u)
		}
	}

	if len(included) > 0 {
		return Classification{Mode: ModeStrict, Included: included, Excluded: excluded, Skipped: undetermined}
	}
	return Classification{Mode: ModePermissive, Included: undetermined, Excluded: excluded}
}

// pathOf returns the path of raw, or raw itself when it does not parse.
func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" && u.Host == "" {
		return raw
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
