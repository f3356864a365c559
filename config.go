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
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// MinConcurrency and MaxConcurrency bound Settings.Concurrency.
	MinConcurrency = 1
	MaxConcurrency = 100

	DefaultConcurrency     = 20
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialBackoff  = 2 * time.Second
	DefaultMaxBackoff      = 30 * time.Second
	DefaultMaxSitemapDepth = 5
	DefaultSiteConcurrency = 10
	DefaultMinContentWords = 50

	// DefaultUserAgent is a desktop browser identity. Many blogs serve bot
	// user agents a challenge page instead of the article.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultSitemapPaths is the ordered probe list used when a site has no
// sitemap override.
var DefaultSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap-index.xml",
	"/post-sitemap.xml",
	"/news-sitemap.xml",
	"/sitemap-news.xml",
	"/page-sitemap.xml",
	"/article-sitemap.xml",
	"/sitemap1.xml",
	"/sitemap_posts.xml",
	"/blog-sitemap.xml",
	"/main-sitemap.xml",
	"/index-sitemap.xml",
	"/category-sitemap.xml",
}

// DefaultIncludePatterns match paths that usually hold a single article.
var DefaultIncludePatterns = []string{
	`/blog/`,
	`/article/`,
	`/news/`,
	`/post/`,
	`/story/`,
	`/\d{4}/\d{2}/`,
}

// DefaultExcludePatterns match listing and boilerplate pages.
var DefaultExcludePatterns = []string{
	`/category/`,
	`/tag/`,
	`/author/`,
	`/page/`,
	`/about/?$`,
	`/contact/?$`,
	`/privacy/?$`,
	`/terms/?$`,
}

// DefaultExcludedDomains are social, analytics and shortener hosts whose
// links carry no editorial signal.
var DefaultExcludedDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"pinterest.com",
	"youtube.com",
	"tiktok.com",
	"reddit.com",
	"google.com",
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"facebook.net",
	"fbcdn.net",
	"gstatic.com",
	"t.co",
	"bit.ly",
	"ow.ly",
	"tinyurl.com",
}

// RenderingConfig holds the waits applied by the browser-rendered fetcher.
type RenderingConfig struct {
	InitialWaitMs int `yaml:"initial_wait_ms" json:"initialWaitMs" validate:"gte=0,lte=60000"`
	ScrollWaitMs  int `yaml:"scroll_wait_ms" json:"scrollWaitMs" validate:"gte=0,lte=60000"`
	FinalWaitMs   int `yaml:"final_wait_ms" json:"finalWaitMs" validate:"gte=0,lte=60000"`
}

// Settings is the explicit configuration of a crawl job. It is passed by
// value and never mutated once a job has started.
type Settings struct {
	Concurrency    int           `yaml:"concurrency" json:"concurrency" validate:"min=1,max=100"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"requestTimeout" validate:"gt=0"`
	// MaxRetries is the maximum number of attempts per item, the first
	// attempt included.
	MaxRetries     int           `yaml:"max_retries" json:"maxRetries" validate:"min=1,max=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initialBackoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"maxBackoff" validate:"gtefield=InitialBackoff"`

	IncludePatterns []string `yaml:"include_patterns" json:"includePatterns"`
	ExcludePatterns []string `yaml:"exclude_patterns" json:"excludePatterns"`
	ExcludedDomains []string `yaml:"excluded_domains" json:"excludedDomains" validate:"dive,required"`
	SitemapPaths    []string `yaml:"sitemap_paths" json:"sitemapPaths" validate:"dive,startswith=/"`

	ForceFullRecrawl bool `yaml:"force_full_recrawl" json:"forceFullRecrawl"`
	// RecrawlChanged re-queues known posts whose sitemap lastmod is newer
	// than their last crawl.
	RecrawlChanged bool `yaml:"recrawl_changed" json:"recrawlChanged"`

	MaxSitemapDepth int    `yaml:"max_sitemap_depth" json:"maxSitemapDepth" validate:"min=1,max=20"`
	SiteConcurrency int    `yaml:"site_concurrency" json:"siteConcurrency" validate:"min=1,max=100"`
	UserAgent       string `yaml:"user_agent" json:"userAgent" validate:"required"`

	EnableBrowserFallback bool `yaml:"enable_browser_fallback" json:"enableBrowserFallback"`
	MinContentWords       int  `yaml:"min_content_words" json:"minContentWords" validate:"gte=0"`
	// InsecureSkipVerify disables TLS certificate verification on the
	// lightweight fetcher. Off by default, logged when enabled.
	InsecureSkipVerify bool            `yaml:"insecure_skip_verify" json:"insecureSkipVerify"`
	RequestsPerSecond  float64         `yaml:"requests_per_second" json:"requestsPerSecond" validate:"gte=0"`
	ScreenshotDir      string          `yaml:"screenshot_dir" json:"screenshotDir"`
	Rendering          RenderingConfig `yaml:"rendering" json:"rendering"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Concurrency:           DefaultConcurrency,
		RequestTimeout:        DefaultRequestTimeout,
		MaxRetries:            DefaultMaxRetries,
		InitialBackoff:        DefaultInitialBackoff,
		MaxBackoff:            DefaultMaxBackoff,
		IncludePatterns:       append([]string(nil), DefaultIncludePatterns...),
		ExcludePatterns:       append([]string(nil), DefaultExcludePatterns...),
		ExcludedDomains:       append([]string(nil), DefaultExcludedDomains...),
		SitemapPaths:          append([]string(nil), DefaultSitemapPaths...),
		MaxSitemapDepth:       DefaultMaxSitemapDepth,
		SiteConcurrency:       DefaultSiteConcurrency,
		UserAgent:             DefaultUserAgent,
		EnableBrowserFallback: true,
		MinContentWords:       DefaultMinContentWords,
		Rendering: RenderingConfig{
			InitialWaitMs: 1500,
			ScrollWaitMs:  2000,
			FinalWaitMs:   1000,
		},
	}
}

var settingsValidator = validator.New()

// Validate reports every range and pattern problem in s. The returned error
// wraps ErrInvalidSettings.
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	for _, group := range [][]string{s.IncludePatterns, s.ExcludePatterns} {
		for _, p := range group {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("%w: pattern %q: %v", ErrInvalidSettings, p, err)
			}
		}
	}
	return nil
}

// clone returns a copy of s that shares no slices with the caller.
func (s Settings) clone() Settings {
	c := s
	c.IncludePatterns = append([]string(nil), s.IncludePatterns...)
	c.ExcludePatterns = append([]string(nil), s.ExcludePatterns...)
	c.ExcludedDomains = append([]string(nil), s.ExcludedDomains...)
	c.SitemapPaths = append([]string(nil), s.SitemapPaths...)
	return c
}

// retryPolicy derives the Controller retry policy from the settings.
func (s Settings) retryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = s.MaxRetries
	p.AttemptTimeout = s.RequestTimeout
	p.InitialBackoff = s.InitialBackoff
	p.MaxBackoff = s.MaxBackoff
	return p
}

// LoadSettingsFile reads YAML settings from path. Keys missing from the file
// keep their DefaultSettings value. Durations are written as "30s".
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %v", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML settings over DefaultSettings and validates
// the result. Unknown keys are rejected.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
