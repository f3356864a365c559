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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 20, s.Concurrency)
	assert.Equal(t, 30*time.Second, s.RequestTimeout)
	assert.Equal(t, 3, s.MaxRetries)
	assert.False(t, s.InsecureSkipVerify)
	assert.False(t, s.RecrawlChanged)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"concurrency zero", func(s *Settings) { s.Concurrency = 0 }},
		{"concurrency too high", func(s *Settings) { s.Concurrency = 101 }},
		{"no timeout", func(s *Settings) { s.RequestTimeout = 0 }},
		{"no attempts", func(s *Settings) { s.MaxRetries = 0 }},
		{"backoff inverted", func(s *Settings) { s.MaxBackoff = time.Millisecond }},
		{"bad include pattern", func(s *Settings) { s.IncludePatterns = []string{"("} }},
		{"bad exclude pattern", func(s *Settings) { s.ExcludePatterns = []string{"[a-"} }},
		{"relative probe path", func(s *Settings) { s.SitemapPaths = []string{"sitemap.xml"} }},
		{"empty excluded domain", func(s *Settings) { s.ExcludedDomains = []string{""} }},
		{"depth out of range", func(s *Settings) { s.MaxSitemapDepth = 0 }},
		{"no user agent", func(s *Settings) { s.UserAgent = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(`
concurrency: 8
request_timeout: 10s
max_retries: 2
initial_backoff: 100ms
max_backoff: 1s
include_patterns: ["/guides/"]
force_full_recrawl: true
rendering:
  initial_wait_ms: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Concurrency)
	assert.Equal(t, 10*time.Second, s.RequestTimeout)
	assert.Equal(t, 100*time.Millisecond, s.InitialBackoff)
	assert.Equal(t, []string{"/guides/"}, s.IncludePatterns)
	assert.True(t, s.ForceFullRecrawl)
	assert.Zero(t, s.Rendering.InitialWaitMs)
	assert.Equal(t, 2000, s.Rendering.ScrollWaitMs, "unset keys keep defaults")
	assert.Equal(t, DefaultExcludePatterns, s.ExcludePatterns)

	empty, err := ParseSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), empty)
}

func TestParseSettingsRejectsBadInput(t *testing.T) {
	_, err := ParseSettings([]byte("concurency: 8\n"))
	assert.ErrorIs(t, err, ErrInvalidSettings, "typo in key")

	_, err = ParseSettings([]byte("concurrency: 500\n"))
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = ParseSettings([]byte("request_timeout: soon\n"))
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outlinks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 4\n"), 0o644))

	s, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Concurrency)

	_, err = LoadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettingsCloneAndRetryPolicy(t *testing.T) {
	s := DefaultSettings()
	c := s.clone()
	c.IncludePatterns[0] = "/changed/"
	assert.Equal(t, DefaultIncludePatterns[0], s.IncludePatterns[0])

	s.MaxRetries = 4
	s.RequestTimeout = time.Second
	p := s.retryPolicy()
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, time.Second, p.AttemptTimeout)
}
