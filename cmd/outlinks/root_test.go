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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/agentberlin/outlinks/internal/types"
	"github.com/agentberlin/outlinks/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `concurrency: 4
request_timeout: 5s
max_retries: 2
initial_backoff: 10ms
max_backoff: 50ms
enable_browser_fallback: false
`

// execute runs the CLI with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testFlags(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(testConfig), 0644))
	return []string{"--db", filepath.Join(dir, "outlinks.db"), "--config", cfg, "--log-level", "error"}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Outlinks")
}

func TestCrawlThenInspect(t *testing.T) {
	site := testutil.NewSiteServer()
	defer site.Close()
	flags := testFlags(t)

	out, err := execute(t, append([]string{"crawl", site.URL, "--json"}, flags...)...)
	require.NoError(t, err, out)

	var job types.JobInfo
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, types.JobCompleted, job.Status)
	require.Len(t, job.Reports, 1)
	assert.Equal(t, len(testutil.ArticlePaths), job.Reports[0].Extracted)

	out, err = execute(t, append([]string{"sites", "--json"}, flags...)...)
	require.NoError(t, err)
	var sites []types.SiteInfo
	require.NoError(t, json.Unmarshal([]byte(out), &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, site.URL, sites[0].URL)

	out, err = execute(t, append([]string{"posts", "1", "--json"}, flags...)...)
	require.NoError(t, err)
	var posts types.PostsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	assert.Equal(t, int64(len(testutil.ArticlePaths)), posts.Total)

	var firstPost uint
	for _, p := range posts.Posts {
		if strings.HasSuffix(p.URL, "/blog/first-post") {
			firstPost = p.ID
		}
	}
	require.NotZero(t, firstPost)

	out, err = execute(t, append([]string{"links", strconv.FormatUint(uint64(firstPost), 10)}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, testutil.PrimaryTarget)
	assert.NotContains(t, out, testutil.ExcludedTarget)

	exportDir := t.TempDir()
	out, err = execute(t, append([]string{"export", "1", "-o", exportDir, "-f", "csv"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")

	data, err := os.ReadFile(filepath.Join(exportDir, "outlinks_site_1.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Post ID,Post URL,Target URL"))
	assert.Contains(t, string(data), testutil.PrimaryTarget)

	out, err = execute(t, append([]string{"errors"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No errors recorded.")
}

func TestCrawlRequiresURL(t *testing.T) {
	_, err := execute(t, append([]string{"crawl"}, testFlags(t)...)...)
	assert.Error(t, err)
}

func TestInvalidArguments(t *testing.T) {
	flags := testFlags(t)

	_, err := execute(t, append([]string{"links", "abc"}, flags...)...)
	assert.Error(t, err)

	_, err = execute(t, append([]string{"export", "1", "-f", "xml"}, flags...)...)
	assert.Error(t, err)

	_, err = execute(t, append([]string{"mcp", "--transport", "grpc"}, flags...)...)
	assert.Error(t, err)
}

func TestEmptyDatabase(t *testing.T) {
	out, err := execute(t, append([]string{"sites"}, testFlags(t)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No sites found.")
}
