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

package types

import (
	"time"

	"github.com/agentberlin/outlinks"
)

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// CrawlRequest starts a crawl job over one or more sites.
type CrawlRequest struct {
	Sites []string `json:"sites"`
	// SitemapURL overrides discovery. Only valid with a single site.
	SitemapURL string `json:"sitemapUrl,omitempty"`
	// ForceFullRecrawl re-extracts every known post of the sites.
	ForceFullRecrawl bool `json:"forceFullRecrawl,omitempty"`
}

// SiteProgress is the latest progress of one site within a job.
type SiteProgress struct {
	SiteURL    string                      `json:"siteUrl"`
	SiteID     uint                        `json:"siteId"`
	Phase      outlinks.Phase              `json:"phase"`
	Mode       outlinks.ClassificationMode `json:"mode,omitempty"`
	Completed  int                         `json:"completed"`
	Total      int                         `json:"total"`
	Percentage float64                     `json:"percentage"`
	LastItem   string                      `json:"lastItem,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// JobInfo is a snapshot of a crawl job.
type JobInfo struct {
	ID         string                  `json:"id"`
	Kind       string                  `json:"kind"`
	Status     JobStatus               `json:"status"`
	Sites      []string                `json:"sites"`
	Progress   []SiteProgress          `json:"progress"`
	Reports    []*outlinks.CrawlReport `json:"reports,omitempty"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt *time.Time              `json:"finishedAt,omitempty"`
}

// SiteInfo describes a registered site.
type SiteInfo struct {
	ID            uint       `json:"id"`
	URL           string     `json:"url"`
	SitemapURL    string     `json:"sitemapUrl,omitempty"`
	Status        string     `json:"status"`
	TotalPosts    int        `json:"totalPosts"`
	TotalLinks    int        `json:"totalLinks"`
	LastCrawledAt *time.Time `json:"lastCrawledAt,omitempty"`
	Crawling      bool       `json:"crawling"`
}

// PostInfo describes a content page.
type PostInfo struct {
	ID             uint       `json:"id"`
	SiteID         uint       `json:"siteId"`
	URL            string     `json:"url"`
	Title          string     `json:"title,omitempty"`
	Status         string     `json:"status"`
	LinkCount      int        `json:"linkCount"`
	FetchStrategy  string     `json:"fetchStrategy,omitempty"`
	ScreenshotPath string     `json:"screenshotPath,omitempty"`
	LastModified   *time.Time `json:"lastModified,omitempty"`
	LastCrawledAt  *time.Time `json:"lastCrawledAt,omitempty"`
}

// PostsResponse is one page of posts.
type PostsResponse struct {
	Posts []PostInfo `json:"posts"`
	Total int64      `json:"total"`
}

// LinkInfo describes an outgoing link and where it sits on the page.
type LinkInfo struct {
	URL                 string `json:"url"`
	AnchorText          string `json:"anchorText"`
	Paragraph           int    `json:"paragraph"`
	WordOffset          int    `json:"wordOffset"`
	ParagraphWordOffset int    `json:"paragraphWordOffset"`
	Location            string `json:"location"`
	InPrimaryContent    bool   `json:"inPrimaryContent"`
	Rel                 string `json:"rel,omitempty"`
	Target              string `json:"target,omitempty"`
	NoFollow            bool   `json:"nofollow,omitempty"`
	Sponsored           bool   `json:"sponsored,omitempty"`
	UGC                 bool   `json:"ugc,omitempty"`
}

// PostLinksResponse lists the outgoing links of a post.
type PostLinksResponse struct {
	Post  PostInfo   `json:"post"`
	Links []LinkInfo `json:"links"`
}

// ErrorInfo describes a recorded failure.
type ErrorInfo struct {
	ID         uint      `json:"id"`
	SiteID     uint      `json:"siteId"`
	URL        string    `json:"url"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	RetryCount int       `json:"retryCount"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RunInfo describes a past crawl run.
type RunInfo struct {
	ID          uint       `json:"id"`
	JobID       string     `json:"jobId,omitempty"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Mode        string     `json:"mode,omitempty"`
	NewPosts    int        `json:"newPosts"`
	NewLinks    int        `json:"newLinks"`
	Errors      int        `json:"errors"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// SystemHealthCheck reports whether optional runtime dependencies exist.
type SystemHealthCheck struct {
	IsHealthy  bool   `json:"isHealthy"`
	ErrorTitle string `json:"errorTitle,omitempty"`
	ErrorMsg   string `json:"errorMsg,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
