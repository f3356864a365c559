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
	"errors"
	"fmt"
	"time"
)

// SiteStatus is the lifecycle state of a registered site.
type SiteStatus string

const (
	SiteStatusActive          SiteStatus = "active"
	SiteStatusCrawling        SiteStatus = "crawling"
	SiteStatusDiscoveryFailed SiteStatus = "discovery_failed"
	SiteStatusError           SiteStatus = "error"
)

// PostStatus is the processing state of a content page.
type PostStatus string

const (
	PostStatusPending   PostStatus = "pending"
	PostStatusFetched   PostStatus = "fetched"
	PostStatusExtracted PostStatus = "extracted"
	PostStatusError     PostStatus = "error"
)

func (s PostStatus) valid() bool {
	switch s {
	case PostStatusPending, PostStatusFetched, PostStatusExtracted, PostStatusError:
		return true
	}
	return false
}

// CrawlType tells which phases a CrawlRun covered.
type CrawlType string

const (
	CrawlTypeDiscovery  CrawlType = "discovery"
	CrawlTypeExtraction CrawlType = "extraction"
	CrawlTypeFull       CrawlType = "full"
)

// RunStatus is the outcome of a CrawlRun.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// LinkLocation is the structural context an outgoing link was found in.
type LinkLocation string

const (
	LocationPrimaryContent LinkLocation = "primary-content"
	LocationHeading        LinkLocation = "heading"
	LocationSidebar        LinkLocation = "sidebar"
	LocationNavigation     LinkLocation = "navigation"
	LocationHeader         LinkLocation = "header"
	LocationFooter         LinkLocation = "footer"
	LocationBreadcrumbs    LinkLocation = "breadcrumbs"
	LocationPagination     LinkLocation = "pagination"
	LocationOther          LinkLocation = "other"
)

var errMissingURL = errors.New("url is required")

// Site is a registered website. It owns its posts and links.
type Site struct {
	ID uint
	// URL is the normalized root, scheme://host.
	URL string
	// SitemapURL, when set, bypasses discovery.
	SitemapURL    string
	Status        SiteStatus
	TotalPosts    int
	TotalLinks    int
	LastCrawledAt *time.Time
	Notes         string
}

func (s *Site) Validate() error {
	if s.URL == "" {
		return errMissingURL
	}
	return nil
}

// SitemapRef is a sitemap document seen during discovery.
type SitemapRef struct {
	URL      string
	Depth    int
	IsIndex  bool
	URLCount int
	// Primary marks the entry point of the walk.
	Primary bool
}

// Post is a content page of a site. URL is unique within the site.
type Post struct {
	ID             uint
	SiteID         uint
	URL            string
	Title          string
	Status         PostStatus
	LinkCount      int
	LastModified   *time.Time
	ContentHash    uint64
	FetchStrategy  string
	ScreenshotPath string
	DiscoveredAt   time.Time
	LastCrawledAt  *time.Time
}

func (p *Post) Validate() error {
	if p.URL == "" {
		return errMissingURL
	}
	if p.SiteID == 0 {
		return errors.New("post has no site")
	}
	if !p.Status.valid() {
		return fmt.Errorf("unknown post status %q", p.Status)
	}
	if p.LinkCount < 0 {
		return errors.New("negative link count")
	}
	return nil
}

// OutgoingLink is an external hyperlink found on a post.
type OutgoingLink struct {
	ID         uint
	PostID     uint
	SiteID     uint
	TargetURL  string
	AnchorText string
	// Paragraph is the 0-based block index of the link within the page.
	Paragraph int
	// WordOffset counts words from the start of the document.
	WordOffset int
	// ParagraphWordOffset counts words from the start of the paragraph.
	ParagraphWordOffset int
	Location            LinkLocation
	InPrimaryContent    bool
	// Rel and Target keep the attribute values verbatim.
	Rel       string
	Target    string
	NoFollow  bool
	Sponsored bool
	UGC       bool
}

func (l *OutgoingLink) Validate() error {
	if l.TargetURL == "" {
		return errMissingURL
	}
	if l.PostID == 0 || l.SiteID == 0 {
		return errors.New("link must reference a post and a site")
	}
	if l.Paragraph < 0 || l.WordOffset < 0 || l.ParagraphWordOffset < 0 {
		return errors.New("link positions must be non-negative")
	}
	return nil
}

// CrawlRun is the audit record of one discovery or extraction invocation.
type CrawlRun struct {
	ID          uint
	SiteID      uint
	JobID       string
	Type        CrawlType
	Status      RunStatus
	Mode        ClassificationMode
	NewPosts    int
	NewLinks    int
	Errors      int
	StartedAt   time.Time
	CompletedAt *time.Time
	Message     string
}

func (r *CrawlRun) Validate() error {
	if r.SiteID == 0 {
		return errors.New("crawl run has no site")
	}
	if r.NewPosts < 0 || r.NewLinks < 0 || r.Errors < 0 {
		return errors.New("crawl run counters must be non-negative")
	}
	return nil
}

// ErrorRecord is a persisted failure, kept for manual retry.
type ErrorRecord struct {
	ID         uint
	SiteID     uint
	RunID      uint
	URL        string
	Category   ErrorCategory
	Message    string
	RetryCount int
	Resolved   bool
	CreatedAt  time.Time
}

func (e *ErrorRecord) Validate() error {
	if e.URL == "" {
		return errMissingURL
	}
	if e.Category == "" {
		return errors.New("error record has no category")
	}
	if e.RetryCount < 0 {
		return errors.New("negative retry count")
	}
	return nil
}
