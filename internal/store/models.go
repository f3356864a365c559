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

package store

import (
	"time"

	"github.com/agentberlin/outlinks"
)

// Site is a registered website.
type Site struct {
	ID            uint   `gorm:"primaryKey"`
	URL           string `gorm:"uniqueIndex;not null"` // Normalized root, scheme://host
	SitemapURL    string `gorm:"type:text"`            // Explicit sitemap, bypasses discovery
	Status        string `gorm:"not null;default:'active'"`
	TotalPosts    int    `gorm:"default:0"`
	TotalLinks    int    `gorm:"default:0"`
	LastCrawledAt *int64
	Notes         string `gorm:"type:text"`
	Posts         []Post `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
	CreatedAt     int64  `gorm:"autoCreateTime"`
	UpdatedAt     int64  `gorm:"autoUpdateTime"`
}

// Post is a content page of a site. (SiteID, URL) is unique.
type Post struct {
	ID             uint           `gorm:"primaryKey"`
	SiteID         uint           `gorm:"not null;index"`
	URL            string         `gorm:"not null"`
	Title          string         `gorm:"type:text"`
	Status         string         `gorm:"not null;default:'pending';index"` // pending, fetched, extracted, error
	LinkCount      int            `gorm:"default:0"`
	LastModified   *int64         // sitemap lastmod
	ContentHash    int64          // SQLite stores hashes as signed integers
	FetchStrategy  string         `gorm:"type:text"` // http or browser
	ScreenshotPath string         `gorm:"type:text"`
	DiscoveredAt   int64          `gorm:"not null"`
	LastCrawledAt  *int64
	Links          []OutgoingLink `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt      int64          `gorm:"autoCreateTime"`
	UpdatedAt      int64          `gorm:"autoUpdateTime"`
}

// OutgoingLink is an external link found on a post.
type OutgoingLink struct {
	ID                  uint   `gorm:"primaryKey"`
	PostID              uint   `gorm:"not null;index"`
	SiteID              uint   `gorm:"not null;index"`
	TargetURL           string `gorm:"not null;index"`
	AnchorText          string `gorm:"type:text"`
	Paragraph           int    `gorm:"not null;default:0"`
	WordOffset          int    `gorm:"not null;default:0"`
	ParagraphWordOffset int    `gorm:"not null;default:0"`
	Location            string `gorm:"type:text;index"` // primary-content, heading, sidebar, navigation, ...
	InPrimaryContent    bool   `gorm:"not null;default:false"`
	Rel                 string `gorm:"type:text"` // Full rel attribute value
	Target              string `gorm:"type:text"` // Target attribute (_blank, _self, etc.)
	NoFollow            bool   `gorm:"not null;default:false"`
	Sponsored           bool   `gorm:"not null;default:false"`
	UGC                 bool   `gorm:"not null;default:false"`
	CreatedAt           int64  `gorm:"autoCreateTime"`
}

// CrawlRun is the audit record of one discovery or extraction invocation.
type CrawlRun struct {
	ID          uint   `gorm:"primaryKey"`
	SiteID      uint   `gorm:"not null;index"`
	JobID       string `gorm:"index"`
	Type        string `gorm:"not null"` // discovery, extraction, full
	Status      string `gorm:"not null;default:'running';index"`
	Mode        string `gorm:"type:text"` // strict or permissive
	NewPosts    int    `gorm:"default:0"`
	NewLinks    int    `gorm:"default:0"`
	Errors      int    `gorm:"default:0"`
	StartedAt   int64  `gorm:"not null"`
	CompletedAt *int64
	Message     string `gorm:"type:text"`
}

// ErrorRecord is a persisted failure.
type ErrorRecord struct {
	ID         uint   `gorm:"primaryKey"`
	SiteID     uint   `gorm:"not null;index"`
	RunID      uint   `gorm:"index"`
	URL        string `gorm:"not null;index"`
	Category   string `gorm:"not null;index"`
	Message    string `gorm:"type:text"`
	RetryCount int    `gorm:"default:0"`
	Resolved   bool   `gorm:"not null;default:false;index"`
	CreatedAt  int64  `gorm:"not null"`
}

// SitemapRef is a sitemap document seen while walking a site's sitemap tree.
type SitemapRef struct {
	ID         uint   `gorm:"primaryKey"`
	SiteID     uint   `gorm:"not null;index"`
	URL        string `gorm:"not null"`
	Depth      int    `gorm:"default:0"`
	IsIndex    bool   `gorm:"not null;default:false"`
	URLCount   int    `gorm:"default:0"`
	IsPrimary  bool   `gorm:"not null;default:false"`
	LastSeenAt int64  `gorm:"not null"`
}

// Setting is a key/value row holding persisted application settings.
type Setting struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;not null"`
	Value     string `gorm:"type:text"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func timePtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

func (s *Site) toDomain() outlinks.Site {
	return outlinks.Site{
		ID:            s.ID,
		URL:           s.URL,
		SitemapURL:    s.SitemapURL,
		Status:        outlinks.SiteStatus(s.Status),
		TotalPosts:    s.TotalPosts,
		TotalLinks:    s.TotalLinks,
		LastCrawledAt: timePtr(s.LastCrawledAt),
		Notes:         s.Notes,
	}
}

func (p *Post) toDomain() outlinks.Post {
	return outlinks.Post{
		ID:             p.ID,
		SiteID:         p.SiteID,
		URL:            p.URL,
		Title:          p.Title,
		Status:         outlinks.PostStatus(p.Status),
		LinkCount:      p.LinkCount,
		LastModified:   timePtr(p.LastModified),
		ContentHash:    uint64(p.ContentHash),
		FetchStrategy:  p.FetchStrategy,
		ScreenshotPath: p.ScreenshotPath,
		DiscoveredAt:   time.Unix(p.DiscoveredAt, 0).UTC(),
		LastCrawledAt:  timePtr(p.LastCrawledAt),
	}
}

func postFromDomain(p *outlinks.Post) Post {
	discovered := p.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now()
	}
	return Post{
		ID:             p.ID,
		SiteID:         p.SiteID,
		URL:            p.URL,
		Title:          p.Title,
		Status:         string(p.Status),
		LinkCount:      p.LinkCount,
		LastModified:   unixPtr(p.LastModified),
		ContentHash:    int64(p.ContentHash),
		FetchStrategy:  p.FetchStrategy,
		ScreenshotPath: p.ScreenshotPath,
		DiscoveredAt:   discovered.Unix(),
		LastCrawledAt:  unixPtr(p.LastCrawledAt),
	}
}

func (l *OutgoingLink) toDomain() outlinks.OutgoingLink {
	return outlinks.OutgoingLink{
		ID:                  l.ID,
		PostID:              l.PostID,
		SiteID:              l.SiteID,
		TargetURL:           l.TargetURL,
		AnchorText:          l.AnchorText,
		Paragraph:           l.Paragraph,
		WordOffset:          l.WordOffset,
		ParagraphWordOffset: l.ParagraphWordOffset,
		Location:            outlinks.LinkLocation(l.Location),
		InPrimaryContent:    l.InPrimaryContent,
		Rel:                 l.Rel,
		Target:              l.Target,
		NoFollow:            l.NoFollow,
		Sponsored:           l.Sponsored,
		UGC:                 l.UGC,
	}
}

func linkFromDomain(l *outlinks.OutgoingLink) OutgoingLink {
	return OutgoingLink{
		PostID:              l.PostID,
		SiteID:              l.SiteID,
		TargetURL:           l.TargetURL,
		AnchorText:          l.AnchorText,
		Paragraph:           l.Paragraph,
		WordOffset:          l.WordOffset,
		ParagraphWordOffset: l.ParagraphWordOffset,
		Location:            string(l.Location),
		InPrimaryContent:    l.InPrimaryContent,
		Rel:                 l.Rel,
		Target:              l.Target,
		NoFollow:            l.NoFollow,
		Sponsored:           l.Sponsored,
		UGC:                 l.UGC,
	}
}

func (r *CrawlRun) toDomain() outlinks.CrawlRun {
	return outlinks.CrawlRun{
		ID:          r.ID,
		SiteID:      r.SiteID,
		JobID:       r.JobID,
		Type:        outlinks.CrawlType(r.Type),
		Status:      outlinks.RunStatus(r.Status),
		Mode:        outlinks.ClassificationMode(r.Mode),
		NewPosts:    r.NewPosts,
		NewLinks:    r.NewLinks,
		Errors:      r.Errors,
		StartedAt:   time.Unix(r.StartedAt, 0).UTC(),
		CompletedAt: timePtr(r.CompletedAt),
		Message:     r.Message,
	}
}

func (e *ErrorRecord) toDomain() outlinks.ErrorRecord {
	return outlinks.ErrorRecord{
		ID:         e.ID,
		SiteID:     e.SiteID,
		RunID:      e.RunID,
		URL:        e.URL,
		Category:   outlinks.ErrorCategory(e.Category),
		Message:    e.Message,
		RetryCount: e.RetryCount,
		Resolved:   e.Resolved,
		CreatedAt:  time.Unix(e.CreatedAt, 0).UTC(),
	}
}

func (r *SitemapRef) toDomain() outlinks.SitemapRef {
	return outlinks.SitemapRef{
		URL:      r.URL,
		Depth:    r.Depth,
		IsIndex:  r.IsIndex,
		URLCount: r.URLCount,
		Primary:  r.IsPrimary,
	}
}
