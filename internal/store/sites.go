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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentberlin/outlinks"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UpsertSite creates the site keyed by URL, or updates the sitemap
// override and notes of an existing one. site.ID and site.Status are filled
// in from the stored row.
func (s *Store) UpsertSite(ctx context.Context, site *outlinks.Site) error {
	if err := site.Validate(); err != nil {
		return fmt.Errorf("invalid site: %w", err)
	}

	var row Site
	result := s.db.WithContext(ctx).Where("url = ?", site.URL).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row = Site{
			URL:        site.URL,
			SitemapURL: site.SitemapURL,
			Status:     string(outlinks.SiteStatusActive),
			Notes:      site.Notes,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create site: %v", err)
		}
	} else if result.Error != nil {
		return fmt.Errorf("failed to get site: %v", result.Error)
	} else {
		updates := map[string]interface{}{}
		if site.SitemapURL != "" && site.SitemapURL != row.SitemapURL {
			updates["sitemap_url"] = site.SitemapURL
		}
		if site.Notes != "" && site.Notes != row.Notes {
			updates["notes"] = site.Notes
		}
		if len(updates) > 0 {
			if err := s.db.WithContext(ctx).Model(&row).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update site: %v", err)
			}
		}
	}

	*site = row.toDomain()
	return nil
}

// Site returns the site with the given ID.
func (s *Store) Site(ctx context.Context, id uint) (*outlinks.Site, error) {
	var row Site
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("site %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get site: %v", err)
	}
	site := row.toDomain()
	return &site, nil
}

// SiteByURL returns the site registered for a normalized root URL.
func (s *Store) SiteByURL(ctx context.Context, url string) (*outlinks.Site, error) {
	var row Site
	if err := s.db.WithContext(ctx).Where("url = ?", url).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("site %s: %w", url, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get site: %v", err)
	}
	site := row.toDomain()
	return &site, nil
}

// Sites returns every site ordered by most recent crawl.
func (s *Store) Sites(ctx context.Context) ([]outlinks.Site, error) {
	var rows []Site
	if err := s.db.WithContext(ctx).Order("last_crawled_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sites: %v", err)
	}
	out := make([]outlinks.Site, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// DeleteSite removes a site with its posts, links, runs, errors and
// sitemap references.
func (s *Store) DeleteSite(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&OutgoingLink{}, &Post{}, &CrawlRun{}, &ErrorRecord{}, &SitemapRef{}} {
			if err := tx.Where("site_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete site data: %v", err)
			}
		}
		result := tx.Delete(&Site{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete site: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("site %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// RefreshSiteStats recomputes the post and link totals of a site and sets
// its status in one transaction. LastCrawledAt is only written when
// crawledAt is non-nil.
func (s *Store) RefreshSiteStats(ctx context.Context, siteID uint, status outlinks.SiteStatus, crawledAt *time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts, links int64
		if err := tx.Model(&Post{}).Where("site_id = ?", siteID).Count(&posts).Error; err != nil {
			return fmt.Errorf("failed to count posts: %v", err)
		}
		if err := tx.Model(&OutgoingLink{}).Where("site_id = ?", siteID).Count(&links).Error; err != nil {
			return fmt.Errorf("failed to count links: %v", err)
		}
		updates := map[string]interface{}{
			"total_posts": posts,
			"total_links": links,
			"status":      string(status),
		}
		if crawledAt != nil {
			updates["last_crawled_at"] = crawledAt.Unix()
		}
		if err := tx.Model(&Site{}).Where("id = ?", siteID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update site stats: %v", err)
		}
		return nil
	})
}
