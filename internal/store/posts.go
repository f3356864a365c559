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

	"github.com/agentberlin/outlinks"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KnownPosts returns the posts of a site keyed by URL.
func (s *Store) KnownPosts(ctx context.Context, siteID uint) (map[string]outlinks.Post, error) {
	var rows []Post
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get posts: %v", err)
	}
	out := make(map[string]outlinks.Post, len(rows))
	for i := range rows {
		out[rows[i].URL] = rows[i].toDomain()
	}
	return out, nil
}

// UpsertPosts inserts the posts that are new for the site and refreshes
// LastModified on existing ones. It returns every given post as stored,
// keyed by URL, and the number created.
func (s *Store) UpsertPosts(ctx context.Context, siteID uint, posts []outlinks.Post) (map[string]outlinks.Post, int, error) {
	stored := make(map[string]outlinks.Post, len(posts))
	created := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Post
		if err := tx.Where("site_id = ?", siteID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to get posts: %v", err)
		}
		byURL := make(map[string]*Post, len(existing))
		for i := range existing {
			byURL[existing[i].URL] = &existing[i]
		}

		var fresh []Post
		for i := range posts {
			p := posts[i]
			p.SiteID = siteID
			if p.Status == "" {
				p.Status = outlinks.PostStatusPending
			}
			if err := p.Validate(); err != nil {
				return fmt.Errorf("invalid post %q: %w", p.URL, err)
			}

			if row, ok := byURL[p.URL]; ok {
				if p.LastModified != nil {
					lm := p.LastModified.Unix()
					if row.LastModified == nil || *row.LastModified != lm {
						if err := tx.Model(row).Update("last_modified", lm).Error; err != nil {
							return fmt.Errorf("failed to update post: %v", err)
						}
						row.LastModified = &lm
					}
				}
				stored[p.URL] = row.toDomain()
				continue
			}
			row := postFromDomain(&p)
			row.ID = 0
			fresh = append(fresh, row)
			byURL[p.URL] = &fresh[len(fresh)-1]
		}

		for i := 0; i < len(fresh); i += batchSize {
			end := i + batchSize
			if end > len(fresh) {
				end = len(fresh)
			}
			batch := fresh[i:end]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "site_id"}, {Name: "url"}},
				DoNothing: true,
			}).Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to create posts: %v", err)
			}
		}
		for i := range fresh {
			stored[fresh[i].URL] = fresh[i].toDomain()
		}
		created = len(fresh)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return stored, created, nil
}

// UpdatePost writes the crawl outcome of an existing post.
func (s *Store) UpdatePost(ctx context.Context, post *outlinks.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	row := postFromDomain(post)
	result := s.db.WithContext(ctx).Model(&Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"title":           row.Title,
		"status":          row.Status,
		"link_count":      row.LinkCount,
		"content_hash":    row.ContentHash,
		"fetch_strategy":  row.FetchStrategy,
		"screenshot_path": row.ScreenshotPath,
		"last_crawled_at": row.LastCrawledAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update post: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %d: %w", post.ID, ErrNotFound)
	}
	return nil
}

// Post returns the post with the given ID.
func (s *Store) Post(ctx context.Context, id uint) (*outlinks.Post, error) {
	var row Post
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %v", err)
	}
	post := row.toDomain()
	return &post, nil
}

// PostFilter narrows Posts.
type PostFilter struct {
	SiteID uint
	Status outlinks.PostStatus
	Limit  int
	Offset int
}

// Posts lists posts of a site, optionally filtered by status, ordered by ID.
func (s *Store) Posts(ctx context.Context, f PostFilter) ([]outlinks.Post, int64, error) {
	q := s.db.WithContext(ctx).Model(&Post{}).Where("site_id = ?", f.SiteID)
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %v", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []Post
	if err := q.Order("id ASC").Limit(limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %v", err)
	}
	out := make([]outlinks.Post, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, total, nil
}
