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
	"fmt"

	"github.com/agentberlin/outlinks"
	"gorm.io/gorm"
)

// ReplaceLinks swaps the link set of a post and updates its link count in
// one transaction, so readers never see a half-written page.
func (s *Store) ReplaceLinks(ctx context.Context, postID uint, links []outlinks.OutgoingLink) error {
	rows := make([]OutgoingLink, 0, len(links))
	for i := range links {
		l := links[i]
		l.PostID = postID
		if err := l.Validate(); err != nil {
			return fmt.Errorf("invalid link %q: %w", l.TargetURL, err)
		}
		rows = append(rows, linkFromDomain(&l))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&OutgoingLink{}).Error; err != nil {
			return fmt.Errorf("failed to delete links: %v", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to save links: %v", err)
			}
		}
		result := tx.Model(&Post{}).Where("id = ?", postID).Update("link_count", len(rows))
		if result.Error != nil {
			return fmt.Errorf("failed to update link count: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", postID, ErrNotFound)
		}
		return nil
	})
}

// PostLinks returns the links of a post in document order.
func (s *Store) PostLinks(ctx context.Context, postID uint) ([]outlinks.OutgoingLink, error) {
	var rows []OutgoingLink
	if err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("word_offset ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get links: %v", err)
	}
	out := make([]outlinks.OutgoingLink, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// TargetCount is the number of links a site has to one target URL.
type TargetCount struct {
	URL   string `json:"url"`
	Links int64  `json:"links"`
}

// TopTargets returns the URLs a site links to most, from its primary
// content only when primaryOnly is set.
func (s *Store) TopTargets(ctx context.Context, siteID uint, primaryOnly bool, limit int) ([]TargetCount, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Model(&OutgoingLink{}).
		Select("target_url AS url, COUNT(*) AS links").
		Where("site_id = ?", siteID)
	if primaryOnly {
		q = q.Where("in_primary_content = ?", true)
	}
	var out []TargetCount
	if err := q.Group("target_url").Order("links DESC, url ASC").Limit(limit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to count link targets: %v", err)
	}
	return out, nil
}
