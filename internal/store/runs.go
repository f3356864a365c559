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
	"time"

	"github.com/agentberlin/outlinks"
	"gorm.io/gorm/clause"
)

// AppendCrawlRun records the start of a run and fills in run.ID.
func (s *Store) AppendCrawlRun(ctx context.Context, run *outlinks.CrawlRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid crawl run: %w", err)
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	status := run.Status
	if status == "" {
		status = outlinks.RunStatusRunning
	}
	row := CrawlRun{
		SiteID:      run.SiteID,
		JobID:       run.JobID,
		Type:        string(run.Type),
		Status:      string(status),
		Mode:        string(run.Mode),
		NewPosts:    run.NewPosts,
		NewLinks:    run.NewLinks,
		Errors:      run.Errors,
		StartedAt:   started.Unix(),
		CompletedAt: unixPtr(run.CompletedAt),
		Message:     run.Message,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create crawl run: %v", err)
	}
	run.ID = row.ID
	run.Status = status
	run.StartedAt = time.Unix(row.StartedAt, 0).UTC()
	return nil
}

// FinishCrawlRun writes the outcome and counters of a run.
func (s *Store) FinishCrawlRun(ctx context.Context, run *outlinks.CrawlRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid crawl run: %w", err)
	}
	completed := run.CompletedAt
	if completed == nil {
		now := time.Now()
		completed = &now
	}
	result := s.db.WithContext(ctx).Model(&CrawlRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":       string(run.Status),
		"mode":         string(run.Mode),
		"new_posts":    run.NewPosts,
		"new_links":    run.NewLinks,
		"errors":       run.Errors,
		"completed_at": completed.Unix(),
		"message":      run.Message,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update crawl run: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("crawl run %d: %w", run.ID, ErrNotFound)
	}
	return nil
}

// CrawlRuns returns the most recent runs of a site, newest first.
func (s *Store) CrawlRuns(ctx context.Context, siteID uint, limit int) ([]outlinks.CrawlRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []CrawlRun
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("started_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get crawl runs: %v", err)
	}
	out := make([]outlinks.CrawlRun, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// AppendError persists a failure and fills in rec.ID.
func (s *Store) AppendError(ctx context.Context, rec *outlinks.ErrorRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid error record: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := ErrorRecord{
		SiteID:     rec.SiteID,
		RunID:      rec.RunID,
		URL:        rec.URL,
		Category:   string(rec.Category),
		Message:    rec.Message,
		RetryCount: rec.RetryCount,
		Resolved:   rec.Resolved,
		CreatedAt:  created.Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save error record: %v", err)
	}
	rec.ID = row.ID
	return nil
}

// ResolveErrors marks the open error records of url as resolved.
func (s *Store) ResolveErrors(ctx context.Context, siteID uint, url string) error {
	if err := s.db.WithContext(ctx).Model(&ErrorRecord{}).
		Where("site_id = ? AND url = ? AND resolved = ?", siteID, url, false).
		Update("resolved", true).Error; err != nil {
		return fmt.Errorf("failed to resolve errors: %v", err)
	}
	return nil
}

// ErrorFilter narrows Errors. A zero SiteID matches every site.
type ErrorFilter struct {
	SiteID          uint
	Category        outlinks.ErrorCategory
	IncludeResolved bool
	Limit           int
}

// Errors lists error records, newest first.
func (s *Store) Errors(ctx context.Context, f ErrorFilter) ([]outlinks.ErrorRecord, error) {
	q := s.db.WithContext(ctx).Model(&ErrorRecord{})
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if !f.IncludeResolved {
		q = q.Where("resolved = ?", false)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []ErrorRecord
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get errors: %v", err)
	}
	out := make([]outlinks.ErrorRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// SaveSitemaps records the sitemap documents seen for a site. A document
// seen again has its shape and LastSeenAt refreshed.
func (s *Store) SaveSitemaps(ctx context.Context, siteID uint, refs []outlinks.SitemapRef) error {
	if len(refs) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]SitemapRef, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, SitemapRef{
			SiteID:     siteID,
			URL:        r.URL,
			Depth:      r.Depth,
			IsIndex:    r.IsIndex,
			URLCount:   r.URLCount,
			IsPrimary:  r.Primary,
			LastSeenAt: now,
		})
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "site_id"}, {Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"depth", "is_index", "url_count", "is_primary", "last_seen_at"}),
	}).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("failed to save sitemaps: %v", err)
	}
	return nil
}

// Sitemaps returns the sitemap documents recorded for a site.
func (s *Store) Sitemaps(ctx context.Context, siteID uint) ([]outlinks.SitemapRef, error) {
	var rows []SitemapRef
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("depth ASC, url ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get sitemaps: %v", err)
	}
	out := make([]outlinks.SitemapRef, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
