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
)

// Stats is a database-wide summary.
type Stats struct {
	Sites            int64            `json:"sites"`
	Posts            int64            `json:"posts"`
	Links            int64            `json:"links"`
	PostsByStatus    map[string]int64 `json:"postsByStatus"`
	RunningCrawls    int64            `json:"runningCrawls"`
	UnresolvedErrors int64            `json:"unresolvedErrors"`
}

// Stats counts sites, posts, links, running crawls and open errors.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	st := &Stats{PostsByStatus: make(map[string]int64)}

	if err := db.Model(&Site{}).Count(&st.Sites).Error; err != nil {
		return nil, fmt.Errorf("failed to count sites: %v", err)
	}
	if err := db.Model(&Post{}).Count(&st.Posts).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %v", err)
	}
	if err := db.Model(&OutgoingLink{}).Count(&st.Links).Error; err != nil {
		return nil, fmt.Errorf("failed to count links: %v", err)
	}
	if err := db.Model(&CrawlRun{}).Where("status = ?", "running").Count(&st.RunningCrawls).Error; err != nil {
		return nil, fmt.Errorf("failed to count crawl runs: %v", err)
	}
	if err := db.Model(&ErrorRecord{}).Where("resolved = ?", false).Count(&st.UnresolvedErrors).Error; err != nil {
		return nil, fmt.Errorf("failed to count errors: %v", err)
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&Post{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts by status: %v", err)
	}
	for _, r := range rows {
		st.PostsByStatus[r.Status] = r.Count
	}
	return st, nil
}
