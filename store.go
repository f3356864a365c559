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
	"context"
	"time"
)

// Store is the persistence the coordinator writes through. Implementations
// validate records at the boundary; the coordinator serializes all writes
// for a site's run, so implementations only need to be safe for concurrent
// reads and for writes coming from different sites.
type Store interface {
	// UpsertSite creates the site keyed by URL or updates its override and
	// notes, filling in site.ID.
	UpsertSite(ctx context.Context, site *Site) error
	// Site returns the site with the given ID.
	Site(ctx context.Context, id uint) (*Site, error)
	// KnownPosts returns the existing posts of a site keyed by URL.
	KnownPosts(ctx context.Context, siteID uint) (map[string]Post, error)
	// UpsertPosts inserts posts that are new for the site and refreshes
	// LastModified on existing ones. It returns the stored posts keyed by URL
	// and the number created.
	UpsertPosts(ctx context.Context, siteID uint, posts []Post) (map[string]Post, int, error)
	// UpdatePost writes status, title, hash and crawl time of an existing post.
	UpdatePost(ctx context.Context, post *Post) error
	// ReplaceLinks atomically swaps the link set of a post and updates its
	// link count.
	ReplaceLinks(ctx context.Context, postID uint, links []OutgoingLink) error
	AppendCrawlRun(ctx context.Context, run *CrawlRun) error
	FinishCrawlRun(ctx context.Context, run *CrawlRun) error
	AppendError(ctx context.Context, rec *ErrorRecord) error
	// ResolveErrors marks open error records for url as resolved.
	ResolveErrors(ctx context.Context, siteID uint, url string) error
	// RefreshSiteStats recomputes the site's aggregate counters from its
	// posts and links in one transaction.
	RefreshSiteStats(ctx context.Context, siteID uint, status SiteStatus, crawledAt *time.Time) error
	SaveSitemaps(ctx context.Context, siteID uint, refs []SitemapRef) error
}
