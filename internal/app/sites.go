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

package app

import (
	"context"
	"fmt"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/store"
	"github.com/agentberlin/outlinks/internal/types"
)

// ListSites returns every registered site.
func (a *App) ListSites(ctx context.Context) ([]types.SiteInfo, error) {
	sites, err := a.store.Sites(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.SiteInfo, len(sites))
	for i := range sites {
		out[i] = a.siteInfo(&sites[i])
	}
	return out, nil
}

// GetSite returns one site.
func (a *App) GetSite(ctx context.Context, siteID uint) (*types.SiteInfo, error) {
	site, err := a.store.Site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	info := a.siteInfo(site)
	return &info, nil
}

// DeleteSite removes a site and everything recorded for it. Sites that
// are being crawled cannot be deleted.
func (a *App) DeleteSite(ctx context.Context, siteID uint) error {
	site, err := a.store.Site(ctx, siteID)
	if err != nil {
		return err
	}
	if a.isCrawling(site.URL) {
		return fmt.Errorf("%w: %s", ErrAlreadyCrawling, site.URL)
	}
	return a.store.DeleteSite(ctx, siteID)
}

func (a *App) siteInfo(s *outlinks.Site) types.SiteInfo {
	return types.SiteInfo{
		ID:            s.ID,
		URL:           s.URL,
		SitemapURL:    s.SitemapURL,
		Status:        string(s.Status),
		TotalPosts:    s.TotalPosts,
		TotalLinks:    s.TotalLinks,
		LastCrawledAt: s.LastCrawledAt,
		Crawling:      a.isCrawling(s.URL),
	}
}

// ListPosts returns a page of a site's posts, optionally by status.
func (a *App) ListPosts(ctx context.Context, siteID uint, status string, limit, offset int) (*types.PostsResponse, error) {
	posts, total, err := a.store.Posts(ctx, store.PostFilter{
		SiteID: siteID,
		Status: outlinks.PostStatus(status),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	resp := &types.PostsResponse{Posts: make([]types.PostInfo, len(posts)), Total: total}
	for i := range posts {
		resp.Posts[i] = postInfo(&posts[i])
	}
	return resp, nil
}

// PostLinks returns the outgoing links of a post in document order.
func (a *App) PostLinks(ctx context.Context, postID uint) (*types.PostLinksResponse, error) {
	post, err := a.store.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	links, err := a.store.PostLinks(ctx, postID)
	if err != nil {
		return nil, err
	}

	infos := make([]types.LinkInfo, 0, len(links))
	for _, l := range links {
		infos = append(infos, types.LinkInfo{
			URL:                 l.TargetURL,
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
		})
	}
	return &types.PostLinksResponse{Post: postInfo(post), Links: infos}, nil
}

func postInfo(p *outlinks.Post) types.PostInfo {
	return types.PostInfo{
		ID:             p.ID,
		SiteID:         p.SiteID,
		URL:            p.URL,
		Title:          p.Title,
		Status:         string(p.Status),
		LinkCount:      p.LinkCount,
		FetchStrategy:  p.FetchStrategy,
		ScreenshotPath: p.ScreenshotPath,
		LastModified:   p.LastModified,
		LastCrawledAt:  p.LastCrawledAt,
	}
}

// Errors lists recorded failures. A zero siteID lists every site.
func (a *App) Errors(ctx context.Context, siteID uint, category string, includeResolved bool, limit int) ([]types.ErrorInfo, error) {
	recs, err := a.store.Errors(ctx, store.ErrorFilter{
		SiteID:          siteID,
		Category:        outlinks.ErrorCategory(category),
		IncludeResolved: includeResolved,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.ErrorInfo, len(recs))
	for i, r := range recs {
		out[i] = types.ErrorInfo{
			ID:         r.ID,
			SiteID:     r.SiteID,
			URL:        r.URL,
			Category:   string(r.Category),
			Message:    r.Message,
			RetryCount: r.RetryCount,
			Resolved:   r.Resolved,
			CreatedAt:  r.CreatedAt,
		}
	}
	return out, nil
}

// CrawlRuns returns the recent runs of a site.
func (a *App) CrawlRuns(ctx context.Context, siteID uint, limit int) ([]types.RunInfo, error) {
	runs, err := a.store.CrawlRuns(ctx, siteID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.RunInfo, len(runs))
	for i, r := range runs {
		out[i] = types.RunInfo{
			ID:          r.ID,
			JobID:       r.JobID,
			Type:        string(r.Type),
			Status:      string(r.Status),
			Mode:        string(r.Mode),
			NewPosts:    r.NewPosts,
			NewLinks:    r.NewLinks,
			Errors:      r.Errors,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
			Message:     r.Message,
		}
	}
	return out, nil
}

// Sitemaps returns the sitemap documents seen for a site.
func (a *App) Sitemaps(ctx context.Context, siteID uint) ([]outlinks.SitemapRef, error) {
	return a.store.Sitemaps(ctx, siteID)
}

// TopTargets returns the URLs a site links to most.
func (a *App) TopTargets(ctx context.Context, siteID uint, primaryOnly bool, limit int) ([]store.TargetCount, error) {
	return a.store.TopTargets(ctx, siteID, primaryOnly, limit)
}

// Stats returns database-wide counts.
func (a *App) Stats(ctx context.Context) (*store.Stats, error) {
	return a.store.Stats(ctx)
}
