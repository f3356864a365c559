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
	"path/filepath"
	"testing"
	"time"

	"github.com/agentberlin/outlinks"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := newStoreWithPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createSite(t *testing.T, store *Store, url string) *outlinks.Site {
	t.Helper()
	site := &outlinks.Site{URL: url}
	if err := store.UpsertSite(context.Background(), site); err != nil {
		t.Fatalf("UpsertSite() error = %v", err)
	}
	return site
}

func TestNewStoreWithPathMissingDirectory(t *testing.T) {
	_, err := newStoreWithPath(filepath.Join(t.TempDir(), "missing", "test.db"))
	if err == nil {
		t.Fatal("Expected error for missing database directory")
	}
}

func TestUpsertSite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreatesSite", func(t *testing.T) {
		site := createSite(t, store, "https://blog.example.com")
		if site.ID == 0 {
			t.Error("Expected site ID to be non-zero")
		}
		if site.Status != outlinks.SiteStatusActive {
			t.Errorf("Expected Status = %q, got %q", outlinks.SiteStatusActive, site.Status)
		}
	})

	t.Run("SameURLReturnsSameSite", func(t *testing.T) {
		first := createSite(t, store, "https://same.example.com")
		second := &outlinks.Site{URL: "https://same.example.com", SitemapURL: "https://same.example.com/custom.xml"}
		if err := store.UpsertSite(ctx, second); err != nil {
			t.Fatalf("UpsertSite() error = %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("Expected same ID %d, got %d", first.ID, second.ID)
		}
		if second.SitemapURL != "https://same.example.com/custom.xml" {
			t.Errorf("Expected sitemap override to be stored, got %q", second.SitemapURL)
		}
	})

	t.Run("RejectsEmptyURL", func(t *testing.T) {
		if err := store.UpsertSite(ctx, &outlinks.Site{}); err == nil {
			t.Error("Expected error for empty URL")
		}
	})

	t.Run("SiteNotFound", func(t *testing.T) {
		_, err := store.Site(ctx, 9999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpsertPostsIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")

	posts := []outlinks.Post{
		{URL: "https://example.com/blog/a"},
		{URL: "https://example.com/blog/b"},
	}
	stored, created, err := store.UpsertPosts(ctx, site.ID, posts)
	if err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}
	if created != 2 {
		t.Errorf("Expected 2 created, got %d", created)
	}
	if len(stored) != 2 || stored["https://example.com/blog/a"].ID == 0 {
		t.Fatalf("Expected stored posts with IDs, got %+v", stored)
	}

	lastMod := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	again := []outlinks.Post{
		{URL: "https://example.com/blog/a", LastModified: &lastMod},
		{URL: "https://example.com/blog/c"},
	}
	stored2, created, err := store.UpsertPosts(ctx, site.ID, again)
	if err != nil {
		t.Fatalf("UpsertPosts() second call error = %v", err)
	}
	if created != 1 {
		t.Errorf("Expected 1 created on second call, got %d", created)
	}
	if stored2["https://example.com/blog/a"].ID != stored["https://example.com/blog/a"].ID {
		t.Error("Expected existing post to keep its ID")
	}
	if lm := stored2["https://example.com/blog/a"].LastModified; lm == nil || !lm.Equal(lastMod) {
		t.Errorf("Expected LastModified to be refreshed, got %v", lm)
	}

	known, err := store.KnownPosts(ctx, site.ID)
	if err != nil {
		t.Fatalf("KnownPosts() error = %v", err)
	}
	if len(known) != 3 {
		t.Errorf("Expected 3 known posts, got %d", len(known))
	}
	for url, p := range known {
		if p.Status != outlinks.PostStatusPending {
			t.Errorf("Expected %s to be pending, got %q", url, p.Status)
		}
	}
}

func TestUpsertPostsManyBatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")

	posts := make([]outlinks.Post, 0, 250)
	for i := 0; i < 250; i++ {
		posts = append(posts, outlinks.Post{URL: fmt.Sprintf("https://example.com/blog/post-%d", i)})
	}
	_, created, err := store.UpsertPosts(ctx, site.ID, posts)
	if err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}
	if created != 250 {
		t.Errorf("Expected 250 created, got %d", created)
	}
}

func TestReplaceLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")
	stored, _, err := store.UpsertPosts(ctx, site.ID, []outlinks.Post{{URL: "https://example.com/blog/a"}})
	if err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}
	post := stored["https://example.com/blog/a"]

	first := []outlinks.OutgoingLink{
		{SiteID: site.ID, TargetURL: "https://other.org/1", Paragraph: 0, WordOffset: 3, Location: outlinks.LocationPrimaryContent, InPrimaryContent: true},
		{SiteID: site.ID, TargetURL: "https://other.org/2", Paragraph: 2, WordOffset: 40, Location: outlinks.LocationFooter},
	}
	if err := store.ReplaceLinks(ctx, post.ID, first); err != nil {
		t.Fatalf("ReplaceLinks() error = %v", err)
	}

	second := []outlinks.OutgoingLink{
		{SiteID: site.ID, TargetURL: "https://third.net/", Paragraph: 1, WordOffset: 12, Location: outlinks.LocationSidebar},
	}
	if err := store.ReplaceLinks(ctx, post.ID, second); err != nil {
		t.Fatalf("ReplaceLinks() second call error = %v", err)
	}

	links, err := store.PostLinks(ctx, post.ID)
	if err != nil {
		t.Fatalf("PostLinks() error = %v", err)
	}
	if len(links) != 1 || links[0].TargetURL != "https://third.net/" {
		t.Fatalf("Expected only the replacement link, got %+v", links)
	}
	if links[0].PostID != post.ID {
		t.Errorf("Expected PostID = %d, got %d", post.ID, links[0].PostID)
	}

	got, err := store.Post(ctx, post.ID)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if got.LinkCount != 1 {
		t.Errorf("Expected LinkCount = 1, got %d", got.LinkCount)
	}

	t.Run("RejectsNegativePosition", func(t *testing.T) {
		bad := []outlinks.OutgoingLink{{SiteID: site.ID, TargetURL: "https://x.org/", WordOffset: -1}}
		if err := store.ReplaceLinks(ctx, post.ID, bad); err == nil {
			t.Error("Expected error for negative word offset")
		}
		links, _ := store.PostLinks(ctx, post.ID)
		if len(links) != 1 {
			t.Errorf("Expected previous links to survive a rejected replace, got %d", len(links))
		}
	})
}

func TestUpdatePost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")
	stored, _, err := store.UpsertPosts(ctx, site.ID, []outlinks.Post{{URL: "https://example.com/blog/a"}})
	if err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}
	post := stored["https://example.com/blog/a"]

	now := time.Now()
	post.Title = "Hello"
	post.Status = outlinks.PostStatusExtracted
	post.ContentHash = 1<<63 + 5
	post.LastCrawledAt = &now
	if err := store.UpdatePost(ctx, &post); err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}

	got, err := store.Post(ctx, post.ID)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if got.Title != "Hello" || got.Status != outlinks.PostStatusExtracted {
		t.Errorf("Unexpected post after update: %+v", got)
	}
	if got.ContentHash != 1<<63+5 {
		t.Errorf("Expected content hash to survive the signed column, got %d", got.ContentHash)
	}
	if got.LastCrawledAt == nil || got.LastCrawledAt.Unix() != now.Unix() {
		t.Errorf("Expected LastCrawledAt = %v, got %v", now, got.LastCrawledAt)
	}

	t.Run("UnknownPost", func(t *testing.T) {
		missing := outlinks.Post{ID: 9999, SiteID: site.ID, URL: "https://example.com/x", Status: outlinks.PostStatusError}
		if err := store.UpdatePost(ctx, &missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RejectsUnknownStatus", func(t *testing.T) {
		bad := post
		bad.Status = "done"
		if err := store.UpdatePost(ctx, &bad); err == nil {
			t.Error("Expected error for unknown status")
		}
	})
}

func TestCrawlRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")

	run := &outlinks.CrawlRun{SiteID: site.ID, JobID: "job-1", Type: outlinks.CrawlTypeFull}
	if err := store.AppendCrawlRun(ctx, run); err != nil {
		t.Fatalf("AppendCrawlRun() error = %v", err)
	}
	if run.ID == 0 {
		t.Fatal("Expected run ID to be non-zero")
	}
	if run.Status != outlinks.RunStatusRunning {
		t.Errorf("Expected Status = %q, got %q", outlinks.RunStatusRunning, run.Status)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.RunningCrawls != 1 {
		t.Errorf("Expected 1 running crawl, got %d", stats.RunningCrawls)
	}

	run.Status = outlinks.RunStatusCompleted
	run.Mode = outlinks.ModeStrict
	run.NewPosts = 4
	run.NewLinks = 9
	if err := store.FinishCrawlRun(ctx, run); err != nil {
		t.Fatalf("FinishCrawlRun() error = %v", err)
	}

	runs, err := store.CrawlRuns(ctx, site.ID, 10)
	if err != nil {
		t.Fatalf("CrawlRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != outlinks.RunStatusCompleted || got.NewPosts != 4 || got.NewLinks != 9 || got.CompletedAt == nil {
		t.Errorf("Unexpected finished run: %+v", got)
	}
	if got.Mode != outlinks.ModeStrict {
		t.Errorf("Expected Mode = %q, got %q", outlinks.ModeStrict, got.Mode)
	}
}

func TestErrorRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")

	for _, url := range []string{"https://example.com/blog/a", "https://example.com/blog/b"} {
		rec := &outlinks.ErrorRecord{SiteID: site.ID, URL: url, Category: outlinks.CategoryTransientFetch, Message: "timeout", RetryCount: 3}
		if err := store.AppendError(ctx, rec); err != nil {
			t.Fatalf("AppendError() error = %v", err)
		}
		if rec.ID == 0 {
			t.Error("Expected error record ID to be non-zero")
		}
	}

	if err := store.ResolveErrors(ctx, site.ID, "https://example.com/blog/a"); err != nil {
		t.Fatalf("ResolveErrors() error = %v", err)
	}

	open, err := store.Errors(ctx, ErrorFilter{SiteID: site.ID})
	if err != nil {
		t.Fatalf("Errors() error = %v", err)
	}
	if len(open) != 1 || open[0].URL != "https://example.com/blog/b" {
		t.Errorf("Expected only blog/b to stay open, got %+v", open)
	}
	if open[0].RetryCount != 3 {
		t.Errorf("Expected RetryCount = 3, got %d", open[0].RetryCount)
	}

	all, err := store.Errors(ctx, ErrorFilter{SiteID: site.ID, IncludeResolved: true})
	if err != nil {
		t.Fatalf("Errors() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 records including resolved, got %d", len(all))
	}

	if err := store.AppendError(ctx, &outlinks.ErrorRecord{SiteID: site.ID, URL: "https://example.com/c"}); err == nil {
		t.Error("Expected error for record without category")
	}
}

func TestSaveSitemaps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")

	refs := []outlinks.SitemapRef{
		{URL: "https://example.com/sitemap_index.xml", IsIndex: true, Primary: true},
		{URL: "https://example.com/post-sitemap.xml", Depth: 1, URLCount: 10},
	}
	if err := store.SaveSitemaps(ctx, site.ID, refs); err != nil {
		t.Fatalf("SaveSitemaps() error = %v", err)
	}
	refs[1].URLCount = 12
	if err := store.SaveSitemaps(ctx, site.ID, refs); err != nil {
		t.Fatalf("SaveSitemaps() second call error = %v", err)
	}

	got, err := store.Sitemaps(ctx, site.ID)
	if err != nil {
		t.Fatalf("Sitemaps() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 sitemaps, got %d", len(got))
	}
	if !got[0].Primary || !got[0].IsIndex {
		t.Errorf("Expected primary index first, got %+v", got[0])
	}
	if got[1].URLCount != 12 {
		t.Errorf("Expected URLCount refreshed to 12, got %d", got[1].URLCount)
	}
}

func TestRefreshSiteStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")
	stored, _, err := store.UpsertPosts(ctx, site.ID, []outlinks.Post{
		{URL: "https://example.com/blog/a"},
		{URL: "https://example.com/blog/b"},
	})
	if err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}
	err = store.ReplaceLinks(ctx, stored["https://example.com/blog/a"].ID, []outlinks.OutgoingLink{
		{SiteID: site.ID, TargetURL: "https://other.org/"},
		{SiteID: site.ID, TargetURL: "https://another.org/"},
	})
	if err != nil {
		t.Fatalf("ReplaceLinks() error = %v", err)
	}

	now := time.Now()
	if err := store.RefreshSiteStats(ctx, site.ID, outlinks.SiteStatusActive, &now); err != nil {
		t.Fatalf("RefreshSiteStats() error = %v", err)
	}
	got, err := store.Site(ctx, site.ID)
	if err != nil {
		t.Fatalf("Site() error = %v", err)
	}
	if got.TotalPosts != 2 || got.TotalLinks != 2 {
		t.Errorf("Expected 2 posts and 2 links, got %d and %d", got.TotalPosts, got.TotalLinks)
	}
	if got.LastCrawledAt == nil {
		t.Error("Expected LastCrawledAt to be set")
	}

	targets, err := store.TopTargets(ctx, site.ID, false, 10)
	if err != nil {
		t.Fatalf("TopTargets() error = %v", err)
	}
	if len(targets) != 2 {
		t.Errorf("Expected 2 targets, got %d", len(targets))
	}
}

func TestDeleteSite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	site := createSite(t, store, "https://example.com")
	if _, _, err := store.UpsertPosts(ctx, site.ID, []outlinks.Post{{URL: "https://example.com/blog/a"}}); err != nil {
		t.Fatalf("UpsertPosts() error = %v", err)
	}

	if err := store.DeleteSite(ctx, site.ID); err != nil {
		t.Fatalf("DeleteSite() error = %v", err)
	}
	known, err := store.KnownPosts(ctx, site.ID)
	if err != nil {
		t.Fatalf("KnownPosts() error = %v", err)
	}
	if len(known) != 0 {
		t.Errorf("Expected posts to be deleted, got %d", len(known))
	}
	if err := store.DeleteSite(ctx, site.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if defaults.Concurrency != outlinks.DefaultConcurrency {
		t.Errorf("Expected default concurrency %d, got %d", outlinks.DefaultConcurrency, defaults.Concurrency)
	}

	settings := outlinks.DefaultSettings()
	settings.Concurrency = 7
	settings.ExcludedDomains = []string{"*.example.org"}
	if err := store.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	settings.Concurrency = 9
	if err := store.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings() second call error = %v", err)
	}

	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got.Concurrency != 9 {
		t.Errorf("Expected Concurrency = 9, got %d", got.Concurrency)
	}
	if got.RequestTimeout != settings.RequestTimeout {
		t.Errorf("Expected RequestTimeout = %v, got %v", settings.RequestTimeout, got.RequestTimeout)
	}

	settings.Concurrency = 0
	if err := store.SaveSettings(ctx, settings); err == nil {
		t.Error("Expected invalid settings to be rejected")
	}
}
