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
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CrawlReport summarizes one site run.
type CrawlReport struct {
	JobID      string             `json:"jobId,omitempty"`
	SiteID     uint               `json:"siteId"`
	SiteURL    string             `json:"siteUrl"`
	RunID      uint               `json:"runId"`
	Phase      Phase              `json:"phase"`
	Mode       ClassificationMode `json:"mode,omitempty"`
	SitemapURL string             `json:"sitemapUrl,omitempty"`

	SitemapsSeen    int `json:"sitemapsSeen"`
	SitemapFailures int `json:"sitemapFailures"`
	// Truncated counts sitemap references dropped by the depth bound.
	Truncated  int `json:"truncated"`
	Discovered int `json:"discovered"`
	Included   int `json:"included"`
	Excluded   int `json:"excluded"`
	NewPosts   int `json:"newPosts"`
	Queued     int `json:"queued"`
	Extracted  int `json:"extracted"`
	NewLinks   int `json:"newLinks"`
	Failed     int `json:"failed"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Err        error     `json:"-"`
	Error      string    `json:"error,omitempty"`
}

// Coordinator drives sites through discovery, parsing, classification,
// persistence and extraction. It is the only component writing to the
// Store: workers fetch and extract, and hand results back to the goroutine
// running the site.
type Coordinator struct {
	store          Store
	settings       Settings
	classifier     *Classifier
	sitemapFetcher Fetcher
	pageFetcher    Fetcher
	logger         *zap.Logger
	metrics        Metrics
	sink           ProgressSink
	jobID          string
	closers        []func()
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics reports engine measurements to m.
func WithMetrics(m Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithProgress delivers progress events to sink. In a batch the sink is
// called from several goroutines.
func WithProgress(sink ProgressSink) CoordinatorOption {
	return func(c *Coordinator) { c.sink = sink }
}

// WithJobID tags runs and events with a job identifier.
func WithJobID(id string) CoordinatorOption {
	return func(c *Coordinator) { c.jobID = id }
}

// WithSitemapFetcher replaces the fetcher used for discovery and sitemaps.
func WithSitemapFetcher(f Fetcher) CoordinatorOption {
	return func(c *Coordinator) { c.sitemapFetcher = f }
}

// WithPageFetcher replaces the fetcher used for content pages.
func WithPageFetcher(f Fetcher) CoordinatorOption {
	return func(c *Coordinator) { c.pageFetcher = f }
}

// NewCoordinator validates settings and wires the default fetchers: the
// lightweight fetcher for sitemaps, and for pages the lightweight fetcher
// with a browser fallback when EnableBrowserFallback is set. Invalid
// settings are the only error that prevents a job from starting.
func NewCoordinator(store Store, settings Settings, opts ...CoordinatorOption) (*Coordinator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings = settings.clone()
	classifier, err := NewClassifier(settings.IncludePatterns, settings.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	c := &Coordinator{
		store:      store,
		settings:   settings,
		classifier: classifier,
		logger:     zap.NewNop(),
		metrics:    nopMetrics{},
		sink:       func(ProgressEvent) {},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sitemapFetcher == nil || c.pageFetcher == nil {
		httpFetcher := NewHTTPFetcher(settings, WithFetcherLogger(c.logger), WithFetcherMetrics(c.metrics))
		if c.sitemapFetcher == nil {
			c.sitemapFetcher = httpFetcher
		}
		if c.pageFetcher == nil {
			c.pageFetcher = httpFetcher
			if settings.EnableBrowserFallback {
				chrome := NewChromeFetcher(settings, WithChromeLogger(c.logger), WithChromeMetrics(c.metrics))
				c.closers = append(c.closers, chrome.Close)
				c.pageFetcher = &FallbackFetcher{
					Primary:      httpFetcher,
					Fallback:     chrome,
					MinTextWords: settings.MinContentWords,
					Logger:       c.logger,
				}
			}
		}
	}
	return c, nil
}

// Settings returns a copy of the coordinator's settings.
func (c *Coordinator) Settings() Settings { return c.settings.clone() }

// Close releases the browser process, if one was started.
func (c *Coordinator) Close() {
	for _, fn := range c.closers {
		fn()
	}
}

// Crawl runs the full pipeline for one site. Failures of individual
// documents and pages are recorded and do not fail the run; the returned
// error is set only when the run as a whole failed or was cancelled.
func (c *Coordinator) Crawl(ctx context.Context, site Site) (*CrawlReport, error) {
	r, err := c.begin(ctx, site, CrawlTypeFull)
	if err != nil {
		return r.report, err
	}

	if err := r.enter(PhaseDiscovering); err != nil {
		return r.fail(ctx, err)
	}
	discoverer := &Discoverer{Fetcher: c.sitemapFetcher, Paths: c.settings.SitemapPaths, Logger: r.logger}
	sitemapURL, err := discoverer.Discover(ctx, r.site.URL, r.site.SitemapURL)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.report.SitemapURL = sitemapURL
	r.logger.Info("sitemap resolved", zap.String("sitemap", sitemapURL))

	if err := r.enter(PhaseParsing); err != nil {
		return r.fail(ctx, err)
	}
	controller, err := c.newController(r.logger)
	if err != nil {
		return r.fail(ctx, err)
	}
	walker := &SitemapWalker{
		Fetcher:    c.sitemapFetcher,
		Controller: controller,
		MaxDepth:   c.settings.MaxSitemapDepth,
		SiteRoot:   r.site.URL,
		Logger:     r.logger,
		OnDocument: func(u string, completed, total int) { r.emit(completed, total, u) },
	}
	walked, err := walker.Walk(ctx, sitemapURL)
	if walked != nil {
		r.report.SitemapsSeen = len(walked.Sitemaps)
		r.report.SitemapFailures = len(walked.Failures)
		r.report.Truncated = walked.Truncated
		for _, f := range walked.Failures {
			if f.Depth > 0 || err == nil {
				r.recordError(f.URL, f.Err, f.Attempts)
			}
		}
		if len(walked.Sitemaps) > 0 {
			if serr := c.store.SaveSitemaps(r.wctx, r.site.ID, walked.Sitemaps); serr != nil {
				r.logger.Error("failed to save sitemaps", zap.Error(serr))
			}
		}
	}
	if err != nil {
		if ctx.Err() == nil {
			err = &NotFoundError{URL: sitemapURL, Err: err}
		}
		return r.fail(ctx, err)
	}

	return r.classifyAndExtract(ctx, walked.Entries)
}

// CrawlFromXML runs the pipeline on a sitemap document supplied by the
// caller instead of one found by discovery. Only URL sets carry pages; an
// index yields nothing and is logged.
func (c *Coordinator) CrawlFromXML(ctx context.Context, site Site, xml []byte) (*CrawlReport, error) {
	r, err := c.begin(ctx, site, CrawlTypeFull)
	if err != nil {
		return r.report, err
	}
	if err := r.enter(PhaseParsing); err != nil {
		return r.fail(ctx, err)
	}
	doc, err := ParseSitemap(xml)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.report.SitemapsSeen = 1
	if doc.Kind == KindIndex {
		r.logger.Warn("pasted sitemap is an index, its children are not followed",
			zap.Int("children", len(doc.Children)))
	}

	seen := make(map[uint64]struct{}, len(doc.Entries))
	entries := make([]SitemapEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		loc := upgradeScheme(e.Loc, r.site.URL)
		if n, err := NormalizeURL(loc); err == nil {
			loc = n
		}
		key := urlKey(loc)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		e.Loc = loc
		entries = append(entries, e)
	}
	return r.classifyAndExtract(ctx, entries)
}

// ExtractSite fetches and extracts the posts of a stored site that are
// pending or failed last time, without touching its sitemap.
func (c *Coordinator) ExtractSite(ctx context.Context, siteID uint) (*CrawlReport, error) {
	site, err := c.store.Site(ctx, siteID)
	if err != nil {
		return &CrawlReport{SiteID: siteID, Phase: PhaseFailed, Err: err, Error: err.Error()}, err
	}
	r, err := c.begin(ctx, *site, CrawlTypeExtraction)
	if err != nil {
		return r.report, err
	}
	known, err := c.store.KnownPosts(r.wctx, r.site.ID)
	if err != nil {
		return r.fail(ctx, storageError(err))
	}
	var queue []Post
	for _, p := range known {
		if p.Status == PostStatusPending || p.Status == PostStatusError {
			queue = append(queue, p)
		}
	}
	sortPostsByURL(queue)
	r.report.Queued = len(queue)
	return r.extract(ctx, queue)
}

// CrawlBatch crawls sites concurrently, at most SiteConcurrency at a time.
// Reports are returned in input order. A failing site never stops the
// others.
func (c *Coordinator) CrawlBatch(ctx context.Context, sites []Site) []*CrawlReport {
	reports := make([]*CrawlReport, len(sites))
	var g errgroup.Group
	g.SetLimit(c.settings.SiteConcurrency)
	for i, site := range sites {
		g.Go(func() error {
			report, err := c.Crawl(ctx, site)
			if err != nil {
				c.logger.Warn("site crawl failed", zap.String("site", site.URL), zap.Error(err))
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (c *Coordinator) newController(logger *zap.Logger) (*Controller, error) {
	return NewController(c.settings.Concurrency, c.settings.retryPolicy(),
		WithControllerLogger(logger),
		WithControllerMetrics(c.metrics))
}

// siteRun is the state of one site going through the pipeline. All of
// its methods run on the goroutine that called Crawl.
type siteRun struct {
	c      *Coordinator
	site   Site
	sm     *stateMachine
	run    *CrawlRun
	report *CrawlReport
	logger *zap.Logger
	// wctx is used for store writes so the final bookkeeping of a
	// cancelled run still lands.
	wctx context.Context
}

func (c *Coordinator) begin(ctx context.Context, site Site, kind CrawlType) (*siteRun, error) {
	r := &siteRun{
		c:      c,
		sm:     newStateMachine(),
		logger: c.logger,
		wctx:   context.WithoutCancel(ctx),
		report: &CrawlReport{JobID: c.jobID, SiteID: site.ID, SiteURL: site.URL, Phase: PhaseIdle, StartedAt: time.Now()},
	}

	root, _, err := NormalizeSiteURL(site.URL)
	if err != nil {
		r.report.Phase = PhaseFailed
		r.report.Err = err
		r.report.Error = err.Error()
		r.report.FinishedAt = time.Now()
		return r, err
	}
	site.URL = root
	if site.Status == "" {
		site.Status = SiteStatusActive
	}
	if err := c.store.UpsertSite(r.wctx, &site); err != nil {
		err = storageError(err)
		r.report.Phase = PhaseFailed
		r.report.Err = err
		r.report.Error = err.Error()
		r.report.FinishedAt = time.Now()
		return r, err
	}
	r.site = site
	r.report.SiteID = site.ID
	r.report.SiteURL = site.URL
	r.logger = c.logger.With(zap.String("site", site.URL), zap.Uint("site_id", site.ID))

	r.run = &CrawlRun{
		SiteID:    site.ID,
		JobID:     c.jobID,
		Type:      kind,
		Status:    RunStatusRunning,
		StartedAt: r.report.StartedAt,
	}
	if err := c.store.AppendCrawlRun(r.wctx, r.run); err != nil {
		r.logger.Error("failed to record crawl run", zap.Error(err))
	}
	r.report.RunID = r.run.ID
	if err := c.store.RefreshSiteStats(r.wctx, site.ID, SiteStatusCrawling, nil); err != nil {
		r.logger.Error("failed to refresh site stats", zap.Error(err))
	}
	return r, nil
}

// enter moves the state machine to phase and announces it.
func (r *siteRun) enter(phase Phase) error {
	if err := r.sm.transition(phase); err != nil {
		return err
	}
	r.report.Phase = phase
	r.c.metrics.ObservePhase(phase)
	r.logger.Debug("phase changed", zap.String("phase", string(phase)))
	r.emit(0, 0, "")
	return nil
}

func (r *siteRun) emit(completed, total int, last string) {
	ev := ProgressEvent{
		JobID:     r.c.jobID,
		SiteID:    r.site.ID,
		SiteURL:   r.site.URL,
		Phase:     r.sm.current(),
		Completed: completed,
		Total:     total,
		LastItem:  last,
		Mode:      r.report.Mode,
		Time:      time.Now(),
	}
	if r.report.Err != nil {
		ev.Err = r.report.Err.Error()
	}
	r.c.sink(ev)
}

// recordError persists a failure for later manual retry.
func (r *siteRun) recordError(url string, err error, attempts int) {
	rec := &ErrorRecord{
		SiteID:     r.site.ID,
		RunID:      r.run.ID,
		URL:        url,
		Category:   CategorizeError(err),
		Message:    err.Error(),
		RetryCount: attempts,
		CreatedAt:  time.Now(),
	}
	r.run.Errors++
	if serr := r.c.store.AppendError(r.wctx, rec); serr != nil {
		r.logger.Error("failed to record error", zap.String("url", url), zap.Error(serr))
	}
}

// classifyAndExtract runs the classification, persistence and extraction
// phases over the deduplicated sitemap entries.
func (r *siteRun) classifyAndExtract(ctx context.Context, entries []SitemapEntry) (*CrawlReport, error) {
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, err)
	}
	if err := r.enter(PhaseClassifying); err != nil {
		return r.fail(ctx, err)
	}
	r.report.Discovered = len(entries)

	urls := make([]string, len(entries))
	lastMod := make(map[string]*time.Time, len(entries))
	for i, e := range entries {
		urls[i] = e.Loc
		lastMod[e.Loc] = e.LastMod
	}
	cls := r.c.classifier.Classify(urls)
	r.report.Mode = cls.Mode
	r.run.Mode = cls.Mode
	r.report.Included = len(cls.Included)
	r.report.Excluded = len(cls.Excluded)
	if cls.Mode == ModePermissive && len(cls.Included) > 0 {
		r.logger.Warn("no URL matched the content patterns, including every non-excluded URL",
			zap.Int("included", len(cls.Included)),
			zap.Int("excluded", len(cls.Excluded)))
	} else {
		r.logger.Info("sitemap classified",
			zap.String("mode", string(cls.Mode)),
			zap.Int("included", len(cls.Included)),
			zap.Int("excluded", len(cls.Excluded)),
			zap.Int("skipped", len(cls.Skipped)))
	}

	if err := r.enter(PhasePersisting); err != nil {
		return r.fail(ctx, err)
	}
	known, err := r.c.store.KnownPosts(r.wctx, r.site.ID)
	if err != nil {
		return r.fail(ctx, storageError(err))
	}
	now := time.Now()
	posts := make([]Post, 0, len(cls.Included))
	for _, u := range cls.Included {
		posts = append(posts, Post{
			SiteID:       r.site.ID,
			URL:          u,
			Status:       PostStatusPending,
			LastModified: lastMod[u],
			DiscoveredAt: now,
		})
	}
	stored, created, err := r.c.store.UpsertPosts(r.wctx, r.site.ID, posts)
	if err != nil {
		return r.fail(ctx, storageError(err))
	}
	r.report.NewPosts = created
	r.run.NewPosts = created
	if err := r.c.store.RefreshSiteStats(r.wctx, r.site.ID, SiteStatusCrawling, nil); err != nil {
		r.logger.Error("failed to refresh site stats", zap.Error(err))
	}

	queue := make([]Post, 0, created)
	for _, u := range cls.Included {
		p, ok := stored[u]
		if !ok {
			continue
		}
		prev, existed := known[u]
		switch {
		case !existed, r.c.settings.ForceFullRecrawl:
			queue = append(queue, p)
		case r.c.settings.RecrawlChanged && changedSince(lastMod[u], prev.LastCrawledAt):
			queue = append(queue, p)
		}
	}
	r.report.Queued = len(queue)
	r.logger.Info("posts persisted",
		zap.Int("new", created),
		zap.Int("known", len(known)),
		zap.Int("queued", len(queue)))

	if len(queue) == 0 {
		return r.complete(ctx)
	}
	return r.extract(ctx, queue)
}

// pageResult is what a worker hands back for one page.
type pageResult struct {
	fetch      *FetchResult
	extraction *Extraction
}

// extract fetches and analyses queued posts through the Controller and
// persists each result as it arrives.
func (r *siteRun) extract(ctx context.Context, queue []Post) (*CrawlReport, error) {
	if err := r.enter(PhaseExtracting); err != nil {
		return r.fail(ctx, err)
	}
	if len(queue) == 0 {
		return r.complete(ctx)
	}
	extractor, err := NewExtractor(r.site.URL, r.c.settings.ExcludedDomains)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %v", ErrInvalidSettings, err))
	}
	controller, err := r.c.newController(r.logger)
	if err != nil {
		return r.fail(ctx, err)
	}

	byURL := make(map[string]Post, len(queue))
	urls := make([]string, len(queue))
	for i, p := range queue {
		byURL[p.URL] = p
		urls[i] = p.URL
	}

	fetcher := r.c.pageFetcher
	op := func(ctx context.Context, u string) (any, error) {
		res, err := fetcher.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		if len(res.Body) == 0 {
			return nil, &ParseError{URL: u, Err: ErrEmptyBody}
		}
		base := res.FinalURL
		if base == "" {
			base = u
		}
		ex, err := extractor.Extract(res.Body, base)
		if err != nil {
			return nil, err
		}
		res.Body = nil
		return &pageResult{fetch: res, extraction: ex}, nil
	}

	done := 0
	for res := range controller.Run(ctx, urls, op) {
		done++
		post := byURL[res.Item]
		if res.OK() {
			r.persistPage(&post, res.Payload.(*pageResult))
		} else {
			r.pageFailed(&post, res)
		}
		r.emit(done, len(urls), res.Item)
	}

	if ctx.Err() != nil {
		return r.fail(ctx, ctx.Err())
	}
	return r.complete(ctx)
}

func (r *siteRun) persistPage(post *Post, page *pageResult) {
	now := time.Now()
	links := make([]OutgoingLink, 0, len(page.extraction.Links))
	for _, l := range page.extraction.Links {
		links = append(links, OutgoingLink{
			PostID:              post.ID,
			SiteID:              r.site.ID,
			TargetURL:           l.URL,
			AnchorText:          l.AnchorText,
			Paragraph:           l.Paragraph,
			WordOffset:          l.WordOffset,
			ParagraphWordOffset: l.ParagraphWordOffset,
			Location:            l.Location,
			InPrimaryContent:    l.InPrimaryContent,
			Rel:                 l.Rel,
			Target:              l.Target,
			NoFollow:            l.NoFollow,
			Sponsored:           l.Sponsored,
			UGC:                 l.UGC,
		})
	}
	if err := r.c.store.ReplaceLinks(r.wctx, post.ID, links); err != nil {
		r.logger.Error("failed to store links", zap.String("url", post.URL), zap.Error(err))
		r.pageFailed(post, Result{Item: post.URL, Err: storageError(err), Attempts: 1})
		return
	}

	post.Title = page.extraction.Title
	post.Status = PostStatusExtracted
	post.LinkCount = len(links)
	post.ContentHash = page.extraction.ContentHash
	post.FetchStrategy = string(page.fetch.Strategy)
	post.ScreenshotPath = page.fetch.ScreenshotPath
	post.LastCrawledAt = &now
	if err := r.c.store.UpdatePost(r.wctx, post); err != nil {
		r.logger.Error("failed to update post", zap.String("url", post.URL), zap.Error(err))
	}
	if err := r.c.store.ResolveErrors(r.wctx, r.site.ID, post.URL); err != nil {
		r.logger.Warn("failed to resolve errors", zap.String("url", post.URL), zap.Error(err))
	}

	r.report.Extracted++
	r.report.NewLinks += len(links)
	r.run.NewLinks += len(links)
	r.c.metrics.AddLinks(len(links))
	r.logger.Debug("page extracted",
		zap.String("url", post.URL),
		zap.String("strategy", post.FetchStrategy),
		zap.String("region", page.extraction.Region),
		zap.Int("links", len(links)))
}

func (r *siteRun) pageFailed(post *Post, res Result) {
	if errors.Is(res.Err, context.Canceled) {
		// the run is being cancelled, the post stays pending
		return
	}
	r.report.Failed++
	r.recordError(post.URL, res.Err, res.Attempts)
	r.logger.Warn("page failed",
		zap.String("url", post.URL),
		zap.Int("attempts", res.Attempts),
		zap.String("category", string(CategorizeError(res.Err))),
		zap.Error(res.Err))

	now := time.Now()
	post.Status = PostStatusError
	post.LastCrawledAt = &now
	if err := r.c.store.UpdatePost(r.wctx, post); err != nil {
		r.logger.Error("failed to update post", zap.String("url", post.URL), zap.Error(err))
	}
}

func (r *siteRun) complete(ctx context.Context) (*CrawlReport, error) {
	if err := r.sm.transition(PhaseCompleted); err != nil {
		return r.fail(ctx, err)
	}
	r.report.Phase = PhaseCompleted
	r.c.metrics.ObservePhase(PhaseCompleted)
	r.finish(RunStatusCompleted, SiteStatusActive, "")
	r.logger.Info("crawl completed",
		zap.Int("new_posts", r.report.NewPosts),
		zap.Int("extracted", r.report.Extracted),
		zap.Int("links", r.report.NewLinks),
		zap.Int("failed", r.report.Failed),
		zap.Duration("elapsed", r.report.FinishedAt.Sub(r.report.StartedAt)))
	r.emit(r.report.Extracted+r.report.Failed, r.report.Queued, "")
	return r.report, nil
}

// fail ends the run as cancelled when ctx is done and as failed otherwise.
func (r *siteRun) fail(ctx context.Context, err error) (*CrawlReport, error) {
	if ctx.Err() != nil {
		r.sm.transition(PhaseCancelled)
		r.report.Phase = PhaseCancelled
		r.report.Err = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		r.report.Error = r.report.Err.Error()
		r.c.metrics.ObservePhase(PhaseCancelled)
		r.finish(RunStatusCancelled, SiteStatusActive, "cancelled")
		r.logger.Info("crawl cancelled", zap.Int("extracted", r.report.Extracted))
		r.emit(r.report.Extracted+r.report.Failed, r.report.Queued, "")
		return r.report, r.report.Err
	}

	siteStatus := SiteStatusError
	var df *DiscoveryFailedError
	var nf *NotFoundError
	if errors.As(err, &df) || errors.As(err, &nf) {
		siteStatus = SiteStatusDiscoveryFailed
	}
	url := r.report.SitemapURL
	if url == "" {
		url = r.site.URL
	}
	r.recordError(url, err, 1)

	r.sm.transition(PhaseFailed)
	r.report.Phase = PhaseFailed
	r.report.Err = err
	r.report.Error = err.Error()
	r.c.metrics.ObservePhase(PhaseFailed)
	r.finish(RunStatusFailed, siteStatus, err.Error())
	r.logger.Warn("crawl failed", zap.String("category", string(CategorizeError(err))), zap.Error(err))
	r.emit(0, 0, "")
	return r.report, err
}

func (r *siteRun) finish(status RunStatus, siteStatus SiteStatus, message string) {
	now := time.Now()
	r.report.FinishedAt = now
	r.run.Status = status
	r.run.CompletedAt = &now
	r.run.Message = message
	if err := r.c.store.FinishCrawlRun(r.wctx, r.run); err != nil {
		r.logger.Error("failed to finish crawl run", zap.Error(err))
	}
	if err := r.c.store.RefreshSiteStats(r.wctx, r.site.ID, siteStatus, &now); err != nil {
		r.logger.Error("failed to refresh site stats", zap.Error(err))
	}
}

// storageError marks a store failure for categorization.
func storageError(err error) error {
	return &StorageError{Err: err}
}

// changedSince reports whether a sitemap lastmod is newer than the last
// crawl of a post.
func changedSince(lastMod, crawled *time.Time) bool {
	if lastMod == nil {
		return false
	}
	return crawled == nil || lastMod.After(*crawled)
}

func sortPostsByURL(posts []Post) {
	slices.SortFunc(posts, func(a, b Post) int { return strings.Compare(a.URL, b.URL) })
}
