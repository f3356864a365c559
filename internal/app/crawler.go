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
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrJobNotFound is returned for unknown or forgotten job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrAlreadyCrawling is returned when a site is part of a running job.
	ErrAlreadyCrawling = errors.New("crawl already in progress for this site")
)

// job tracks a running or finished crawl job
type job struct {
	id        string
	kind      string
	sites     []string
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	mu         sync.RWMutex
	status     types.JobStatus
	progress   map[string]*outlinks.ProgressTracker
	last       map[string]outlinks.ProgressEvent
	reports    []*outlinks.CrawlReport
	finishedAt *time.Time
}

func (j *job) observe(ev outlinks.ProgressEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := ev.SiteURL
	tracker, ok := j.progress[key]
	if !ok || tracker.Total != ev.Total {
		tracker = outlinks.NewProgressTracker(ev.Total)
		j.progress[key] = tracker
	}
	tracker.Update(ev.Completed)
	j.last[key] = ev
}

func (j *job) info() *types.JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	info := &types.JobInfo{
		ID:         j.id,
		Kind:       j.kind,
		Status:     j.status,
		Sites:      append([]string(nil), j.sites...),
		Reports:    append([]*outlinks.CrawlReport(nil), j.reports...),
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
	for _, site := range j.sites {
		ev, ok := j.last[site]
		if !ok {
			info.Progress = append(info.Progress, types.SiteProgress{SiteURL: site, Phase: outlinks.PhaseIdle})
			continue
		}
		info.Progress = append(info.Progress, types.SiteProgress{
			SiteURL:    site,
			SiteID:     ev.SiteID,
			Phase:      ev.Phase,
			Mode:       ev.Mode,
			Completed:  ev.Completed,
			Total:      ev.Total,
			Percentage: j.progress[site].Percentage(),
			LastItem:   ev.LastItem,
			Error:      ev.Err,
		})
	}
	return info
}

// StartCrawl runs the full pipeline for the requested sites in the
// background and returns the new job. Several sites are crawled as a
// batch under the SiteConcurrency limit.
func (a *App) StartCrawl(ctx context.Context, req types.CrawlRequest) (*types.JobInfo, error) {
	if len(req.Sites) == 0 {
		return nil, errors.New("at least one site is required")
	}
	if req.SitemapURL != "" && len(req.Sites) > 1 {
		return nil, errors.New("a sitemap URL can only be given for a single site")
	}

	sites := make([]outlinks.Site, 0, len(req.Sites))
	seen := make(map[string]bool, len(req.Sites))
	for _, raw := range req.Sites {
		root, _, err := outlinks.NormalizeSiteURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %v", raw, err)
		}
		if seen[root] {
			continue
		}
		seen[root] = true
		sites = append(sites, outlinks.Site{URL: root, SitemapURL: req.SitemapURL})
	}

	settings, err := a.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if req.ForceFullRecrawl {
		settings.ForceFullRecrawl = true
	}

	return a.startJob(settings, "crawl", sites, func(ctx context.Context, c *outlinks.Coordinator) []*outlinks.CrawlReport {
		if len(sites) == 1 {
			report, _ := c.Crawl(ctx, sites[0])
			return []*outlinks.CrawlReport{report}
		}
		return c.CrawlBatch(ctx, sites)
	})
}

// ImportSitemap runs classification and extraction over pasted sitemap
// XML for a site, skipping discovery.
func (a *App) ImportSitemap(ctx context.Context, siteURL string, xml []byte) (*types.JobInfo, error) {
	root, _, err := outlinks.NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %v", siteURL, err)
	}
	settings, err := a.Settings(ctx)
	if err != nil {
		return nil, err
	}
	site := outlinks.Site{URL: root}
	return a.startJob(settings, "import", []outlinks.Site{site}, func(ctx context.Context, c *outlinks.Coordinator) []*outlinks.CrawlReport {
		report, _ := c.CrawlFromXML(ctx, site, xml)
		return []*outlinks.CrawlReport{report}
	})
}

// RetryFailed re-extracts the pending and failed posts of a stored site.
func (a *App) RetryFailed(ctx context.Context, siteID uint) (*types.JobInfo, error) {
	site, err := a.store.Site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	settings, err := a.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return a.startJob(settings, "retry", []outlinks.Site{*site}, func(ctx context.Context, c *outlinks.Coordinator) []*outlinks.CrawlReport {
		report, _ := c.ExtractSite(ctx, siteID)
		return []*outlinks.CrawlReport{report}
	})
}

func (a *App) startJob(settings outlinks.Settings, kind string, sites []outlinks.Site, run func(context.Context, *outlinks.Coordinator) []*outlinks.CrawlReport) (*types.JobInfo, error) {
	id := uuid.NewString()
	opts := []outlinks.CoordinatorOption{
		outlinks.WithLogger(a.logger.With(zap.String("job", id))),
		outlinks.WithJobID(id),
	}
	if a.metrics != nil {
		opts = append(opts, outlinks.WithMetrics(a.metrics))
	}

	ctx, cancel := context.WithCancel(a.ctx)
	j := &job{
		id:        id,
		kind:      kind,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
		status:    types.JobRunning,
		progress:  make(map[string]*outlinks.ProgressTracker),
		last:      make(map[string]outlinks.ProgressEvent),
	}
	for _, s := range sites {
		j.sites = append(j.sites, s.URL)
	}

	opts = append(opts, outlinks.WithProgress(func(ev outlinks.ProgressEvent) {
		j.observe(ev)
		a.emitter.Emit(EventCrawlProgress, ev)
	}))
	coordinator, err := outlinks.NewCoordinator(a.store, settings, append(opts, a.coordOpts...)...)
	if err != nil {
		cancel()
		return nil, err
	}

	a.jobsMutex.Lock()
	for _, s := range j.sites {
		if other, busy := a.activeSite[s]; busy {
			a.jobsMutex.Unlock()
			cancel()
			coordinator.Close()
			return nil, fmt.Errorf("%w: %s (job %s)", ErrAlreadyCrawling, s, other)
		}
	}
	for _, s := range j.sites {
		a.activeSite[s] = id
	}
	a.jobs[id] = j
	a.wg.Add(1)
	a.jobsMutex.Unlock()

	a.logger.Info("job started", zap.String("job", id), zap.String("kind", kind), zap.Strings("sites", j.sites))
	a.emitter.Emit(EventCrawlStarted, j.info())

	go func() {
		defer a.wg.Done()
		defer cancel()
		defer coordinator.Close()

		reports := run(ctx, coordinator)
		a.finishJob(j, ctx, reports)
	}()
	return j.info(), nil
}

func (a *App) finishJob(j *job, ctx context.Context, reports []*outlinks.CrawlReport) {
	now := time.Now()
	status := types.JobCompleted
	switch {
	case ctx.Err() != nil:
		status = types.JobCancelled
	case slices.ContainsFunc(reports, func(r *outlinks.CrawlReport) bool { return r != nil && r.Phase == outlinks.PhaseFailed }):
		status = types.JobFailed
	}

	j.mu.Lock()
	j.status = status
	j.reports = reports
	j.finishedAt = &now
	j.mu.Unlock()

	a.jobsMutex.Lock()
	for _, s := range j.sites {
		if a.activeSite[s] == j.id {
			delete(a.activeSite, s)
		}
	}
	a.jobsMutex.Unlock()
	close(j.done)

	a.logger.Info("job finished", zap.String("job", j.id), zap.String("status", string(status)), zap.Duration("elapsed", now.Sub(j.startedAt)))
	if status == types.JobCancelled {
		a.emitter.Emit(EventCrawlStopped, j.info())
	} else {
		a.emitter.Emit(EventCrawlCompleted, j.info())
	}
}

// StopCrawl cancels a running job. Posts not yet extracted stay pending
// for the next run.
func (a *App) StopCrawl(jobID string) error {
	a.jobsMutex.RLock()
	j, exists := a.jobs[jobID]
	a.jobsMutex.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	j.cancel()
	a.logger.Info("stop signal sent", zap.String("job", jobID))
	return nil
}

// JobStatus returns a snapshot of a job.
func (a *App) JobStatus(jobID string) (*types.JobInfo, error) {
	a.jobsMutex.RLock()
	j, exists := a.jobs[jobID]
	a.jobsMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return j.info(), nil
}

// ListJobs returns every job of this process, newest first.
func (a *App) ListJobs() []types.JobInfo {
	a.jobsMutex.RLock()
	jobs := make([]*job, 0, len(a.jobs))
	for _, j := range a.jobs {
		jobs = append(jobs, j)
	}
	a.jobsMutex.RUnlock()

	out := make([]types.JobInfo, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, *j.info())
	}
	slices.SortFunc(out, func(x, y types.JobInfo) int { return y.StartedAt.Compare(x.StartedAt) })
	return out
}

// WaitJob blocks until the job finishes or ctx is done.
func (a *App) WaitJob(ctx context.Context, jobID string) (*types.JobInfo, error) {
	a.jobsMutex.RLock()
	j, exists := a.jobs[jobID]
	a.jobsMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	select {
	case <-j.done:
		return j.info(), nil
	case <-ctx.Done():
		return j.info(), ctx.Err()
	}
}

func (a *App) isCrawling(siteURL string) bool {
	a.jobsMutex.RLock()
	defer a.jobsMutex.RUnlock()
	_, busy := a.activeSite[siteURL]
	return busy
}
