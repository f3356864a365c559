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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agentberlin/outlinks"
	"github.com/agentberlin/outlinks/internal/app"
	"github.com/agentberlin/outlinks/internal/types"
	"github.com/spf13/cobra"
)

type crawlFlags struct {
	sitemapURL string
	force      bool
	retry      uint
	quiet      bool
	jsonOutput bool
}

func newCrawlCmd(g *globalFlags) *cobra.Command {
	var flags crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Discover sitemaps and extract outgoing links of one or more sites",
		Example: `  # Crawl a blog
  outlinks crawl https://blog.example.com

  # Use an explicit sitemap
  outlinks crawl https://blog.example.com --sitemap https://blog.example.com/post-sitemap.xml

  # Re-extract every known post
  outlinks crawl https://blog.example.com --force

  # Retry the pending and failed posts of site 3
  outlinks crawl --retry 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.retry == 0 && len(args) == 0 {
				return errors.New("at least one URL is required")
			}
			return runCrawl(cmd, g, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.sitemapURL, "sitemap", "", "explicit sitemap URL, skips discovery (single site only)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "re-extract posts that were already crawled")
	cmd.Flags().UintVar(&flags.retry, "retry", 0, "retry pending and failed posts of the site with this ID")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress progress output")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "print the final reports as JSON")
	return cmd
}

func runCrawl(cmd *cobra.Command, g *globalFlags, flags crawlFlags, args []string) error {
	out := cmd.OutOrStdout()
	progress := &progressPrinter{out: out, quiet: flags.quiet || flags.jsonOutput}

	e, err := g.open(app.EmitterFunc(progress.emit), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	var job *types.JobInfo
	if flags.retry != 0 {
		job, err = e.app.RetryFailed(cmd.Context(), flags.retry)
	} else {
		job, err = e.app.StartCrawl(cmd.Context(), types.CrawlRequest{
			Sites:            args,
			SitemapURL:       flags.sitemapURL,
			ForceFullRecrawl: flags.force,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to start crawl: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done, err := e.app.WaitJob(ctx, job.ID)
	if err != nil {
		if !progress.quiet {
			fmt.Fprintln(out, "\nStopping crawl...")
		}
		if stopErr := e.app.StopCrawl(job.ID); stopErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to stop crawl cleanly: %v\n", stopErr)
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if done, err = e.app.WaitJob(waitCtx, job.ID); err != nil {
			return err
		}
	}

	if flags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(done)
	}
	printReports(out, done)
	if done.Status == types.JobFailed {
		return errors.New("crawl failed")
	}
	return nil
}

// progressPrinter renders progress events as one line per site and phase.
type progressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	last  map[string]outlinks.Phase
}

func (p *progressPrinter) emit(eventType app.EventType, data interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch eventType {
	case app.EventCrawlStarted:
		if job, ok := data.(*types.JobInfo); ok {
			fmt.Fprintf(p.out, "Job %s started for %d site(s)\n", job.ID, len(job.Sites))
		}
	case app.EventCrawlProgress:
		ev, ok := data.(outlinks.ProgressEvent)
		if !ok {
			return
		}
		if p.last == nil {
			p.last = make(map[string]outlinks.Phase)
		}
		if p.last[ev.SiteURL] != ev.Phase {
			p.last[ev.SiteURL] = ev.Phase
			fmt.Fprintf(p.out, "%s: %s\n", ev.SiteURL, ev.Phase)
		}
		if ev.Phase == outlinks.PhaseExtracting && ev.Total > 0 && (ev.Completed == ev.Total || ev.Completed%25 == 0) {
			fmt.Fprintf(p.out, "%s: extracted %d/%d\n", ev.SiteURL, ev.Completed, ev.Total)
		}
		if ev.Err != "" {
			fmt.Fprintf(p.out, "%s: %s\n", ev.SiteURL, ev.Err)
		}
	}
}

func printReports(out io.Writer, job *types.JobInfo) {
	fmt.Fprintf(out, "\nJob %s %s\n", job.ID, job.Status)
	for _, r := range job.Reports {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "\n%s (site %d)\n", r.SiteURL, r.SiteID)
		fmt.Fprintf(out, "  Phase:      %s\n", r.Phase)
		if r.Mode != "" {
			fmt.Fprintf(out, "  Mode:       %s\n", r.Mode)
		}
		fmt.Fprintf(out, "  Sitemaps:   %d (%d failed)\n", r.SitemapsSeen, r.SitemapFailures)
		fmt.Fprintf(out, "  URLs:       %d discovered, %d included, %d excluded\n", r.Discovered, r.Included, r.Excluded)
		fmt.Fprintf(out, "  Posts:      %d new, %d queued, %d extracted, %d failed\n", r.NewPosts, r.Queued, r.Extracted, r.Failed)
		fmt.Fprintf(out, "  Links:      %d\n", r.NewLinks)
		if r.Error != "" {
			fmt.Fprintf(out, "  Error:      %s\n", r.Error)
		}
	}
}
