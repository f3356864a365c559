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

package mcp

import (
	"context"
	"fmt"

	"github.com/agentberlin/outlinks/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func (s *MCPServer) registerTools() {
	s.registerCrawlSiteTool()
	s.registerStopCrawlTool()
	s.registerGetCrawlStatusTool()
	s.registerRetryFailedTool()
	s.registerListSitesTool()
	s.registerListPostsTool()
	s.registerGetPostLinksTool()
	s.registerListErrorsTool()
	s.registerGetStatsTool()
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// CrawlSiteArgs defines the input schema for crawl_site tool
type CrawlSiteArgs struct {
	Sites            []string `json:"sites" jsonschema:"site root URLs to crawl, e.g. https://blog.example.com"`
	SitemapURL       string   `json:"sitemapUrl,omitempty" jsonschema:"explicit sitemap URL, only with a single site"`
	ForceFullRecrawl bool     `json:"forceFullRecrawl,omitempty" jsonschema:"re-extract posts that were already crawled"`
}

// JobResult is the output of the tools that start or inspect a job.
type JobResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Job     *types.JobInfo `json:"job,omitempty"`
}

func (s *MCPServer) registerCrawlSiteTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl_site",
		Description: "Discovers the sitemaps of one or more sites, classifies their URLs and extracts the outgoing links of each post in the background",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CrawlSiteArgs) (*mcp.CallToolResult, JobResult, error) {
		s.logger.Info("tool called", zap.String("tool", "crawl_site"), zap.Strings("sites", args.Sites))

		job, err := s.app.StartCrawl(ctx, types.CrawlRequest{
			Sites:            args.Sites,
			SitemapURL:       args.SitemapURL,
			ForceFullRecrawl: args.ForceFullRecrawl,
		})
		if err != nil {
			return nil, JobResult{Success: false, Message: fmt.Sprintf("Failed to start crawl: %v", err)}, nil
		}
		return textResult("Crawl started (job %s) for %d site(s)", job.ID, len(job.Sites)),
			JobResult{Success: true, Message: "Crawl started", Job: job}, nil
	})
}

// JobArgs identifies a job.
type JobArgs struct {
	JobID string `json:"jobId" jsonschema:"job ID returned by crawl_site"`
}

func (s *MCPServer) registerStopCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_crawl",
		Description: "Cancels a running crawl job. Posts not yet extracted stay pending for the next crawl",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args JobArgs) (*mcp.CallToolResult, JobResult, error) {
		if err := s.app.StopCrawl(args.JobID); err != nil {
			return nil, JobResult{Success: false, Message: err.Error()}, nil
		}
		return textResult("Stop signal sent to job %s", args.JobID),
			JobResult{Success: true, Message: "Stop signal sent"}, nil
	})
}

func (s *MCPServer) registerGetCrawlStatusTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_crawl_status",
		Description: "Returns the phase and progress of every site in a crawl job, and the final reports once it finished",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args JobArgs) (*mcp.CallToolResult, JobResult, error) {
		job, err := s.app.JobStatus(args.JobID)
		if err != nil {
			return nil, JobResult{Success: false, Message: err.Error()}, nil
		}
		return nil, JobResult{Success: true, Message: string(job.Status), Job: job}, nil
	})
}

// SiteArgs identifies a site.
type SiteArgs struct {
	SiteID uint `json:"siteId" jsonschema:"site ID from list_sites"`
}

func (s *MCPServer) registerRetryFailedTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retry_failed",
		Description: "Re-extracts the pending and failed posts of a site without re-reading its sitemap",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SiteArgs) (*mcp.CallToolResult, JobResult, error) {
		job, err := s.app.RetryFailed(ctx, args.SiteID)
		if err != nil {
			return nil, JobResult{Success: false, Message: err.Error()}, nil
		}
		return nil, JobResult{Success: true, Message: "Retry started", Job: job}, nil
	})
}

// ListSitesResult lists the registered sites.
type ListSitesResult struct {
	Sites []types.SiteInfo `json:"sites"`
}

func (s *MCPServer) registerListSitesTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sites",
		Description: "Lists every registered site with its post and link totals",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, ListSitesResult, error) {
		sites, err := s.app.ListSites(ctx)
		if err != nil {
			return nil, ListSitesResult{}, err
		}
		return nil, ListSitesResult{Sites: sites}, nil
	})
}

// ListPostsArgs selects a page of posts.
type ListPostsArgs struct {
	SiteID uint   `json:"siteId" jsonschema:"site ID from list_sites"`
	Status string `json:"status,omitempty" jsonschema:"pending, extracted or error"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size, default 100"`
	Offset int    `json:"offset,omitempty"`
}

func (s *MCPServer) registerListPostsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_posts",
		Description: "Lists the posts of a site, optionally filtered by status",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListPostsArgs) (*mcp.CallToolResult, types.PostsResponse, error) {
		posts, err := s.app.ListPosts(ctx, args.SiteID, args.Status, args.Limit, args.Offset)
		if err != nil {
			return nil, types.PostsResponse{}, err
		}
		return nil, *posts, nil
	})
}

// PostArgs identifies a post.
type PostArgs struct {
	PostID uint `json:"postId" jsonschema:"post ID from list_posts"`
}

func (s *MCPServer) registerGetPostLinksTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_post_links",
		Description: "Returns the external links of a post with anchor text, paragraph, word offset and location on the page",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PostArgs) (*mcp.CallToolResult, types.PostLinksResponse, error) {
		links, err := s.app.PostLinks(ctx, args.PostID)
		if err != nil {
			return nil, types.PostLinksResponse{}, err
		}
		return nil, *links, nil
	})
}

// ListErrorsArgs filters error records.
type ListErrorsArgs struct {
	SiteID          uint   `json:"siteId,omitempty" jsonschema:"limit to one site"`
	Category        string `json:"category,omitempty" jsonschema:"discovery_failed, parse_error, transient_fetch, permanent_fetch or storage"`
	IncludeResolved bool   `json:"includeResolved,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// ListErrorsResult lists recorded failures.
type ListErrorsResult struct {
	Errors []types.ErrorInfo `json:"errors"`
}

func (s *MCPServer) registerListErrorsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_errors",
		Description: "Lists recorded crawl failures, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListErrorsArgs) (*mcp.CallToolResult, ListErrorsResult, error) {
		errs, err := s.app.Errors(ctx, args.SiteID, args.Category, args.IncludeResolved, args.Limit)
		if err != nil {
			return nil, ListErrorsResult{}, err
		}
		return nil, ListErrorsResult{Errors: errs}, nil
	})
}

// StatsResult mirrors the database summary.
type StatsResult struct {
	Sites            int64            `json:"sites"`
	Posts            int64            `json:"posts"`
	Links            int64            `json:"links"`
	PostsByStatus    map[string]int64 `json:"postsByStatus"`
	RunningCrawls    int64            `json:"runningCrawls"`
	UnresolvedErrors int64            `json:"unresolvedErrors"`
}

func (s *MCPServer) registerGetStatsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Returns totals of sites, posts, links, running crawls and open errors",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, StatsResult, error) {
		st, err := s.app.Stats(ctx)
		if err != nil {
			return nil, StatsResult{}, err
		}
		return nil, StatsResult(*st), nil
	})
}
