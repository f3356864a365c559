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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ID: %s", arg)
	}
	return uint(id), nil
}

func newSitesCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List registered sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			sites, err := e.app.ListSites(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sites: %v", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, sites)
			}
			if len(sites) == 0 {
				fmt.Fprintln(out, "No sites found.")
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "ID\tURL\tSTATUS\tPOSTS\tLINKS\tLAST CRAWL")
			for _, s := range sites {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", s.ID, truncate(s.URL, 50), s.Status, s.TotalPosts, s.TotalLinks, formatTime(s.LastCrawledAt))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newPostsCmd(g *globalFlags) *cobra.Command {
	var (
		status     string
		limit      int
		offset     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "posts <site-id>",
		Short: "List the posts of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			page, err := e.app.ListPosts(cmd.Context(), siteID, status, limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list posts: %v", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, page)
			}

			w := newTable(out)
			fmt.Fprintln(w, "ID\tURL\tSTATUS\tLINKS\tFETCH\tLAST CRAWL")
			for _, p := range page.Posts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", p.ID, truncate(p.URL, 70), p.Status, p.LinkCount, p.FetchStrategy, formatTime(p.LastCrawledAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d posts\n", len(page.Posts), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status: pending, extracted, error")
	cmd.Flags().IntVar(&limit, "limit", 100, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newLinksCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "links <post-id>",
		Short: "Show the outgoing links of a post with their position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := e.app.PostLinks(cmd.Context(), postID)
			if err != nil {
				return fmt.Errorf("failed to get links: %v", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, resp)
			}

			fmt.Fprintf(out, "%s\n%s\n\n", resp.Post.URL, resp.Post.Title)
			w := newTable(out)
			fmt.Fprintln(w, "PARA\tWORD\tLOCATION\tREL\tTARGET\tANCHOR")
			for _, l := range resp.Links {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", l.Paragraph, l.WordOffset, l.Location, l.Rel, truncate(l.URL, 60), truncate(l.AnchorText, 40))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newErrorsCmd(g *globalFlags) *cobra.Command {
	var (
		siteID          uint
		category        string
		includeResolved bool
		limit           int
		jsonOutput      bool
	)

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List recorded crawl failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			errs, err := e.app.Errors(cmd.Context(), siteID, category, includeResolved, limit)
			if err != nil {
				return fmt.Errorf("failed to list errors: %v", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, errs)
			}
			if len(errs) == 0 {
				fmt.Fprintln(out, "No errors recorded.")
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "ID\tSITE\tCATEGORY\tRETRIES\tURL\tMESSAGE")
			for _, r := range errs {
				fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\n", r.ID, r.SiteID, r.Category, r.RetryCount, truncate(r.URL, 60), truncate(r.Message, 60))
			}
			return w.Flush()
		},
	}
	cmd.Flags().UintVar(&siteID, "site-id", 0, "only errors of this site")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().BoolVar(&includeResolved, "all", false, "include resolved errors")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of errors")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}
