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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/agentberlin/outlinks/internal/app"
	"github.com/agentberlin/outlinks/internal/types"
	"github.com/spf13/cobra"
)

// Exporter writes the links of one site to a file.
type Exporter struct {
	app       *app.App
	siteID    uint
	outputDir string
	format    string
}

// exportRow is one link together with the post it was found on.
type exportRow struct {
	PostID  uint   `json:"postId"`
	PostURL string `json:"postUrl"`
	types.LinkInfo
}

func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <site-id>",
		Short: "Export the outgoing links of a site to JSON or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if format != "json" && format != "csv" {
				return fmt.Errorf("invalid format: %s (must be json or csv)", format)
			}
			e, err := g.open(nil, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			exporter := &Exporter{app: e.app, siteID: siteID, outputDir: output, format: format}
			path, n, err := exporter.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to export links: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d links to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: json, csv")
	return cmd
}

// Export writes every extracted link of the site and returns the file path
// and the number of links written.
func (e *Exporter) Export(ctx context.Context) (string, int, error) {
	site, err := e.app.GetSite(ctx, e.siteID)
	if err != nil {
		return "", 0, err
	}
	rows, err := e.collect(ctx)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %v", err)
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("outlinks_site_%d.%s", e.siteID, e.format))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	if e.format == "json" {
		err = e.writeJSON(f, site, rows)
	} else {
		err = e.writeCSV(f, rows)
	}
	if err != nil {
		return "", 0, err
	}
	return path, len(rows), nil
}

func (e *Exporter) collect(ctx context.Context) ([]exportRow, error) {
	const pageSize = 500
	var rows []exportRow
	for offset := 0; ; offset += pageSize {
		page, err := e.app.ListPosts(ctx, e.siteID, "extracted", pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Posts {
			if p.LinkCount == 0 {
				continue
			}
			resp, err := e.app.PostLinks(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			for _, l := range resp.Links {
				rows = append(rows, exportRow{PostID: p.ID, PostURL: p.URL, LinkInfo: l})
			}
		}
		if len(page.Posts) < pageSize {
			return rows, nil
		}
	}
}

func (e *Exporter) writeJSON(f *os.File, site *types.SiteInfo, rows []exportRow) error {
	output := struct {
		Site       string      `json:"site"`
		ExportedAt string      `json:"exportedAt"`
		TotalLinks int         `json:"totalLinks"`
		Links      []exportRow `json:"links"`
	}{
		Site:       site.URL,
		ExportedAt: time.Now().Format(time.RFC3339),
		TotalLinks: len(rows),
		Links:      rows,
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (e *Exporter) writeCSV(f *os.File, rows []exportRow) error {
	w := csv.NewWriter(f)

	header := []string{
		"Post ID",
		"Post URL",
		"Target URL",
		"Anchor Text",
		"Paragraph",
		"Word Offset",
		"Paragraph Word Offset",
		"Location",
		"Primary Content",
		"Rel",
		"Target",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.PostID), 10),
			r.PostURL,
			r.URL,
			r.AnchorText,
			strconv.Itoa(r.Paragraph),
			strconv.Itoa(r.WordOffset),
			strconv.Itoa(r.ParagraphWordOffset),
			r.Location,
			strconv.FormatBool(r.InPrimaryContent),
			r.Rel,
			r.Target,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
