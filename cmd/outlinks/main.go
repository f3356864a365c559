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

// Outlinks
//
// Command-line interface for the outlinks crawler. It discovers the
// sitemaps of blogs, extracts the external links of every post and keeps
// them in a local SQLite database.
//
// Usage:
//
//	outlinks <command> [flags]
//
// Commands:
//
//	crawl     Crawl one or more sites
//	sites     List registered sites
//	posts     List the posts of a site
//	links     Show the outgoing links of a post
//	errors    List recorded failures
//	export    Export links to JSON or CSV
//	serve     Run the REST API
//	mcp       Run the MCP server
//	version   Show version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
