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
	"strings"

	"golang.org/x/net/html"
)

// classifyLocation returns the structural context of a link that lies
// outside the primary content region. Ancestors are inspected from the
// nearest outwards and the first one carrying a recognizable marker
// decides: semantic elements, ARIA roles, then class and id patterns.
func classifyLocation(link *html.Node) LinkLocation {
	for n := link.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if loc, ok := locationOf(n); ok {
			return loc
		}
	}
	return LocationOther
}

func locationOf(n *html.Node) (LinkLocation, bool) {
	name := n.Data
	role := strings.ToLower(attr(n, "role"))
	names := attrNames(n)

	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return LocationHeading, true
	}

	// breadcrumbs and pagination before navigation, they are more specific
	if hasMarker(names, "breadcrumb", "breadcrumbs", "crumbs") {
		return LocationBreadcrumbs, true
	}
	if hasMarker(names, "pagination", "pager", "page-number", "page-numbers") {
		return LocationPagination, true
	}

	if name == "nav" || role == "navigation" || hasMarker(names, "nav", "navbar", "navigation", "menu", "menubar") {
		return LocationNavigation, true
	}

	if name == "aside" || role == "complementary" || hasMarker(names, sidebarMarkers...) {
		return LocationSidebar, true
	}

	if name == "header" || role == "banner" || hasMarker(names, "header", "masthead", "topbar") {
		return LocationHeader, true
	}

	if name == "footer" || role == "contentinfo" || hasMarker(names, "footer") {
		return LocationFooter, true
	}
	return "", false
}

// sidebarMarkers are class and id names of blog sidebars and widgets.
var sidebarMarkers = []string{
	"sidebar",
	"widget",
	"widgets",
	"blogroll",
	"related-posts",
	"sticky",
}

// attrNames returns the class names and id of n, lower-cased, with
// underscores folded into hyphens.
func attrNames(n *html.Node) []string {
	fields := strings.Fields(strings.ToLower(attr(n, "class") + " " + attr(n, "id")))
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "_", "-")
	}
	return fields
}

// hasMarker reports whether a marker appears in one of names as a run of
// whole hyphen-separated words, so "main-nav" has "nav" but "canvas" does not.
func hasMarker(names []string, markers ...string) bool {
	for _, name := range names {
		padded := "-" + name + "-"
		for _, m := range markers {
			if strings.Contains(padded, "-"+m+"-") {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
