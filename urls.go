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
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
	"golang.org/x/net/publicsuffix"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// NormalizeURL returns the WHATWG serialization of raw with the fragment
// removed. "http://Example.com" and "http://example.com/" normalize to the
// same string.
func NormalizeURL(raw string) (string, error) {
	u, err := urlParser.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return u.Href(true), nil
}

// resolveURL resolves ref against base and returns the normalized absolute
// URL without fragment.
func resolveURL(base, ref string) (string, error) {
	u, err := urlParser.ParseRef(base, strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return u.Href(true), nil
}

// urlKey is the seen-set key of a URL.
func urlKey(raw string) uint64 {
	if n, err := NormalizeURL(raw); err == nil {
		raw = n
	}
	return xxhash.Sum64String(raw)
}

// NormalizeSiteURL turns user input into a site root of the form
// scheme://host[:port] and returns it with the lower-cased host. https is
// assumed when no scheme is given.
func NormalizeSiteURL(input string) (string, string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", errors.New("empty URL")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}
	hostname := strings.ToLower(parsedURL.Hostname())
	if hostname == "" {
		return "", "", errors.New("no hostname in URL")
	}

	host := hostname
	if port := parsedURL.Port(); port != "" && !isDefaultPort(parsedURL.Scheme, port) {
		host = hostname + ":" + port
	}
	return parsedURL.Scheme + "://" + host, hostname, nil
}

func isDefaultPort(scheme, port string) bool {
	return scheme == "https" && port == "443" || scheme == "http" && port == "80"
}

// registrableDomain returns the eTLD+1 of host, or the host itself for
// IPs, localhost and unknown suffixes. A leading "www." is ignored.
func registrableDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// sameSite reports whether two hosts share a registrable domain.
func sameSite(a, b string) bool {
	return registrableDomain(a) == registrableDomain(b)
}

// upgradeScheme rewrites an http:// URL on siteHost to https:// when the
// site itself is served over https.
func upgradeScheme(raw, siteRoot string) string {
	if !strings.HasPrefix(siteRoot, "https://") || !strings.HasPrefix(raw, "http://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	root, err := url.Parse(siteRoot)
	if err != nil || !strings.EqualFold(u.Hostname(), root.Hostname()) {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}
