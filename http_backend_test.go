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
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.RequestTimeout = 5 * time.Second
	return s
}

func TestHTTPFetcherSendsBrowserIdentity(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>hi</body></html>")
	}))
	defer srv.Close()

	res, err := NewHTTPFetcher(testSettings()).Fetch(context.Background(), srv.URL+"/blog/a")
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Contains(t, gotAccept, "text/html")
	assert.Equal(t, StrategyHTTP, res.Strategy)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "<html><body>hi</body></html>", string(res.Body))
	assert.Equal(t, "text/html", res.ContentType)
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "landed")
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(testSettings())
	res, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/old", res.URL)
	assert.Equal(t, srv.URL+"/new", res.FinalURL)
	assert.Equal(t, "landed", string(res.Body))

	_, err = f.Fetch(context.Background(), srv.URL+"/loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestHTTPFetcherStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testSettings())
	_, err := f.Fetch(context.Background(), srv.URL+"/gone")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
	assert.False(t, fe.Transient)

	_, err = f.Fetch(context.Background(), srv.URL+"/busy")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 503, fe.StatusCode)
	assert.True(t, fe.Transient)
}

func TestHTTPFetcherConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(testSettings()).Fetch(context.Background(), url)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.ConnectionLevel())
}

func TestHTTPFetcherGunzipsSitemaps(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(urlSet("https://example.com/blog/a")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	compressed := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(compressed)
	}))
	defer srv.Close()

	res, err := NewHTTPFetcher(testSettings()).Fetch(context.Background(), srv.URL+"/sitemap.xml.gz")
	require.NoError(t, err)
	doc, err := ParseSitemap(res.Body)
	require.NoError(t, err)
	assert.Len(t, doc.Entries, 1)
}

func TestHTTPFetcherConvertsCharset(t *testing.T) {
	latin1 := []byte("<html><body><p>caf\xe9</p></body></html>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1)
	}))
	defer srv.Close()

	res, err := NewHTTPFetcher(testSettings()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), "café")
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterResponse("https://example.com/slow", &MockResponse{Delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := mockFetcher(mt).Fetch(ctx, "https://example.com/slow")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Transient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockTransportSequences(t *testing.T) {
	mt := NewMockTransport()
	mt.RegisterResponse("https://example.com/flaky",
		&MockResponse{StatusCode: 503},
		&MockResponse{Body: "ok"},
	)
	require.NoError(t, mt.RegisterPattern(`/blog/\d+$`, &MockResponse{Body: "post"}))
	f := mockFetcher(mt)

	_, err := f.Fetch(context.Background(), "https://example.com/flaky")
	assert.Error(t, err)
	for i := 0; i < 2; i++ {
		res, err := f.Fetch(context.Background(), "https://example.com/flaky")
		require.NoError(t, err)
		assert.Equal(t, "ok", string(res.Body))
	}
	assert.Equal(t, 3, mt.Hits("https://example.com/flaky"))

	res, err := f.Fetch(context.Background(), "https://example.com/blog/42")
	require.NoError(t, err)
	assert.Equal(t, "post", string(res.Body))

	_, err = f.Fetch(context.Background(), "https://example.com/unknown")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
	assert.Equal(t, 5, mt.TotalHits())
	assert.Error(t, mt.RegisterPattern("(", nil))
}
