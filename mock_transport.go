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
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"
)

// MockResponse is a canned answer of a MockTransport.
type MockResponse struct {
	// StatusCode defaults to 200.
	StatusCode int
	Body       string
	Headers    http.Header
	// Delay is waited before answering, or until the request is cancelled.
	Delay time.Duration
	// Error simulates a connection-level failure.
	Error error
}

type mockPattern struct {
	pattern   *regexp.Regexp
	responses []*MockResponse
}

// MockTransport is an http.RoundTripper serving registered responses by
// exact URL or regex, so fetchers can be tested without a server. A URL
// registered with several responses answers them in turn and then keeps
// repeating the last one. Unregistered URLs get a 404.
type MockTransport struct {
	mu        sync.Mutex
	responses map[string][]*MockResponse
	patterns  []*mockPattern
	hits      map[string]int
}

// NewMockTransport returns an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string][]*MockResponse),
		hits:      make(map[string]int),
	}
}

// RegisterResponse registers one or more responses for an exact URL.
func (m *MockTransport) RegisterResponse(url string, responses ...*MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = responses
}

// RegisterHTML registers a 200 text/html response.
func (m *MockTransport) RegisterHTML(url, html string) {
	m.RegisterResponse(url, &MockResponse{Body: html, Headers: contentType("text/html; charset=utf-8")})
}

// RegisterXML registers a 200 application/xml response.
func (m *MockTransport) RegisterXML(url, xml string) {
	m.RegisterResponse(url, &MockResponse{Body: xml, Headers: contentType("application/xml")})
}

// RegisterStatus registers an empty response with the given status.
func (m *MockTransport) RegisterStatus(url string, status int) {
	m.RegisterResponse(url, &MockResponse{StatusCode: status})
}

// RegisterError registers a connection-level failure for url.
func (m *MockTransport) RegisterError(url string, err error) {
	m.RegisterResponse(url, &MockResponse{Error: err})
}

// RegisterPattern registers responses for every URL matching pattern.
// Exact registrations take precedence.
func (m *MockTransport) RegisterPattern(pattern string, responses ...*MockResponse) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, &mockPattern{pattern: re, responses: responses})
	return nil
}

// Hits returns how many requests were made for url.
func (m *MockTransport) Hits(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[url]
}

// TotalHits returns the number of requests served.
func (m *MockTransport) TotalHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.hits {
		total += n
	}
	return total
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	m.mu.Lock()
	n := m.hits[url]
	m.hits[url] = n + 1
	sequence, found := m.responses[url]
	if !found {
		for _, p := range m.patterns {
			if p.pattern.MatchString(url) {
				sequence, found = p.responses, true
				break
			}
		}
	}
	m.mu.Unlock()

	if !found || len(sequence) == 0 {
		return newMockResponse(req, &MockResponse{StatusCode: http.StatusNotFound, Body: "Not Found"}), nil
	}
	resp := sequence[len(sequence)-1]
	if n < len(sequence) {
		resp = sequence[n]
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return newMockResponse(req, resp), nil
}

func newMockResponse(req *http.Request, mock *MockResponse) *http.Response {
	status := mock.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	header := make(http.Header)
	for k, v := range mock.Headers {
		header[k] = append([]string(nil), v...)
	}
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Body:          io.NopCloser(bytes.NewBufferString(mock.Body)),
		Header:        header,
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		ContentLength: int64(len(mock.Body)),
	}
}

func contentType(ct string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", ct)
	return h
}
