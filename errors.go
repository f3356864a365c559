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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrInvalidSettings is returned when a job is started with settings that
	// fail validation. It is the only error that aborts a job before it starts.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidTransition is returned when the coordinator is asked to move
	// between two states that are not connected.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrCancelled is returned when a job stopped because the caller asked it to
	ErrCancelled = errors.New("crawl cancelled")
	// ErrInsufficientContent is returned by the fallback policy when a page
	// fetched fine but carried too little text to be the real article
	ErrInsufficientContent = errors.New("insufficient content")
	// ErrEmptyBody is returned when a 2xx response has no body
	ErrEmptyBody = errors.New("empty response body")
)

// ErrorCategory is the persisted classification of a failure.
type ErrorCategory string

const (
	CategoryDiscoveryFailed ErrorCategory = "discovery_failed"
	CategoryParse           ErrorCategory = "parse_error"
	CategoryTransientFetch  ErrorCategory = "transient_fetch"
	CategoryPermanentFetch  ErrorCategory = "permanent_fetch"
	CategoryStorage         ErrorCategory = "storage"
	CategoryCancelled       ErrorCategory = "cancelled"
)

// DiscoveryFailedError means no sitemap could be resolved for a site.
type DiscoveryFailedError struct {
	SiteURL string
	Tried   []string
	Err     error
}

func (e *DiscoveryFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no sitemap found for %s after %d candidates: %v", e.SiteURL, len(e.Tried), e.Err)
	}
	return fmt.Sprintf("no sitemap found for %s after %d candidates", e.SiteURL, len(e.Tried))
}

func (e *DiscoveryFailedError) Unwrap() error { return e.Err }

// NotFoundError means an explicitly configured sitemap could not be reached.
type NotFoundError struct {
	URL string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sitemap %s unreachable: %v", e.URL, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ParseError means a sitemap or page document could not be parsed.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse failed: %v", e.Err)
	}
	return fmt.Sprintf("parse %s failed: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError is a failed fetch. StatusCode is 0 for connection-level
// failures.
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s fetch error for %s: status %d", kind, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch error for %s: %v", kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConnectionLevel reports whether the request never produced a response.
func (e *FetchError) ConnectionLevel() bool { return e.StatusCode == 0 }

// StorageError wraps a failure of the Store.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %v", e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// newStatusError builds a FetchError for a non-2xx response.
func newStatusError(url string, status int) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: status,
		Transient:  isTransientStatus(status),
		Err:        fmt.Errorf("unexpected status %d %s", status, http.StatusText(status)),
	}
}

// newTransportError builds a FetchError for a request that failed before a
// response arrived.
func newTransportError(url string, err error) *FetchError {
	return &FetchError{URL: url, Transient: isRetryableNetError(err), Err: err}
}

// isTransientStatus reports whether a status is worth retrying: request
// timeout, rate limiting and server errors.
func isTransientStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

// isRetryableNetError reports timeouts and connection errors.
func isRetryableNetError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return false
	}
	return isRetryableNetError(err)
}

// CategorizeError maps err onto the persisted taxonomy.
func CategorizeError(err error) ErrorCategory {
	var (
		df *DiscoveryFailedError
		nf *NotFoundError
		pe *ParseError
		fe *FetchError
		se *StorageError
	)
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.As(err, &df), errors.As(err, &nf):
		return CategoryDiscoveryFailed
	case errors.As(err, &se):
		return CategoryStorage
	case errors.As(err, &pe):
		return CategoryParse
	case errors.As(err, &fe):
		if fe.Transient {
			return CategoryTransientFetch
		}
		return CategoryPermanentFetch
	case IsTransient(err):
		return CategoryTransientFetch
	}
	return CategoryPermanentFetch
}
