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
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory Store for coordinator tests.
type memStore struct {
	mu       sync.Mutex
	sites    map[uint]*Site
	posts    map[uint]*Post
	links    map[uint][]OutgoingLink
	runs     []*CrawlRun
	errs     []*ErrorRecord
	sitemaps map[uint][]SitemapRef
	nextID   uint
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{
		sites:    make(map[uint]*Site),
		posts:    make(map[uint]*Post),
		links:    make(map[uint][]OutgoingLink),
		sitemaps: make(map[uint][]SitemapRef),
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return fmt.Errorf("%s: disk full", op)
	}
	return nil
}

func (m *memStore) UpsertSite(_ context.Context, site *Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertSite"); err != nil {
		return err
	}
	if err := site.Validate(); err != nil {
		return err
	}
	for _, s := range m.sites {
		if s.URL == site.URL {
			s.SitemapURL = site.SitemapURL
			*site = *s
			return nil
		}
	}
	site.ID = m.id()
	cp := *site
	m.sites[site.ID] = &cp
	return nil
}

func (m *memStore) Site(_ context.Context, id uint) (*Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %d not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) KnownPosts(_ context.Context, siteID uint) (map[string]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Post)
	for _, p := range m.posts {
		if p.SiteID == siteID {
			out[p.URL] = *p
		}
	}
	return out, nil
}

func (m *memStore) UpsertPosts(_ context.Context, siteID uint, posts []Post) (map[string]Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertPosts"); err != nil {
		return nil, 0, err
	}
	byURL := make(map[string]*Post)
	for _, p := range m.posts {
		if p.SiteID == siteID {
			byURL[p.URL] = p
		}
	}
	stored := make(map[string]Post, len(posts))
	created := 0
	for _, p := range posts {
		p.SiteID = siteID
		if err := p.Validate(); err != nil {
			return nil, 0, err
		}
		if existing, ok := byURL[p.URL]; ok {
			if p.LastModified != nil {
				existing.LastModified = p.LastModified
			}
			stored[p.URL] = *existing
			continue
		}
		p.ID = m.id()
		cp := p
		m.posts[p.ID] = &cp
		byURL[p.URL] = &cp
		stored[p.URL] = cp
		created++
	}
	return stored, created, nil
}

func (m *memStore) UpdatePost(_ context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := post.Validate(); err != nil {
		return err
	}
	if _, ok := m.posts[post.ID]; !ok {
		return fmt.Errorf("post %d not found", post.ID)
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memStore) ReplaceLinks(_ context.Context, postID uint, links []OutgoingLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ReplaceLinks"); err != nil {
		return err
	}
	for i := range links {
		if err := links[i].Validate(); err != nil {
			return err
		}
	}
	m.links[postID] = append([]OutgoingLink(nil), links...)
	return nil
}

func (m *memStore) AppendCrawlRun(_ context.Context, run *CrawlRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := run.Validate(); err != nil {
		return err
	}
	run.ID = m.id()
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memStore) FinishCrawlRun(_ context.Context, run *CrawlRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.ID == run.ID {
			cp := *run
			m.runs[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("run %d not found", run.ID)
}

func (m *memStore) AppendError(_ context.Context, rec *ErrorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.ID = m.id()
	cp := *rec
	m.errs = append(m.errs, &cp)
	return nil
}

func (m *memStore) ResolveErrors(_ context.Context, siteID uint, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.errs {
		if e.SiteID == siteID && e.URL == url {
			e.Resolved = true
		}
	}
	return nil
}

func (m *memStore) RefreshSiteStats(_ context.Context, siteID uint, status SiteStatus, crawledAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[siteID]
	if !ok {
		return fmt.Errorf("site %d not found", siteID)
	}
	s.Status = status
	if crawledAt != nil {
		s.LastCrawledAt = crawledAt
	}
	s.TotalPosts, s.TotalLinks = 0, 0
	for _, p := range m.posts {
		if p.SiteID == siteID {
			s.TotalPosts++
			s.TotalLinks += len(m.links[p.ID])
		}
	}
	return nil
}

func (m *memStore) SaveSitemaps(_ context.Context, siteID uint, refs []SitemapRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sitemaps[siteID] = append([]SitemapRef(nil), refs...)
	return nil
}

func (m *memStore) postByURL(url string) *Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.URL == url {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (m *memStore) linksOf(url string) []OutgoingLink {
	p := m.postByURL(url)
	if p == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[p.ID]
}

func (m *memStore) errorsFor(url string) []ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ErrorRecord
	for _, e := range m.errs {
		if e.URL == url {
			out = append(out, *e)
		}
	}
	return out
}

func (m *memStore) lastRun() CrawlRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.runs[len(m.runs)-1]
}
