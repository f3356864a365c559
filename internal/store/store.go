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

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentberlin/outlinks"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists sites, posts, links, crawl runs and errors in SQLite.
// It implements outlinks.Store.
type Store struct {
	db *gorm.DB
}

var _ outlinks.Store = (*Store)(nil)

// batchSize keeps inserts under SQLite's limit on SQL variables.
const batchSize = 100

// NewStore opens the database at ~/.outlinks/outlinks.db.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".outlinks")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}
	return newStoreWithPath(filepath.Join(dbDir, "outlinks.db"))
}

// Open opens the database at dbPath. Its directory must exist.
func Open(dbPath string) (*Store, error) {
	return newStoreWithPath(dbPath)
}

func newStoreWithPath(dbPath string) (*Store, error) {
	dbDir := filepath.Dir(dbPath)
	if _, err := os.Stat(dbDir); err != nil {
		return nil, fmt.Errorf("database directory does not exist: %s, error: %v", dbDir, err)
	}

	// WAL lets readers proceed while a crawl writes; busy_timeout avoids
	// immediate "database is locked" errors when sites write concurrently
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000000000", dbPath)

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := database.AutoMigrate(&Site{}, &Post{}, &OutgoingLink{}, &CrawlRun{}, &ErrorRecord{}, &SitemapRef{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	if err := database.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_site_url ON posts(site_id, url)").Error; err != nil {
		return nil, fmt.Errorf("failed to create post unique index: %v", err)
	}
	if err := database.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_sitemap_refs_site_url ON sitemap_refs(site_id, url)").Error; err != nil {
		return nil, fmt.Errorf("failed to create sitemap unique index: %v", err)
	}

	return &Store{db: database}, nil
}

// DB returns the underlying GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
