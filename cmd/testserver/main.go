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

// Testserver serves the fixture blog used by the tests on a fixed port so
// the crawler can be tried by hand:
//
//	go run ./cmd/testserver -port 8081
//	outlinks crawl http://127.0.0.1:8081
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentberlin/outlinks/internal/logger"
	"github.com/agentberlin/outlinks/testutil"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", 8081, "Port to run the fixture site on")
	host := flag.String("host", "127.0.0.1", "Host to bind the fixture site to")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	site, err := testutil.NewSiteServerAt(fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		log.Fatal("failed to start fixture site", zap.Error(err))
	}
	defer site.Close()

	log.Info("fixture blog serving",
		zap.String("url", site.URL),
		zap.String("sitemap_index", site.URL+"/sitemap_index.xml"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("fixture site stopped")
}
