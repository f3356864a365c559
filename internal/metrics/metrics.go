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

// Package metrics exports crawl engine measurements to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/agentberlin/outlinks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outlinks"

// Prometheus implements outlinks.Metrics.
type Prometheus struct {
	inFlight      prometheus.Gauge
	retries       prometheus.Counter
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	links         prometheus.Counter
	phases        *prometheus.CounterVec
}

var _ outlinks.Metrics = (*Prometheus)(nil)

// New registers the engine collectors with reg.
func New(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetches_in_flight",
			Help:      "Fetches currently running under the concurrency ceiling",
		}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Retried fetch attempts",
		}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetches by strategy and HTTP status class",
		}, []string{"strategy", "status"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"strategy"}),
		links: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_extracted_total",
			Help:      "Outgoing links stored",
		}),
		phases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Site runs entering each phase",
		}, []string{"phase"}),
	}
}

func (p *Prometheus) SetInFlight(n int) { p.inFlight.Set(float64(n)) }

func (p *Prometheus) IncRetry() { p.retries.Inc() }

func (p *Prometheus) ObserveFetch(strategy string, status int, err error, elapsed time.Duration) {
	p.fetches.WithLabelValues(strategy, statusClass(status, err)).Inc()
	p.fetchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func (p *Prometheus) AddLinks(n int) { p.links.Add(float64(n)) }

func (p *Prometheus) ObservePhase(phase outlinks.Phase) {
	p.phases.WithLabelValues(string(phase)).Inc()
}

// statusClass keeps label cardinality bounded: "2xx".."5xx", or "error"
// for failures without a response.
func statusClass(status int, err error) string {
	if status == 0 {
		if err != nil {
			return "error"
		}
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
