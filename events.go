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
	"fmt"
	"sync"
	"time"
)

// Phase is a state of the crawl state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDiscovering Phase = "discovering"
	PhaseParsing     Phase = "parsing"
	PhaseClassifying Phase = "classifying"
	PhasePersisting  Phase = "persisting"
	PhaseExtracting  Phase = "extracting"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
	PhaseCancelled   Phase = "cancelled"
)

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// forwardTransitions lists the regular successors of each phase. Failed and
// Cancelled are reachable from every non-terminal phase and are not listed.
// Discovering may jump to Extracting for extraction-only runs, and Parsing
// is entered directly when a sitemap document is supplied by the caller.
var forwardTransitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseDiscovering, PhaseParsing, PhaseExtracting},
	PhaseDiscovering: {PhaseParsing},
	PhaseParsing:     {PhaseClassifying},
	PhaseClassifying: {PhasePersisting},
	PhasePersisting:  {PhaseExtracting, PhaseCompleted},
	PhaseExtracting:  {PhaseCompleted},
}

// CanTransition reports whether the state machine may move from one phase
// to another.
func CanTransition(from, to Phase) bool {
	if from.Terminal() {
		return false
	}
	if to == PhaseFailed || to == PhaseCancelled {
		return true
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stateMachine guards the phase of one site run.
type stateMachine struct {
	mu    sync.Mutex
	phase Phase
}

func newStateMachine() *stateMachine {
	return &stateMachine{phase: PhaseIdle}
}

func (m *stateMachine) current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *stateMachine) transition(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !CanTransition(m.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.phase, to)
	}
	m.phase = to
	return nil
}

// ProgressEvent reports crawl progress. One is emitted per phase transition
// and per completed work item.
type ProgressEvent struct {
	JobID     string             `json:"jobId,omitempty"`
	SiteID    uint               `json:"siteId"`
	SiteURL   string             `json:"siteUrl"`
	Phase     Phase              `json:"phase"`
	Completed int                `json:"completed"`
	Total     int                `json:"total"`
	LastItem  string             `json:"lastItem,omitempty"`
	Mode      ClassificationMode `json:"mode,omitempty"`
	Err       string             `json:"error,omitempty"`
	Time      time.Time          `json:"time"`
}

// ProgressSink receives progress events. It is called from the coordinator
// goroutine and must not block for long.
type ProgressSink func(ProgressEvent)

// ChannelSink returns a sink that forwards events to ch, dropping events
// when ch is full rather than stalling the crawl.
func ChannelSink(ch chan<- ProgressEvent) ProgressSink {
	return func(ev ProgressEvent) {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ProgressTracker derives percentage and ETA from completed/total counts.
type ProgressTracker struct {
	Total     int
	Completed int
	started   time.Time
}

// NewProgressTracker starts tracking total items now.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{Total: total, started: time.Now()}
}

// Update records the latest completed count.
func (t *ProgressTracker) Update(completed int) { t.Completed = completed }

// Percentage is the completed share in the range 0..100.
func (t *ProgressTracker) Percentage() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.Completed) / float64(t.Total) * 100
}

// Elapsed is the time since tracking started.
func (t *ProgressTracker) Elapsed() time.Duration { return time.Since(t.started) }

// ETA extrapolates the remaining time from the average rate so far.
func (t *ProgressTracker) ETA() time.Duration {
	if t.Completed <= 0 || t.Completed >= t.Total {
		return 0
	}
	perItem := t.Elapsed() / time.Duration(t.Completed)
	return perItem * time.Duration(t.Total-t.Completed)
}
