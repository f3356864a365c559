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

import "time"

// Metrics receives engine measurements. internal/metrics provides a
// Prometheus implementation.
type Metrics interface {
	SetInFlight(n int)
	IncRetry()
	ObserveFetch(strategy string, status int, err error, elapsed time.Duration)
	AddLinks(n int)
	ObservePhase(phase Phase)
}

type nopMetrics struct{}

func (nopMetrics) SetInFlight(int)                                {}
func (nopMetrics) IncRetry()                                      {}
func (nopMetrics) ObserveFetch(string, int, error, time.Duration) {}
func (nopMetrics) AddLinks(int)                                   {}
func (nopMetrics) ObservePhase(Phase)                             {}
