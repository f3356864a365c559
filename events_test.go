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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Phase{
		{PhaseIdle, PhaseDiscovering},
		{PhaseIdle, PhaseParsing},
		{PhaseIdle, PhaseExtracting},
		{PhaseDiscovering, PhaseParsing},
		{PhaseParsing, PhaseClassifying},
		{PhaseClassifying, PhasePersisting},
		{PhasePersisting, PhaseExtracting},
		{PhasePersisting, PhaseCompleted},
		{PhaseExtracting, PhaseCompleted},
		{PhaseDiscovering, PhaseFailed},
		{PhaseExtracting, PhaseCancelled},
		{PhaseIdle, PhaseCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]Phase{
		{PhaseIdle, PhaseCompleted},
		{PhaseDiscovering, PhaseExtracting},
		{PhaseParsing, PhasePersisting},
		{PhaseExtracting, PhaseParsing},
		{PhaseCompleted, PhaseDiscovering},
		{PhaseFailed, PhaseCancelled},
		{PhaseCancelled, PhaseFailed},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestStateMachine(t *testing.T) {
	m := newStateMachine()
	assert.Equal(t, PhaseIdle, m.current())

	require.NoError(t, m.transition(PhaseDiscovering))
	require.NoError(t, m.transition(PhaseParsing))
	err := m.transition(PhaseCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PhaseParsing, m.current())

	require.NoError(t, m.transition(PhaseCancelled))
	assert.True(t, m.current().Terminal())
	assert.ErrorIs(t, m.transition(PhaseFailed), ErrInvalidTransition)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	ch := make(chan ProgressEvent, 1)
	sink := ChannelSink(ch)
	sink(ProgressEvent{Phase: PhaseDiscovering})
	sink(ProgressEvent{Phase: PhaseParsing})

	require.Len(t, ch, 1)
	assert.Equal(t, PhaseDiscovering, (<-ch).Phase)
}

func TestProgressTracker(t *testing.T) {
	tr := NewProgressTracker(4)
	assert.Zero(t, tr.Percentage())
	assert.Zero(t, tr.ETA())

	time.Sleep(10 * time.Millisecond)
	tr.Update(2)
	assert.InDelta(t, 50.0, tr.Percentage(), 0.001)
	assert.Greater(t, tr.ETA(), time.Duration(0))

	tr.Update(4)
	assert.InDelta(t, 100.0, tr.Percentage(), 0.001)
	assert.Zero(t, tr.ETA())

	assert.Zero(t, NewProgressTracker(0).Percentage())
}
