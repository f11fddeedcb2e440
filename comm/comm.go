// Package comm provides the collective-communication context shared by all
// ranks of a run: barriers and coordinator-to-worker value broadcast. Phases
// of the driver take a Context explicitly instead of reading ambient global
// state, so a run can equally be a group of processes or a group of
// goroutines in a test.
package comm

import (
	"fmt"
	"sync"
)

// Context is what one rank sees of the collective.
type Context interface {
	// Rank is this member's index in [0, Size).
	Rank() int
	// Size is the fixed number of members.
	Size() int
	// IsCoordinator reports whether this member runs the coordinator-only
	// phases (grouping, merge, cleanup).
	IsCoordinator() bool
	// Barrier blocks until every member of the group has called it.
	Barrier() error
	// Broadcast distributes a byte payload from the coordinator to all
	// members. The coordinator passes the payload, everyone else passes nil.
	// Every member, the coordinator included, receives its own copy.
	Broadcast(payload []byte) ([]byte, error)
}

// groupState is the shared barrier/broadcast bookkeeping. Barriers are
// generation counted so the same state can be reused for every phase
// boundary; broadcasts are sequence numbered per member.
type groupState struct {
	size int

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int

	payloads map[int][]byte
	sent     int
}

func newGroupState(size int) *groupState {
	s := &groupState{
		size:     size,
		payloads: make(map[int][]byte),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *groupState) await() {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.generation
	s.arrived++
	if s.arrived == s.size {
		s.arrived = 0
		s.generation++
		s.cond.Broadcast()
		return
	}
	for gen == s.generation {
		s.cond.Wait()
	}
}

func (s *groupState) publish(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[s.sent] = payload
	s.sent++
	s.cond.Broadcast()
}

func (s *groupState) fetch(seq int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if payload, ok := s.payloads[seq]; ok {
			return payload
		}
		s.cond.Wait()
	}
}

// localContext is one member of an in-process group.
type localContext struct {
	rank  int
	state *groupState
	seq   int
}

func (c *localContext) Rank() int           { return c.rank }
func (c *localContext) Size() int           { return c.state.size }
func (c *localContext) IsCoordinator() bool { return c.rank == 0 }

func (c *localContext) Barrier() error {
	c.state.await()
	return nil
}

func (c *localContext) Broadcast(payload []byte) ([]byte, error) {
	if c.IsCoordinator() {
		c.state.publish(payload)
	}
	received := c.state.fetch(c.seq)
	c.seq++
	// Hand out a copy so no member aliases another member's value.
	out := make([]byte, len(received))
	copy(out, received)
	return out, nil
}

// LocalGroup returns an in-process group of size contexts sharing one
// barrier/broadcast state. Rank 0 is the coordinator.
func LocalGroup(size int) ([]Context, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	state := newGroupState(size)
	group := make([]Context, size)
	for rank := 0; rank < size; rank++ {
		group[rank] = &localContext{rank: rank, state: state}
	}
	return group, nil
}
