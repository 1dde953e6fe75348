package scaler

import (
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type ServerState string

const (
	ServerStateProvisioning ServerState = "provisioning"
	ServerStateActive       ServerState = "active"
	ServerStateDraining     ServerState = "draining"
	ServerStateTerminated   ServerState = "terminated"
)

type Server struct {
	ID        string      `json:"id"`
	State     ServerState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	// DueAt is when the current provisioning or draining phase ends.
	DueAt time.Time `json:"due_at,omitempty"`
}

type StateCallbacks struct {
	OnStateChanged func(server Server, oldState, newState ServerState)
}

// StateTracker holds the simulated fleet. Phase transitions are applied
// lazily against the clock whenever the tracker is read or written.
type StateTracker struct {
	servers   map[string]*Server
	order     []string
	clock     clock.Clock
	mu        sync.Mutex
	callbacks StateCallbacks
}

func NewStateTracker(clk clock.Clock, callbacks StateCallbacks) *StateTracker {
	if clk == nil {
		clk = clock.Real()
	}
	return &StateTracker{
		servers:   make(map[string]*Server),
		clock:     clk,
		callbacks: callbacks,
	}
}

// Add registers a new server. A zero delay makes it active immediately.
func (t *StateTracker) Add(delay time.Duration) Server {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	server := &Server{
		ID:        models.NewUUID(),
		State:     ServerStateProvisioning,
		CreatedAt: now,
		DueAt:     now.Add(delay),
	}
	if delay <= 0 {
		server.State = ServerStateActive
		server.DueAt = time.Time{}
	}

	t.servers[server.ID] = server
	t.order = append(t.order, server.ID)

	logger.WithComponent("scaler").Debugf("Server %s added with state %s", server.ID[:8], server.State)
	return *server
}

// Drain moves up to n servers towards termination, newest first, and
// returns their ids. Provisioning servers are cancelled before active ones.
func (t *StateTracker) Drain(n int, drain time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	t.advance(now)

	removed := make([]string, 0, n)
	for _, state := range []ServerState{ServerStateProvisioning, ServerStateActive} {
		for i := len(t.order) - 1; i >= 0 && len(removed) < n; i-- {
			server := t.servers[t.order[i]]
			if server.State != state {
				continue
			}
			if state == ServerStateProvisioning || drain <= 0 {
				t.transition(server, ServerStateTerminated)
			} else {
				server.DueAt = now.Add(drain)
				t.transition(server, ServerStateDraining)
			}
			removed = append(removed, server.ID)
		}
	}
	t.compact()
	return removed
}

func (t *StateTracker) Get(id string) (Server, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.advance(t.clock.Now())
	server, ok := t.servers[id]
	if !ok {
		return Server{}, ErrServerNotFound
	}
	return *server, nil
}

func (t *StateTracker) Servers() []Server {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.advance(t.clock.Now())
	out := make([]Server, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.servers[id])
	}
	return out
}

func (t *StateTracker) State() FleetState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.advance(t.clock.Now())
	var state FleetState
	for _, server := range t.servers {
		switch server.State {
		case ServerStateProvisioning:
			state.Provisioning++
		case ServerStateActive:
			state.Active++
		case ServerStateDraining:
			state.Draining++
		}
	}
	state.Total = state.Provisioning + state.Active + state.Draining
	return state
}

// advance applies due phase transitions. Callers hold t.mu.
func (t *StateTracker) advance(now time.Time) {
	for _, id := range t.order {
		server := t.servers[id]
		if server.DueAt.IsZero() || now.Before(server.DueAt) {
			continue
		}
		switch server.State {
		case ServerStateProvisioning:
			server.DueAt = time.Time{}
			t.transition(server, ServerStateActive)
		case ServerStateDraining:
			t.transition(server, ServerStateTerminated)
		}
	}
	t.compact()
}

func (t *StateTracker) transition(server *Server, next ServerState) {
	prev := server.State
	server.State = next
	if t.callbacks.OnStateChanged != nil {
		t.callbacks.OnStateChanged(*server, prev, next)
	}
	logger.WithComponent("scaler").Debugf("Server %s state changed: %s -> %s", server.ID[:8], prev, next)
}

func (t *StateTracker) compact() {
	kept := t.order[:0]
	for _, id := range t.order {
		if t.servers[id].State == ServerStateTerminated {
			delete(t.servers, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}
