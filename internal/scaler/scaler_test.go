package scaler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func TestSimulatorScaler_InitialServersAreActive(t *testing.T) {
	s := NewSimulatorScaler(SimulatorConfig{InitialServers: 3, Clock: clock.NewFake(t0)})

	state, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FleetState{Active: 3, Total: 3}, state)
	assert.Equal(t, 3, state.Committed())
}

func TestSimulatorScaler_ScaleOutProvisionsThenActivates(t *testing.T) {
	clk := clock.NewFake(t0)
	s := NewSimulatorScaler(SimulatorConfig{
		InitialServers: 2,
		ProvisionTime:  time.Minute,
		Clock:          clk,
	})

	result, err := s.ScaleTo(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Before)
	assert.Equal(t, 5, result.After)
	assert.Len(t, result.ServersAdded, 3)

	state, _ := s.State(context.Background())
	assert.Equal(t, 3, state.Provisioning)
	assert.Equal(t, 2, state.Active)
	assert.Equal(t, 5, state.Committed())

	clk.Advance(time.Minute)
	state, _ = s.State(context.Background())
	assert.Equal(t, FleetState{Active: 5, Total: 5}, state)
}

func TestSimulatorScaler_ScaleInDrainsNewestFirst(t *testing.T) {
	clk := clock.NewFake(t0)
	s := NewSimulatorScaler(SimulatorConfig{
		InitialServers: 4,
		DrainTimeout:   30 * time.Second,
		Clock:          clk,
	})
	servers := s.Servers()

	result, err := s.ScaleTo(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{servers[3].ID, servers[2].ID}, result.ServersRemoved)

	state, _ := s.State(context.Background())
	assert.Equal(t, 2, state.Draining)
	assert.Equal(t, 2, state.Committed())
	assert.Equal(t, 4, state.Total)

	clk.Advance(30 * time.Second)
	state, _ = s.State(context.Background())
	assert.Equal(t, FleetState{Active: 2, Total: 2}, state)
}

func TestSimulatorScaler_ScaleInCancelsProvisioningFirst(t *testing.T) {
	clk := clock.NewFake(t0)
	s := NewSimulatorScaler(SimulatorConfig{
		InitialServers: 2,
		ProvisionTime:  time.Minute,
		DrainTimeout:   time.Minute,
		Clock:          clk,
	})

	_, err := s.ScaleTo(context.Background(), 4)
	require.NoError(t, err)
	_, err = s.ScaleTo(context.Background(), 3)
	require.NoError(t, err)

	state, _ := s.State(context.Background())
	assert.Equal(t, FleetState{Provisioning: 1, Active: 2, Total: 3}, state)
}

func TestSimulatorScaler_InvalidTarget(t *testing.T) {
	s := NewSimulatorScaler(SimulatorConfig{InitialServers: 1, MaxServers: 10})

	_, err := s.ScaleTo(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = s.ScaleTo(context.Background(), 11)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestSimulatorScaler_CancelledContext(t *testing.T) {
	s := NewSimulatorScaler(SimulatorConfig{InitialServers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScaleTo(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateTracker_Callbacks(t *testing.T) {
	clk := clock.NewFake(t0)
	var transitions []string
	tracker := NewStateTracker(clk, StateCallbacks{
		OnStateChanged: func(_ Server, from, to ServerState) {
			transitions = append(transitions, string(from)+"->"+string(to))
		},
	})

	server := tracker.Add(time.Second)
	clk.Advance(time.Second)
	tracker.State()
	tracker.Drain(1, time.Second)
	clk.Advance(time.Second)
	tracker.State()

	assert.Equal(t, []string{
		"provisioning->active",
		"active->draining",
		"draining->terminated",
	}, transitions)

	_, err := tracker.Get(server.ID)
	assert.ErrorIs(t, err, ErrServerNotFound)
}
