package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chorus/groupware/models"
	"chorus/groupware/utils"
)

type fakeHeartbeatAPI struct {
	mu           sync.Mutex
	beats        []bool
	fetches      int
	heartbeatErr error
	status       models.PresenceStatus
}

func (f *fakeHeartbeatAPI) Heartbeat(ctx context.Context, away bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beats = append(f.beats, away)
	if f.heartbeatErr != nil {
		return f.heartbeatErr
	}
	f.status.Status = models.StatusOnline
	if away {
		f.status.Status = models.StatusAway
	}
	return nil
}

func (f *fakeHeartbeatAPI) FetchStatus(ctx context.Context) (*models.PresenceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	status := f.status
	return &status, nil
}

func (f *fakeHeartbeatAPI) Beats() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.beats...)
}

func (f *fakeHeartbeatAPI) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

var testControllerConfig = ControllerConfig{
	Keepalive:         true,
	HeartbeatInterval: 5 * time.Minute,
	IdleTimeout:       2 * time.Minute,
	DebounceWindow:    2 * time.Second,
	RequestTimeout:    time.Second,
}

type controllerHarness struct {
	api    *fakeHeartbeatAPI
	store  *Store
	clock  clockwork.FakeClock
	ctrl   *Controller
	cancel context.CancelFunc
	done   chan error
}

func startController(t *testing.T, cfg ControllerConfig) *controllerHarness {
	t.Helper()

	h := &controllerHarness{
		api:   &fakeHeartbeatAPI{},
		store: NewStore(),
		clock: clockwork.NewFakeClockAt(t0),
		done:  make(chan error, 1),
	}
	h.ctrl = NewController(h.api, h.store, cfg, utils.NewNopLogger(), WithClock(h.clock))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx) }()

	// The interval ticker is registered once Run is up.
	h.clock.BlockUntil(1)
	return h
}

func (h *controllerHarness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
}

func (h *controllerHarness) waitBeats(t *testing.T, n int) []bool {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.api.Beats()) == n
	}, 2*time.Second, 5*time.Millisecond)
	return h.api.Beats()
}

func TestControllerKeepaliveDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeHeartbeatAPI{}
	cfg := testControllerConfig
	cfg.Keepalive = false
	ctrl := NewController(api, NewStore(), cfg, utils.NewNopLogger(), WithClock(clockwork.NewFakeClockAt(t0)))

	require.NoError(t, ctrl.Run(context.Background()))
	assert.Empty(t, api.Beats())
}

func TestControllerIntervalHeartbeat(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)
	defer h.stop(t)

	h.clock.Advance(4 * time.Minute)
	assert.Empty(t, h.api.Beats())

	h.clock.Advance(time.Minute)
	beats := h.waitBeats(t, 1)
	assert.Equal(t, []bool{false}, beats)

	require.Eventually(t, func() bool {
		return h.store.Snapshot().Status == models.StatusOnline
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.api.Fetches())
}

func TestControllerAwayThenResume(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)
	defer h.stop(t)

	h.ctrl.Move()
	// Ticker plus the freshly armed idle timer.
	h.clock.BlockUntil(2)

	h.clock.Advance(2 * time.Minute)
	require.Eventually(t, h.ctrl.Away, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.api.Beats(), "going away alone does not send a heartbeat")

	// The interval heartbeat reports away.
	h.clock.Advance(3 * time.Minute)
	beats := h.waitBeats(t, 1)
	assert.Equal(t, []bool{true}, beats)
	require.Eventually(t, func() bool {
		return h.store.Snapshot().Status == models.StatusAway
	}, 2*time.Second, 5*time.Millisecond)

	// Movement while away triggers an immediate heartbeat without waiting for the ticker.
	h.ctrl.Move()
	beats = h.waitBeats(t, 2)
	assert.Equal(t, []bool{true, false}, beats)
	assert.False(t, h.ctrl.Away())
	require.Eventually(t, func() bool {
		return h.store.Snapshot().Status == models.StatusOnline
	}, 2*time.Second, 5*time.Millisecond)
}

func TestControllerMovementWhileActiveSendsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)
	defer h.stop(t)

	for i := 0; i < 5; i++ {
		h.ctrl.Move()
	}
	h.clock.BlockUntil(2)

	h.clock.Advance(119 * time.Second)
	assert.Never(t, func() bool { return len(h.api.Beats()) > 0 || h.ctrl.Away() }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestControllerHeartbeatFailureIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)
	defer h.stop(t)

	h.api.mu.Lock()
	h.api.heartbeatErr = errors.New("connection refused")
	h.api.mu.Unlock()

	h.clock.Advance(5 * time.Minute)
	h.waitBeats(t, 1)
	assert.Never(t, func() bool { return h.api.Fetches() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, models.StatusOffline, h.store.Snapshot().Status)

	// The controller keeps going.
	h.clock.Advance(5 * time.Minute)
	h.waitBeats(t, 2)
}

func TestControllerTeardownStopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)

	h.ctrl.Move()
	h.clock.BlockUntil(2)
	h.stop(t)

	// Ticker and idle timer are released.
	h.clock.BlockUntil(0)

	h.clock.Advance(30 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.api.Beats())
	assert.False(t, h.ctrl.Away())
}

func TestControllerIdleTimerFiresAtDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startController(t, testControllerConfig)
	defer h.stop(t)

	h.ctrl.Move()
	h.clock.BlockUntil(2)

	h.clock.Advance(2*time.Minute - time.Second)
	assert.Never(t, h.ctrl.Away, 50*time.Millisecond, 5*time.Millisecond)

	h.clock.Advance(time.Second)
	require.Eventually(t, h.ctrl.Away, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.api.Beats())
}
