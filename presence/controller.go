package presence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"chorus/groupware/models"
	"chorus/groupware/utils"
)

const movementBuffer = 16

// HeartbeatAPI is the part of the status API the controller uses.
type HeartbeatAPI interface {
	Heartbeat(ctx context.Context, away bool) error
	FetchStatus(ctx context.Context) (*models.PresenceStatus, error)
}

type ControllerConfig struct {
	Keepalive         bool
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	DebounceWindow    time.Duration
	RequestTimeout    time.Duration
}

// Controller keeps the server informed about whether the user is active or away and
// reconciles the store with the canonical status after every heartbeat.
//
// A single goroutine (Run) owns the tracker and both timers. Heartbeat cycles run on their
// own goroutines and may overlap; the store resolves them last-write-wins.
type Controller struct {
	api     HeartbeatAPI
	store   *Store
	cfg     ControllerConfig
	clock   clockwork.Clock
	logger  *utils.Logger
	tracker *Tracker

	moves chan time.Time
	away  atomic.Bool
	wg    sync.WaitGroup
}

type ControllerOption func(*Controller)

// WithClock replaces the real clock. Tests use a fake one.
func WithClock(clock clockwork.Clock) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

func NewController(api HeartbeatAPI, store *Store, cfg ControllerConfig, logger *utils.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:     api,
		store:   store,
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		tracker: NewTracker(cfg.IdleTimeout, cfg.DebounceWindow),
		moves:   make(chan time.Time, movementBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Move reports user activity. It never blocks; movements are dropped when the loop is
// behind, which the debounce would discard anyway.
func (c *Controller) Move() {
	select {
	case c.moves <- c.clock.Now():
	default:
	}
}

// Away reports the current away flag.
func (c *Controller) Away() bool {
	return c.away.Load()
}

// Run drives the heartbeat until ctx is done. Cancelling ctx stops the interval and idle
// timers and the movement intake; heartbeat cycles already in flight are allowed to finish
// and Run waits for them before returning.
func (c *Controller) Run(ctx context.Context) error {
	if !c.cfg.Keepalive {
		c.logger.Info("Presence keepalive disabled")
		return nil
	}

	ticker := c.clock.NewTicker(c.cfg.HeartbeatInterval)
	var (
		idle  clockwork.Timer
		idleC <-chan time.Time
	)
	defer func() {
		ticker.Stop()
		if idle != nil {
			idle.Stop()
		}
		c.wg.Wait()
	}()

	c.logger.Info("Presence heartbeat started", "interval", c.cfg.HeartbeatInterval.String())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Presence heartbeat stopped")
			return nil

		case <-ticker.Chan():
			c.cycle(ctx, "interval")

		case moved := <-c.moves:
			accepted, resumed := c.tracker.Movement(moved)
			if !accepted {
				continue
			}

			// Only one idle timer is ever pending.
			if idle != nil {
				idle.Stop()
			}
			deadline, _ := c.tracker.IdleDeadline()
			idle = c.clock.NewTimer(deadline.Sub(c.clock.Now()))
			idleC = idle.Chan()

			if resumed {
				c.away.Store(false)
				c.logger.Debug("User is active again")
				c.cycle(ctx, "resumed")
			}

		case now := <-idleC:
			idleC = nil
			if c.tracker.Expire(now) {
				c.away.Store(true)
				c.logger.Debug("User is away")
			}
		}
	}
}

// cycle sends the current away flag and then reconciles the store. Failures are dropped.
func (c *Controller) cycle(ctx context.Context, reason string) {
	away := c.tracker.Away()
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RequestTimeout)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		if err := c.api.Heartbeat(reqCtx, away); err != nil {
			c.logger.Debug("Heartbeat failed", "reason", reason, "away", away, "error", err)
			return
		}

		status, err := c.api.FetchStatus(reqCtx)
		if err != nil {
			c.logger.Debug("Status reconciliation failed", "reason", reason, "error", err)
			return
		}
		c.store.Reconcile(*status)
	}()
}
