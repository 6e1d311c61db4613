// Package phaseclock schedules the one-shot wall-clock deadlines that
// drive round-phase expiry. Rather than a ticking timer, a
// PhaseClock timer carries an absolute deadline (Room.RoundPhaseEndTime)
// rather than a relative duration, and a jittered start so many rooms
// expiring the same phase don't all fire in the same tick.
package phaseclock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/store"
)

// jitterModulus bounds the deterministic per-room stagger applied to
// every scheduled deadline, so a callback thundering herd spreads over
// up to this many milliseconds.
const jitterModulus = 250 * time.Millisecond

type key struct {
	roomCode string
	phase    domain.RoundPhase
}

type timer struct {
	t      *time.Timer
	round  int
	cancel context.CancelFunc
}

// Clock owns every in-flight phase deadline in the process. One Clock
// per server instance; PhaseEngine calls Schedule on every timed
// transition and Cancel when a phase ends early (e.g. everyone guessed).
type Clock struct {
	mu     sync.Mutex
	timers map[key]*timer
	cache  store.RoomCache
	log    *zap.SugaredLogger
}

func New(cache store.RoomCache, log *zap.SugaredLogger) *Clock {
	return &Clock{
		timers: make(map[key]*timer),
		cache:  cache,
		log:    log,
	}
}

// jitter returns a deterministic stagger derived from roomID, per
// spec's "roomId mod J" rule — same room always gets the same offset,
// so repeated reschedules for one room don't drift.
func jitter(roomID int64) time.Duration {
	mod := int64(jitterModulus / time.Millisecond)
	if mod == 0 {
		return 0
	}
	return time.Duration(roomID%mod) * time.Millisecond
}

// Schedule arms a one-shot timer for roomCode/phase firing at
// deadline+jitter(roomID). onExpire is invoked in its own goroutine
// and must itself re-validate the room's phase before acting, since a
// reschedule or cancel racing with an already-fired timer is possible.
func (c *Clock) Schedule(roomID int64, roomCode string, phase domain.RoundPhase, round int, deadline time.Time, onExpire func()) {
	k := key{roomCode: roomCode, phase: phase}
	delay := time.Until(deadline) + jitter(roomID)
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	if existing, ok := c.timers[k]; ok {
		existing.t.Stop()
		existing.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := time.AfterFunc(delay, func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.log.Debugw("[PhaseClock] deadline fired", "room", roomCode, "phase", phase, "round", round)
		onExpire()
	})
	c.timers[k] = &timer{t: t, round: round, cancel: cancel}
	c.mu.Unlock()

	if err := c.cache.SetPhase(context.Background(), roomCode, store.PhaseSnapshot{RoundPhase: phase, Round: round}); err != nil {
		c.log.Warnw("[PhaseClock] cache write failed", "room", roomCode, "error", err)
	}
}

// Cancel stops a room's timer for the given phase, used when a round
// ends early (everyone guessed, drawer left) before its deadline.
func (c *Clock) Cancel(roomCode string, phase domain.RoundPhase) {
	k := key{roomCode: roomCode, phase: phase}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.timers[k]; ok {
		existing.t.Stop()
		existing.cancel()
		delete(c.timers, k)
	}
}

// CancelRoom stops every timer registered for a room across all
// phases, used on room deletion/close.
func (c *Clock) CancelRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.timers {
		if k.roomCode == roomCode {
			t.t.Stop()
			t.cancel()
			delete(c.timers, k)
		}
	}
}

// StillScheduled reports whether a timer is still registered for
// (roomCode, phase, round) — used by a fired callback to detect a
// concurrent reschedule landed between AfterFunc firing and the
// callback acquiring the room's lock.
func (c *Clock) StillScheduled(roomCode string, phase domain.RoundPhase, round int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[key{roomCode: roomCode, phase: phase}]
	return ok && t.round == round
}
