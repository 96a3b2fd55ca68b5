package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is how often a time-remaining update is emitted.
const DefaultTickInterval = time.Second

// TurnHandler receives the scheduler's callbacks. Both are invoked from the
// league's timer goroutine, never while the scheduler holds its own lock.
type TurnHandler interface {
	// HandleTurnExpired is called exactly once when an armed turn runs out.
	HandleTurnExpired(ctx context.Context, leagueID uuid.UUID, turnIndex int)

	// HandleTurnTick is called every tick interval while the turn is armed.
	HandleTurnTick(leagueID uuid.UUID, turnIndex int, remaining time.Duration)
}

// Scheduler owns one countdown per league. Arming is last-writer-wins.
type Scheduler struct {
	clock        clockwork.Clock
	tickInterval time.Duration

	mu      sync.Mutex
	timers  map[uuid.UUID]*turnTimer
	handler TurnHandler
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type turnTimer struct {
	leagueID  uuid.UUID
	turnIndex int
	deadline  time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewScheduler creates a Scheduler. Start must be called before timers fire
// into a handler.
func NewScheduler(clock clockwork.Clock, tickInterval time.Duration) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:        clock,
		tickInterval: tickInterval,
		timers:       make(map[uuid.UUID]*turnTimer),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start binds the handler and derives timer callbacks from ctx.
func (s *Scheduler) Start(ctx context.Context, handler TurnHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.handler = handler
	s.stopped = false

	log.Info().Dur("tick_interval", s.tickInterval).Msg("turn scheduler started")
}

// Stop cancels every timer and waits for their goroutines to exit. Arm is a
// no-op after Stop until the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for leagueID, t := range s.timers {
		close(t.stop)
		delete(s.timers, leagueID)
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Msg("turn scheduler stopped")
}

// Arm replaces any countdown for leagueID with a new one of duration d.
// A non-positive d expires immediately. When Arm returns, the replaced
// countdown has stopped and will emit nothing further.
//
// Arm and Cancel must not be called from HandleTurnTick.
func (s *Scheduler) Arm(leagueID uuid.UUID, turnIndex int, d time.Duration) {
	if d < 0 {
		d = 0
	}

	t := &turnTimer{
		leagueID:  leagueID,
		turnIndex: turnIndex,
		deadline:  s.clock.Now().Add(d),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Debug().
			Str("league_id", leagueID.String()).
			Int("turn_index", turnIndex).
			Msg("turn scheduler stopped, not arming")
		return
	}
	prev, replaced := s.timers[leagueID]
	if replaced {
		close(prev.stop)
	}
	s.timers[leagueID] = t
	s.wg.Add(1)
	s.mu.Unlock()

	if replaced {
		<-prev.done
	}

	log.Debug().
		Str("league_id", leagueID.String()).
		Int("turn_index", turnIndex).
		Dur("duration", d).
		Msg("turn timer armed")

	go s.run(t)
}

// Cancel stops the countdown for leagueID and waits for it to exit. It is a
// no-op if none is armed.
func (s *Scheduler) Cancel(leagueID uuid.UUID) {
	s.mu.Lock()
	t, ok := s.timers[leagueID]
	if ok {
		close(t.stop)
		delete(s.timers, leagueID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	<-t.done

	log.Debug().
		Str("league_id", leagueID.String()).
		Int("turn_index", t.turnIndex).
		Msg("turn timer cancelled")
}

// Armed reports the armed turn index for leagueID.
func (s *Scheduler) Armed(leagueID uuid.UUID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[leagueID]
	if !ok {
		return 0, false
	}
	return t.turnIndex, true
}

// ActiveCount returns the number of armed leagues.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) run(t *turnTimer) {
	defer s.wg.Done()
	defer close(t.done)

	timer := s.clock.NewTimer(s.nextWait(t))
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-t.stop:
			return
		case <-timer.Chan():
		}

		// a stop racing the timer wins
		select {
		case <-t.stop:
			return
		default:
		}

		remaining := t.deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			s.expire(t)
			return
		}

		if h := s.currentHandler(); h != nil {
			h.HandleTurnTick(t.leagueID, t.turnIndex, remaining)
		}
		timer.Reset(s.nextWait(t))
	}
}

// expire fires the handler only if t is still the league's current timer.
func (s *Scheduler) expire(t *turnTimer) {
	s.mu.Lock()
	current, ok := s.timers[t.leagueID]
	if !ok || current != t {
		s.mu.Unlock()
		return
	}
	delete(s.timers, t.leagueID)
	handler, ctx := s.handler, s.ctx
	s.mu.Unlock()

	log.Debug().
		Str("league_id", t.leagueID.String()).
		Int("turn_index", t.turnIndex).
		Msg("turn timer expired")

	if handler == nil {
		log.Warn().Str("league_id", t.leagueID.String()).Msg("turn expired with no handler bound")
		return
	}
	handler.HandleTurnExpired(ctx, t.leagueID, t.turnIndex)
}

func (s *Scheduler) nextWait(t *turnTimer) time.Duration {
	remaining := t.deadline.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	if remaining < s.tickInterval {
		return remaining
	}
	return s.tickInterval
}

func (s *Scheduler) currentHandler() TurnHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
