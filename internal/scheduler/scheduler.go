// Package scheduler runs at most one LED effect at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"libdb.so/emberglow/internal/effects"
	"libdb.so/emberglow/internal/led"
	"libdb.so/emberglow/internal/metrics"
)

var (
	// ErrEffectNotFound is returned by Start when the requested effect does
	// not exist.
	ErrEffectNotFound = errors.New("effect not found")
	// ErrEffectFault is returned by Start when the effect could not be
	// constructed. It also marks effects that crashed while running.
	ErrEffectFault = errors.New("effect fault")
)

// State is the state of the scheduler.
type State uint8

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of what the scheduler is doing.
type Status struct {
	State     State      `json:"state"`
	Effect    string     `json:"effect,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// constructor builds an effect. It is effects.New outside of tests.
type constructor func(effects.Kind, effects.Params, effects.Options) (effects.Constructed, error)

// Scheduler owns the single effect slot of a surface. Starting an effect
// always stops the previous one first, and the previous effect's goroutine
// has returned before the new one is spawned, so two effects never write to
// the surface at the same time.
type Scheduler struct {
	surface *led.Surface
	logger  *slog.Logger
	metrics *metrics.Metrics
	newFx   constructor

	mu      sync.Mutex
	current *task
}

type task struct {
	kind    effects.Kind
	id      uuid.UUID
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func (t *task) exited() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// New creates a new idle scheduler for the given surface. m may be nil.
func New(surface *led.Surface, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		surface: surface,
		logger:  logger,
		metrics: m,
		newFx:   effects.New,
	}
}

// Start stops the running effect, if any, and starts the named effect with
// the given parameters. Parameters are clamped to the effect's schema.
//
// The running effect is stopped before the name is looked up, so requesting
// an unknown effect leaves the strip dark and the scheduler idle.
func (s *Scheduler) Start(ctx context.Context, name string, params effects.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.stop(ctx); err != nil {
			s.logger.Warn("failed to blank strip between effects", "err", err)
		}
	}

	kind, err := effects.ParseKind(name)
	if err != nil {
		s.logger.Info("effect not found", "effect", name)
		return errors.Wrapf(ErrEffectNotFound, "%q", name)
	}

	fx, err := s.construct(kind, params)
	if err != nil {
		s.logger.Error("failed to construct effect", "effect", kind, "err", err)
		return err
	}

	if len(fx.Ignored) > 0 {
		s.logger.Warn("ignoring invalid effect parameters", "effect", kind, "params", fx.Ignored)
	}

	s.spawn(fx.Effect)
	return nil
}

// StopAll stops the running effect, if any, then turns the whole strip off.
// It is safe to call when nothing is running.
func (s *Scheduler) StopAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stop(ctx)
}

// Status returns what the scheduler is currently doing. An effect that has
// terminated on its own is reported as idle, but its slot is only released by
// the next Start or StopAll so that the strip is still blanked.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.exited() {
		return Status{State: Idle}
	}

	started := s.current.started
	return Status{
		State:     Running,
		Effect:    s.current.kind.String(),
		RunID:     s.current.id.String(),
		StartedAt: &started,
	}
}

// construct builds the effect, converting panics into errors.
func (s *Scheduler) construct(kind effects.Kind, params effects.Params) (fx effects.Constructed, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Wrapf(ErrEffectFault, "panic constructing %s: %v", kind, v)
		}
	}()

	fx, err = s.newFx(kind, params, effects.Options{})
	if err != nil {
		return fx, fmt.Errorf("%w: constructing %s: %w", ErrEffectFault, kind, err)
	}
	return fx, nil
}

// spawn starts the effect in its own goroutine. s.mu must be held.
func (s *Scheduler) spawn(fx effects.Effect) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		kind:    fx.Kind(),
		id:      uuid.New(),
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	logger := s.logger.With("effect", t.kind, "run_id", t.id)
	logger.Info("starting effect")
	s.metrics.RecordEffectStart(t.kind.String())

	go func() {
		defer close(t.done)
		defer logger.Info("effect stopped")

		err := s.run(ctx, fx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("effect terminated with fault", "err", err)
			s.metrics.RecordEffectFault(t.kind.String())
			s.metrics.RecordEffectStop()
		}
	}()

	s.current = t
}

func (s *Scheduler) run(ctx context.Context, fx effects.Effect) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Wrapf(ErrEffectFault, "panic: %v", v)
		}
	}()

	if err := fx.Run(ctx, s.surface); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrEffectFault, err)
	}
	return nil
}

// stop cancels and joins the running effect, then blanks the strip. s.mu must
// be held.
func (s *Scheduler) stop(ctx context.Context) error {
	if t := s.current; t != nil {
		s.logger.Debug("stopping effect", "effect", t.kind, "run_id", t.id)
		t.cancel()
		<-t.done
		s.current = nil
		s.metrics.RecordEffectStop()
	}

	s.surface.Fill(led.Black)
	return s.surface.Flush(ctx)
}
