package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services/events"
	"github.com/jwebster45206/murder-valley/pkg/board"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/jwebster45206/murder-valley/pkg/storage"
)

// ErrSessionNotFound is returned for unknown, expired, solved or closed
// sessions.
var ErrSessionNotFound = errors.New("puzzle session not found")

// DefaultNotifyTimeout bounds delivery of the victory follow-up.
const DefaultNotifyTimeout = 5 * time.Second

// SessionView is a board view tagged with its session.
type SessionView struct {
	SessionID uuid.UUID `json:"session_id"`
	board.View
}

// Outcome is the result of applying one gesture.
type Outcome struct {
	// Accepted reports whether the gesture did anything. For drag_over it
	// reports whether a drop there would be accepted.
	Accepted bool `json:"accepted"`
	// FollowUp is the chat prompt, set only on the submit that won.
	FollowUp string `json:"follow_up,omitempty"`
	SessionView
}

// PuzzleOptions configures a PuzzleService.
type PuzzleOptions struct {
	Thresholds    *puzzle.Thresholds // nil means puzzle.DefaultThresholds
	Events        events.Publisher // nil discards events
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

// PuzzleService runs puzzle sessions on top of a session store. Every call
// restores the board from its snapshot, applies one operation, and parks
// the result again. Calls for the same session are serialized; calls for
// different sessions run in parallel.
type PuzzleService struct {
	store         storage.Storage
	def           *puzzle.Definition
	thresholds    *puzzle.Thresholds
	events        events.Publisher
	notifyTimeout time.Duration
	logger        *slog.Logger

	locks   sync.Map // uuid.UUID -> *sync.Mutex
	pending sync.WaitGroup
}

// NewPuzzleService creates a service serving sessions of def. The
// definition must already be validated.
func NewPuzzleService(store storage.Storage, def *puzzle.Definition, opts PuzzleOptions) *PuzzleService {
	s := &PuzzleService{
		store:         store,
		def:           def,
		thresholds:    opts.Thresholds,
		events:        opts.Events,
		notifyTimeout: opts.NotifyTimeout,
		logger:        opts.Logger,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = DefaultNotifyTimeout
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Definition returns the puzzle this service serves.
func (s *PuzzleService) Definition() *puzzle.Definition {
	return s.def
}

// Open starts a new session with every token in the pool.
func (s *PuzzleService) Open(ctx context.Context) (*SessionView, error) {
	id := uuid.New()
	ctrl := board.NewController(s.def, s.controllerOptions(id, nil, nil))

	now := time.Now()
	sess := &storage.Session{
		ID:        id,
		PuzzleID:  s.def.ID,
		Board:     ctrl.Snapshot(),
		CreatedAt: now,
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Puzzle session opened", "session_id", id, "puzzle_id", s.def.ID)
	s.publish("opened", id, func(ctx context.Context) error {
		return s.events.PublishOpened(ctx, id, s.def.ID)
	})

	return &SessionView{SessionID: id, View: ctrl.View()}, nil
}

// Get returns the current view of a session.
func (s *PuzzleService) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	ctrl, _, err := s.restore(ctx, id, nil, nil)
	if err != nil {
		return nil, err
	}
	return &SessionView{SessionID: id, View: ctrl.View()}, nil
}

// Apply delivers one gesture to a session. Gestures the board ignores are
// not errors: they come back with Accepted false. A winning submit ends the
// session; the returned view is its final state.
func (s *PuzzleService) Apply(ctx context.Context, id uuid.UUID, g Gesture) (*Outcome, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	unlock := s.lock(id)
	defer unlock()

	// Victory side effects run only once the solved session has left the
	// store.
	var solved bool
	var notice *board.VictoryNotice
	ctrl, sess, err := s.restore(ctx, id, func() { solved = true }, func(n board.VictoryNotice) {
		notice = &n
	})
	if err != nil {
		return nil, err
	}

	before := ctrl.Board().Filled()
	accepted, changed := s.dispatch(ctrl, g)

	logger := s.logger.With("session_id", id, "gesture", g.Type)
	if !accepted {
		logger.Debug("Gesture ignored", "token_id", g.TokenID, "blank_id", g.BlankID, "status", ctrl.Status())
	}

	if ctrl.Status() == board.StatusVictory {
		if err := s.store.DeleteSession(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to end solved session: %w", err)
		}
		s.locks.Delete(id)
		logger.Info("Puzzle session solved")
	} else {
		sess.Board = ctrl.Snapshot()
		if err := s.store.SaveSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	if solved {
		s.publish("solved", id, func(ctx context.Context) error {
			return s.events.PublishSolved(ctx, id, s.def.ID)
		})
	}
	var followUp string
	if notice != nil {
		followUp = notice.Prompt
		s.dispatchFollowUp(id, *notice)
	}

	if changed {
		v := ctrl.View()
		s.publish("updated", id, func(ctx context.Context) error {
			return s.events.PublishUpdated(ctx, id, v.Status, v.Filled, v.Total)
		})
		logger.Debug("Board changed", "filled_before", before, "filled", v.Filled)
	}
	if g.Type == GestureSubmit && accepted {
		res := *ctrl.Result()
		logger.Info("Board submitted", "tier", res.Tier, "mismatches", res.Mismatches)
		s.publish("scored", id, func(ctx context.Context) error {
			return s.events.PublishScored(ctx, id, res)
		})
	}

	return &Outcome{
		Accepted:    accepted,
		FollowUp:    followUp,
		SessionView: SessionView{SessionID: id, View: ctrl.View()},
	}, nil
}

// Close discards a session without scoring.
func (s *PuzzleService) Close(ctx context.Context, id uuid.UUID) error {
	unlock := s.lock(id)
	defer unlock()

	ctrl, _, err := s.restore(ctx, id, nil, nil)
	if err != nil {
		return err
	}
	ctrl.Close()

	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.locks.Delete(id)

	s.logger.Info("Puzzle session closed", "session_id", id)
	s.publish("closed", id, func(ctx context.Context) error {
		return s.events.PublishClosed(ctx, id)
	})
	return nil
}

// Wait blocks until pending victory follow-ups have been delivered or have
// timed out. Used on shutdown.
func (s *PuzzleService) Wait() {
	s.pending.Wait()
}

// dispatch maps a gesture onto the controller. changed reports whether the
// board itself moved.
func (s *PuzzleService) dispatch(ctrl *board.Controller, g Gesture) (accepted, changed bool) {
	switch g.Type {
	case GestureDragStart:
		return ctrl.DragStart(g.TokenID), false
	case GestureDragOver:
		return ctrl.DragOver(g.BlankID), false
	case GestureDrop:
		if g.ToPool {
			ok := ctrl.DropOnPool()
			return ok, ok
		}
		ok := ctrl.Drop(g.BlankID)
		return ok, ok
	case GestureDragEnd:
		return ctrl.DragEnd(), false
	case GesturePlace:
		ok := ctrl.Place(g.TokenID, g.BlankID)
		return ok, ok
	case GestureReturn:
		ok := ctrl.Return(g.TokenID)
		return ok, ok
	case GestureSubmit:
		return ctrl.Submit() != nil, false
	}
	return false, false
}

func (s *PuzzleService) restore(ctx context.Context, id uuid.UUID, onVictory func(), notify func(board.VictoryNotice)) (*board.Controller, *storage.Session, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	if sess.PuzzleID != s.def.ID {
		return nil, nil, fmt.Errorf("session %s is for puzzle %q, not %q", id, sess.PuzzleID, s.def.ID)
	}

	ctrl, err := board.Restore(s.def, sess.Board, s.controllerOptions(id, onVictory, notify))
	if err != nil {
		s.logger.Error("Stored session is corrupt", "session_id", id, "error", err)
		return nil, nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return ctrl, sess, nil
}

func (s *PuzzleService) controllerOptions(id uuid.UUID, onVictory func(), notify func(board.VictoryNotice)) board.Options {
	opts := board.Options{
		Thresholds: s.thresholds,
		Logger:     s.logger.With("session_id", id),
		OnVictory:  onVictory,
	}
	if notify != nil {
		opts.Notifier = board.NotifierFunc(notify)
	}
	return opts
}

// dispatchFollowUp delivers the victory prompt without holding up the
// gesture that won. Delivery failures are logged and dropped.
func (s *PuzzleService) dispatchFollowUp(id uuid.UUID, n board.VictoryNotice) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.events.PublishFollowUp(ctx, id, n.Prompt); err != nil {
			s.logger.Warn("Failed to deliver victory follow-up", "session_id", id, "error", err)
		}
	}()
}

// publish sends a best-effort event. Event delivery never fails a gesture.
func (s *PuzzleService) publish(name string, id uuid.UUID, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("Failed to publish event", "event", name, "session_id", id, "error", err)
	}
}

func (s *PuzzleService) lock(id uuid.UUID) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
