package board

import (
	"io"
	"log/slog"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

// Status is the controller's position in the puzzle lifecycle.
type Status string

const (
	StatusIncomplete Status = "incomplete"      // at least one blank is empty
	StatusReady      Status = "ready_to_submit" // every blank filled, not scored
	StatusWarning    Status = "scored_warning"
	StatusFailure    Status = "scored_failure"
	StatusVictory    Status = "victory" // terminal
	StatusClosed     Status = "closed"  // terminal, discarded without scoring
)

// Terminal reports whether the status accepts no further gestures.
func (s Status) Terminal() bool {
	return s == StatusVictory || s == StatusClosed
}

// Result is the outcome of a submit. It never says which blanks are wrong.
type Result struct {
	Mismatches int         `json:"mismatches"`
	Tier       puzzle.Tier `json:"tier"`
	Message    string      `json:"message"`
}

// VictoryNotice is the one-shot message emitted to the chat layer when the
// puzzle is solved.
type VictoryNotice struct {
	PuzzleID string `json:"puzzle_id"`
	Prompt   string `json:"prompt"`
}

// Notifier receives the victory notice. Implementations must not block:
// the controller does not wait for delivery.
type Notifier interface {
	NotifyVictory(n VictoryNotice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n VictoryNotice)

func (f NotifierFunc) NotifyVictory(n VictoryNotice) { f(n) }

// Options configures a Controller. Zero values are usable.
type Options struct {
	Thresholds *puzzle.Thresholds // nil means puzzle.DefaultThresholds
	OnVictory  func()             // scene transition hook, called once
	Notifier   Notifier           // chat follow-up, called once
	Logger     *slog.Logger
}

// Controller owns one board for one puzzle session and turns host gestures
// into placements, gating submit on a full board.
//
// Gestures must be delivered from a single goroutine.
type Controller struct {
	board      *Board
	thresholds puzzle.Thresholds
	status     Status
	result     *Result
	drag       Drag
	onVictory  func()
	notifier   Notifier
	logger     *slog.Logger
}

// NewController opens a puzzle: every token starts in the pool.
func NewController(def *puzzle.Definition, opts Options) *Controller {
	return newController(New(def), opts)
}

func newController(b *Board, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	thresholds := puzzle.DefaultThresholds
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	c := &Controller{
		board:      b,
		thresholds: thresholds,
		drag:       Idle{},
		onVictory:  opts.OnVictory,
		notifier:   opts.Notifier,
		logger:     logger.With("puzzle_id", b.def.ID),
	}
	c.status = c.fillStatus()
	return c
}

// Board exposes the underlying board for read access.
func (c *Controller) Board() *Board {
	return c.board
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	return c.status
}

// Result returns the last scoring outcome, or nil when the board has not
// been scored since it last changed.
func (c *Controller) Result() *Result {
	return c.result
}

// Drag returns the current drag state.
func (c *Controller) Drag() Drag {
	return c.drag
}

// CanSubmit reports whether the submit affordance should be enabled.
func (c *Controller) CanSubmit() bool {
	return c.status == StatusReady
}

// DragStart begins moving a token. The source is read from the board, so a
// stale host view cannot misreport it. Starting a new drag replaces any
// abandoned one.
func (c *Controller) DragStart(tokenID string) bool {
	if c.status.Terminal() {
		return false
	}
	source, ok := c.board.Locate(tokenID)
	if !ok {
		c.logger.Debug("Ignoring drag of unknown token", "token_id", tokenID)
		return false
	}
	c.drag = Dragging{TokenID: tokenID, SourceBlank: source}
	return true
}

// DragOver reports whether dropping the dragged token on blankID would be
// accepted. It never mutates the board.
func (c *Controller) DragOver(blankID string) bool {
	d, ok := c.drag.(Dragging)
	if !ok || c.status.Terminal() {
		return false
	}
	return c.board.HasBlank(blankID) && d.SourceBlank != blankID
}

// Drop places the dragged token into blankID and ends the drag. It reports
// whether the board changed. A drop with no drag in progress is ignored.
func (c *Controller) Drop(blankID string) bool {
	d, ok := c.endDrag()
	if !ok {
		c.logger.Debug("Ignoring drop without drag session", "blank_id", blankID)
		return false
	}
	if !c.board.Place(d.TokenID, blankID) {
		c.logger.Debug("Drop had no effect", "token_id", d.TokenID, "blank_id", blankID)
		return false
	}
	c.changed()
	return true
}

// DropOnPool returns the dragged token to the pool and ends the drag.
func (c *Controller) DropOnPool() bool {
	d, ok := c.endDrag()
	if !ok {
		c.logger.Debug("Ignoring pool drop without drag session")
		return false
	}
	if !c.board.Return(d.TokenID) {
		return false
	}
	c.changed()
	return true
}

// DragEnd clears the drag session without touching the board. It reports
// whether an abandoned drag was cancelled; after a drop it is a no-op.
func (c *Controller) DragEnd() bool {
	_, ok := c.endDrag()
	return ok
}

// Place moves a token straight into blankID, for hosts without drag
// gestures. A drag in progress survives it; its source is re-read from the
// board.
func (c *Controller) Place(tokenID, blankID string) bool {
	if c.status.Terminal() {
		return false
	}
	if !c.board.Place(tokenID, blankID) {
		c.logger.Debug("Place had no effect", "token_id", tokenID, "blank_id", blankID)
		return false
	}
	c.changed()
	c.refreshDrag()
	return true
}

// Return moves a placed token back to the pool. Like Place, it leaves a
// drag in progress alone.
func (c *Controller) Return(tokenID string) bool {
	if c.status.Terminal() {
		return false
	}
	if !c.board.Return(tokenID) {
		c.logger.Debug("Return had no effect", "token_id", tokenID)
		return false
	}
	c.changed()
	c.refreshDrag()
	return true
}

// Submit scores the board. It is only accepted in StatusReady; anywhere
// else it is a no-op returning nil.
func (c *Controller) Submit() *Result {
	if c.status != StatusReady {
		c.logger.Debug("Ignoring submit", "status", c.status)
		return nil
	}

	mismatches := c.board.Mismatches()
	tier := c.thresholds.Classify(mismatches)
	c.result = &Result{
		Mismatches: mismatches,
		Tier:       tier,
		Message:    c.board.def.FeedbackFor(tier),
	}

	switch tier {
	case puzzle.TierVictory:
		c.status = StatusVictory
		c.drag = Idle{}
		c.logger.Info("Puzzle solved")
		c.announceVictory()
	case puzzle.TierWarning:
		c.status = StatusWarning
	default:
		c.status = StatusFailure
	}
	c.logger.Debug("Board scored", "mismatches", mismatches, "tier", tier)
	return c.result
}

// Close discards the session without scoring. Safe from any state.
func (c *Controller) Close() {
	c.drag = Idle{}
	if c.status.Terminal() {
		return
	}
	c.status = StatusClosed
	c.result = nil
}

func (c *Controller) endDrag() (Dragging, bool) {
	d, ok := c.drag.(Dragging)
	c.drag = Idle{}
	if !ok || c.status.Terminal() {
		return Dragging{}, false
	}
	return d, true
}

// changed re-derives the status after a placement. Any change after scoring
// drops the stale feedback.
func (c *Controller) changed() {
	c.result = nil
	c.status = c.fillStatus()
}

// refreshDrag keeps the dragged token's source in step with the board after
// a move made outside the drag.
func (c *Controller) refreshDrag() {
	d, ok := c.drag.(Dragging)
	if !ok {
		return
	}
	d.SourceBlank, _ = c.board.Locate(d.TokenID)
	c.drag = d
}

func (c *Controller) fillStatus() Status {
	if c.board.Full() {
		return StatusReady
	}
	return StatusIncomplete
}

func (c *Controller) announceVictory() {
	if c.onVictory != nil {
		c.onVictory()
	}
	if c.notifier != nil {
		c.notifier.NotifyVictory(VictoryNotice{
			PuzzleID: c.board.def.ID,
			Prompt:   c.board.def.FollowUpPrompt(),
		})
	}
}
