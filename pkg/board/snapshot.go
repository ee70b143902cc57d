package board

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

// Snapshot is the serializable form of a controller, used to park a session
// between requests.
type Snapshot struct {
	PuzzleID   string            `json:"puzzle_id"`
	Status     Status            `json:"status"`
	Placements map[string]string `json:"placements"` // blank id -> token id, "" when empty
	Pool       []string          `json:"pool"`
	Result     *Result           `json:"result,omitempty"`
	Drag       *Dragging         `json:"drag,omitempty"`
}

// Snapshot captures the controller state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		PuzzleID:   c.board.def.ID,
		Status:     c.status,
		Placements: c.board.Placements(),
		Pool:       make([]string, 0, len(c.board.pool)),
	}
	for _, t := range c.board.Pool() {
		s.Pool = append(s.Pool, t.ID)
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if d, ok := c.drag.(Dragging); ok {
		s.Drag = &d
	}
	return s
}

// Restore rebuilds a controller from a snapshot. Unlike live placements,
// a snapshot is external data, so inconsistencies are returned as errors
// rather than treated as defects.
func Restore(def *puzzle.Definition, s Snapshot, opts Options) (*Controller, error) {
	if s.PuzzleID != def.ID {
		return nil, fmt.Errorf("snapshot is for puzzle %q, not %q", s.PuzzleID, def.ID)
	}

	b := New(def)
	for i := range b.placements {
		b.placements[i] = empty
	}
	b.pool = b.pool[:0]

	if len(s.Placements) != len(b.blanks) {
		return nil, fmt.Errorf("snapshot has %d placements for %d blanks", len(s.Placements), len(b.blanks))
	}
	for blankID, tokenID := range s.Placements {
		bi, ok := b.blankIndex[blankID]
		if !ok {
			return nil, fmt.Errorf("snapshot references unknown blank %q", blankID)
		}
		if tokenID == "" {
			continue
		}
		ti, ok := b.tokenIndex[tokenID]
		if !ok {
			return nil, fmt.Errorf("snapshot places unknown token %q", tokenID)
		}
		if b.location[ti] != empty {
			return nil, fmt.Errorf("snapshot places token %q twice", tokenID)
		}
		b.placements[bi] = ti
		b.location[ti] = bi
	}

	for _, tokenID := range s.Pool {
		ti, ok := b.tokenIndex[tokenID]
		if !ok {
			return nil, fmt.Errorf("snapshot pool holds unknown token %q", tokenID)
		}
		b.pool = append(b.pool, ti)
	}
	slices.Sort(b.pool)

	if err := b.checkInvariant(); err != nil {
		return nil, fmt.Errorf("inconsistent snapshot: %w", err)
	}

	c := newController(b, opts)
	switch s.Status {
	case StatusIncomplete, StatusReady:
		if s.Status != c.fillStatus() {
			return nil, fmt.Errorf("snapshot status %q does not match the board", s.Status)
		}
	case StatusWarning, StatusFailure, StatusVictory:
		if !b.Full() {
			return nil, fmt.Errorf("snapshot status %q requires a full board", s.Status)
		}
		if s.Result == nil {
			return nil, fmt.Errorf("snapshot status %q has no result", s.Status)
		}
	case StatusClosed:
	default:
		return nil, fmt.Errorf("unknown snapshot status %q", s.Status)
	}
	c.status = s.Status

	if s.Result != nil {
		r := *s.Result
		c.result = &r
	}

	// A drag whose token moved since it was recorded is stale; drop it.
	if s.Drag != nil && !c.status.Terminal() {
		if src, ok := b.Locate(s.Drag.TokenID); ok && src == s.Drag.SourceBlank {
			c.drag = *s.Drag
		}
	}

	return c, nil
}
