package services

import (
	"errors"
	"fmt"
)

// ErrInvalidGesture marks a request that is malformed, as opposed to a
// well-formed gesture the board ignores.
var ErrInvalidGesture = errors.New("invalid gesture")

// GestureType names a host gesture.
type GestureType string

const (
	GestureDragStart GestureType = "drag_start"
	GestureDragOver  GestureType = "drag_over"
	GestureDrop      GestureType = "drop"
	GestureDragEnd   GestureType = "drag_end"
	GestureSubmit    GestureType = "submit"

	// Shorthands for hosts without drag gestures.
	GesturePlace  GestureType = "place"
	GestureReturn GestureType = "return"
)

// Gesture is one host input event.
type Gesture struct {
	Type    GestureType `json:"type"`
	TokenID string      `json:"token_id,omitempty"`
	BlankID string      `json:"blank_id,omitempty"`
	ToPool  bool        `json:"to_pool,omitempty"` // drop onto the pool instead of a blank
}

// Validate checks that the gesture carries the fields its type needs. It
// does not check that the ids exist; unknown ids are ignored by the board.
func (g Gesture) Validate() error {
	switch g.Type {
	case GestureDragStart, GestureReturn:
		if g.TokenID == "" {
			return fmt.Errorf("%w: %s requires token_id", ErrInvalidGesture, g.Type)
		}
	case GestureDragOver:
		if g.BlankID == "" {
			return fmt.Errorf("%w: %s requires blank_id", ErrInvalidGesture, g.Type)
		}
	case GestureDrop:
		if g.BlankID == "" && !g.ToPool {
			return fmt.Errorf("%w: drop requires blank_id or to_pool", ErrInvalidGesture)
		}
		if g.BlankID != "" && g.ToPool {
			return fmt.Errorf("%w: drop takes blank_id or to_pool, not both", ErrInvalidGesture)
		}
	case GesturePlace:
		if g.TokenID == "" || g.BlankID == "" {
			return fmt.Errorf("%w: place requires token_id and blank_id", ErrInvalidGesture)
		}
	case GestureDragEnd, GestureSubmit:
	case "":
		return fmt.Errorf("%w: type is required", ErrInvalidGesture)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidGesture, g.Type)
	}
	return nil
}
