package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/pkg/board"
)

// Session is a parked puzzle session: the board snapshot between gestures.
type Session struct {
	ID        uuid.UUID      `json:"id"`
	PuzzleID  string         `json:"puzzle_id"`
	Board     board.Snapshot `json:"board"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Storage persists puzzle sessions. Sessions are ephemeral: implementations
// expire them after a TTL.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveSession stores s and refreshes its expiry. UpdatedAt is set on save.
	SaveSession(ctx context.Context, s *Session) error
	// LoadSession returns nil, nil when the session does not exist or has expired.
	LoadSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
