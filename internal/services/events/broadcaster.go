package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/pkg/board"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypePuzzleOpened  EventType = "puzzle.opened"
	EventTypePuzzleUpdated EventType = "puzzle.updated"
	EventTypePuzzleScored  EventType = "puzzle.scored"
	EventTypePuzzleSolved  EventType = "puzzle.solved" // scene transition
	EventTypePuzzleClosed  EventType = "puzzle.closed"
	EventTypeChatFollowUp  EventType = "chat.followup" // victory prompt for the chat layer
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Publisher is what the session layer needs from a broadcaster.
type Publisher interface {
	PublishOpened(ctx context.Context, sessionID uuid.UUID, puzzleID string) error
	PublishUpdated(ctx context.Context, sessionID uuid.UUID, status board.Status, filled, total int) error
	PublishScored(ctx context.Context, sessionID uuid.UUID, result board.Result) error
	PublishSolved(ctx context.Context, sessionID uuid.UUID, puzzleID string) error
	PublishClosed(ctx context.Context, sessionID uuid.UUID) error
	PublishFollowUp(ctx context.Context, sessionID uuid.UUID, prompt string) error
}

// Channel is the Pub/Sub channel carrying one session's events.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("puzzle-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishOpened(ctx context.Context, sessionID uuid.UUID, puzzleID string) error {
	return b.publish(ctx, sessionID, EventTypePuzzleOpened, map[string]interface{}{
		"puzzle_id": puzzleID,
	})
}

func (b *Broadcaster) PublishUpdated(ctx context.Context, sessionID uuid.UUID, status board.Status, filled, total int) error {
	return b.publish(ctx, sessionID, EventTypePuzzleUpdated, map[string]interface{}{
		"status": status,
		"filled": filled,
		"total":  total,
	})
}

// PublishScored carries the tier and message only, like the result itself.
func (b *Broadcaster) PublishScored(ctx context.Context, sessionID uuid.UUID, result board.Result) error {
	return b.publish(ctx, sessionID, EventTypePuzzleScored, map[string]interface{}{
		"mismatches": result.Mismatches,
		"tier":       result.Tier,
		"message":    result.Message,
	})
}

func (b *Broadcaster) PublishSolved(ctx context.Context, sessionID uuid.UUID, puzzleID string) error {
	return b.publish(ctx, sessionID, EventTypePuzzleSolved, map[string]interface{}{
		"puzzle_id": puzzleID,
	})
}

func (b *Broadcaster) PublishClosed(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, EventTypePuzzleClosed, nil)
}

func (b *Broadcaster) PublishFollowUp(ctx context.Context, sessionID uuid.UUID, prompt string) error {
	return b.publish(ctx, sessionID, EventTypeChatFollowUp, map[string]interface{}{
		"prompt": prompt,
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, eventType EventType, data map[string]interface{}) error {
	channel := Channel(sessionID)
	event := Event{Type: eventType, SessionID: sessionID.String(), Data: data}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", eventType,
	)
	return nil
}

// Nop discards every event. Used when no Redis is configured.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) PublishOpened(context.Context, uuid.UUID, string) error                { return nil }
func (Nop) PublishUpdated(context.Context, uuid.UUID, board.Status, int, int) error { return nil }
func (Nop) PublishScored(context.Context, uuid.UUID, board.Result) error          { return nil }
func (Nop) PublishSolved(context.Context, uuid.UUID, string) error                { return nil }
func (Nop) PublishClosed(context.Context, uuid.UUID) error                        { return nil }
func (Nop) PublishFollowUp(context.Context, uuid.UUID, string) error              { return nil }
