package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services/events"
	"github.com/jwebster45206/murder-valley/pkg/board"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/jwebster45206/murder-valley/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an events.Publisher that remembers event types in order.
type recorder struct {
	mu       sync.Mutex
	types    []events.EventType
	prompts  []string
	failWith error
}

func (r *recorder) add(t events.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
	return r.failWith
}

func (r *recorder) PublishOpened(context.Context, uuid.UUID, string) error {
	return r.add(events.EventTypePuzzleOpened)
}

func (r *recorder) PublishUpdated(context.Context, uuid.UUID, board.Status, int, int) error {
	return r.add(events.EventTypePuzzleUpdated)
}

func (r *recorder) PublishScored(context.Context, uuid.UUID, board.Result) error {
	return r.add(events.EventTypePuzzleScored)
}

func (r *recorder) PublishSolved(context.Context, uuid.UUID, string) error {
	return r.add(events.EventTypePuzzleSolved)
}

func (r *recorder) PublishClosed(context.Context, uuid.UUID) error {
	return r.add(events.EventTypePuzzleClosed)
}

func (r *recorder) PublishFollowUp(_ context.Context, _ uuid.UUID, prompt string) error {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()
	return r.add(events.EventTypeChatFollowUp)
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.types {
		if got == t {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T) (*PuzzleService, *storage.MemoryStorage, *recorder) {
	t.Helper()
	store := storage.NewMemoryStorage(time.Hour)
	rec := &recorder{}
	svc := NewPuzzleService(store, puzzle.Valley(), PuzzleOptions{Events: rec})
	return svc, store, rec
}

// valleySolution maps each blank of the built-in puzzle to a token id with
// the right value.
var valleySolution = [][2]string{
	{"tok_elon_1", "murderer"},
	{"tok_elon_2", "motive_who"},
	{"tok_codes", "motive_what"},
	{"tok_agi", "motive_goal"},
	{"tok_sam_1", "witness"},
	{"tok_dario", "argument"},
	{"tok_sam_2", "innocent"},
}

func placeAll(t *testing.T, svc *PuzzleService, id uuid.UUID, moves [][2]string) {
	t.Helper()
	for _, m := range moves {
		out, err := svc.Apply(context.Background(), id, Gesture{Type: GesturePlace, TokenID: m[0], BlankID: m[1]})
		require.NoError(t, err)
		require.True(t, out.Accepted, "place %s in %s", m[0], m[1])
	}
}

func TestPuzzleService_Open(t *testing.T) {
	svc, store, rec := newTestService(t)

	view, err := svc.Open(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, view.SessionID)
	assert.Equal(t, "murder_in_the_valley", view.PuzzleID)
	assert.Equal(t, board.StatusIncomplete, view.Status)
	assert.Len(t, view.Pool, 9)
	assert.Equal(t, 7, view.Total)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleOpened))
}

func TestPuzzleService_GetUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Apply(context.Background(), uuid.New(), Gesture{Type: GestureSubmit})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Close(context.Background(), uuid.New()), ErrSessionNotFound)
}

func TestPuzzleService_DragGesturesPersist(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID

	out, err := svc.Apply(ctx, id, Gesture{Type: GestureDragStart, TokenID: "tok_elon_1"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	require.NotNil(t, out.Drag)

	// The drag survives between requests.
	out, err = svc.Apply(ctx, id, Gesture{Type: GestureDragOver, BlankID: "murderer"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)

	out, err = svc.Apply(ctx, id, Gesture{Type: GestureDrop, BlankID: "murderer"})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Nil(t, out.Drag)
	assert.Equal(t, 1, out.Filled)

	out, err = svc.Apply(ctx, id, Gesture{Type: GestureDragEnd})
	require.NoError(t, err)
	assert.False(t, out.Accepted, "drag end after drop is a no-op")

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Filled)
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleUpdated))
}

func TestPuzzleService_DropOnPool(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID
	placeAll(t, svc, id, [][2]string{{"tok_donald", "murderer"}})

	_, err = svc.Apply(ctx, id, Gesture{Type: GestureDragStart, TokenID: "tok_donald"})
	require.NoError(t, err)
	out, err := svc.Apply(ctx, id, Gesture{Type: GestureDrop, ToPool: true})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, 0, out.Filled)
	assert.Len(t, out.Pool, 9)
}

func TestPuzzleService_IgnoredGestures(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID

	tests := []Gesture{
		{Type: GestureDrop, BlankID: "murderer"}, // no drag session
		{Type: GestureDragStart, TokenID: "tok_nobody"},
		{Type: GesturePlace, TokenID: "tok_elon_1", BlankID: "nowhere"},
		{Type: GestureReturn, TokenID: "tok_elon_1"}, // already in the pool
		{Type: GestureSubmit},                        // board not full
	}
	for _, g := range tests {
		out, err := svc.Apply(ctx, id, g)
		require.NoError(t, err, "gesture %+v", g)
		assert.False(t, out.Accepted, "gesture %+v", g)
		assert.Equal(t, 0, out.Filled)
	}
	assert.Zero(t, rec.count(events.EventTypePuzzleUpdated))
	assert.Zero(t, rec.count(events.EventTypePuzzleScored))
}

func TestPuzzleService_InvalidGesture(t *testing.T) {
	svc, _, _ := newTestService(t)
	view, err := svc.Open(context.Background())
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), view.SessionID, Gesture{Type: "teleport"})
	assert.ErrorIs(t, err, ErrInvalidGesture)
}

func TestPuzzleService_WarningThenVictory(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID

	// Sam and Dario swapped in the last sentence: two mismatches.
	placeAll(t, svc, id, valleySolution[:5])
	placeAll(t, svc, id, [][2]string{{"tok_sam_2", "argument"}, {"tok_dario", "innocent"}})

	out, err := svc.Apply(ctx, id, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	require.NotNil(t, out.Result)
	assert.Equal(t, puzzle.TierWarning, out.Result.Tier)
	assert.Equal(t, 2, out.Result.Mismatches)
	assert.Equal(t, board.StatusWarning, out.Status)
	assert.Empty(t, out.FollowUp)

	// Scored state is persisted with its feedback.
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, board.StatusWarning, got.Status)
	require.NotNil(t, got.Result)

	placeAll(t, svc, id, [][2]string{{"tok_dario", "argument"}, {"tok_sam_2", "innocent"}})
	got, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, board.StatusReady, got.Status)
	assert.Nil(t, got.Result)

	out, err = svc.Apply(ctx, id, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.Equal(t, board.StatusVictory, out.Status)
	assert.Equal(t, puzzle.TierVictory, out.Result.Tier)
	assert.Equal(t, svc.Definition().VictoryPrompt, out.FollowUp)

	svc.Wait()
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleSolved))
	assert.Equal(t, 1, rec.count(events.EventTypeChatFollowUp))
	assert.Equal(t, 2, rec.count(events.EventTypePuzzleScored))
	assert.Equal(t, []string{svc.Definition().VictoryPrompt}, rec.prompts)

	// A solved session is gone.
	assert.Equal(t, 0, store.Len())
	_, err = svc.Apply(ctx, id, Gesture{Type: GestureSubmit})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, rec.count(events.EventTypeChatFollowUp))
}

func TestPuzzleService_Failure(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID

	placeAll(t, svc, id, [][2]string{
		{"tok_donald", "murderer"},
		{"tok_sam_1", "motive_who"},
		{"tok_safety", "motive_what"},
		{"tok_agi", "motive_goal"},
		{"tok_elon_1", "witness"},
		{"tok_dario", "argument"},
		{"tok_sam_2", "innocent"},
	})

	out, err := svc.Apply(ctx, id, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.Equal(t, puzzle.TierFailure, out.Result.Tier)
	assert.Equal(t, 4, out.Result.Mismatches)
	assert.Equal(t, svc.Definition().Feedback.Failure, out.Result.Message)
}

func TestPuzzleService_CustomThresholds(t *testing.T) {
	store := storage.NewMemoryStorage(time.Hour)
	lenient := puzzle.Thresholds{WarningMax: 7}
	svc := NewPuzzleService(store, puzzle.Valley(), PuzzleOptions{Thresholds: &lenient})
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)

	placeAll(t, svc, view.SessionID, [][2]string{
		{"tok_donald", "murderer"},
		{"tok_sam_1", "motive_who"},
		{"tok_safety", "motive_what"},
		{"tok_dario", "motive_goal"},
		{"tok_elon_1", "witness"},
		{"tok_agi", "argument"},
		{"tok_elon_2", "innocent"},
	})
	out, err := svc.Apply(ctx, view.SessionID, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.Equal(t, puzzle.TierWarning, out.Result.Tier)
	assert.Equal(t, 7, out.Result.Mismatches)
}

func TestPuzzleService_Close(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	placeAll(t, svc, view.SessionID, valleySolution[:2])

	require.NoError(t, svc.Close(ctx, view.SessionID))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleClosed))
	assert.Zero(t, rec.count(events.EventTypePuzzleSolved))

	assert.ErrorIs(t, svc.Close(ctx, view.SessionID), ErrSessionNotFound)
}

func TestPuzzleService_EventFailuresDoNotFailGestures(t *testing.T) {
	store := storage.NewMemoryStorage(time.Hour)
	rec := &recorder{failWith: errors.New("broker down")}
	svc := NewPuzzleService(store, puzzle.Valley(), PuzzleOptions{Events: rec})
	ctx := context.Background()

	view, err := svc.Open(ctx)
	require.NoError(t, err)
	placeAll(t, svc, view.SessionID, valleySolution)

	out, err := svc.Apply(ctx, view.SessionID, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.Equal(t, board.StatusVictory, out.Status)
	svc.Wait()
	assert.Equal(t, 1, rec.count(events.EventTypeChatFollowUp))
}

func TestPuzzleService_StoreErrors(t *testing.T) {
	store := storage.NewMemoryStorage(time.Hour)
	svc := NewPuzzleService(store, puzzle.Valley(), PuzzleOptions{})
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)

	// A session for another puzzle cannot be driven by this service.
	sess, err := store.LoadSession(ctx, view.SessionID)
	require.NoError(t, err)
	sess.PuzzleID = "other"
	sess.Board.PuzzleID = "other"
	require.NoError(t, store.SaveSession(ctx, sess))

	_, err = svc.Get(ctx, view.SessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `is for puzzle "other"`)

	// Corrupt placements are reported, not panicked on.
	sess.PuzzleID = "murder_in_the_valley"
	sess.Board.PuzzleID = "murder_in_the_valley"
	sess.Board.Pool = sess.Board.Pool[1:]
	require.NoError(t, store.SaveSession(ctx, sess))

	_, err = svc.Get(ctx, view.SessionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to restore session")
}

// flakyDeleteStore fails the first DeleteSession and then recovers.
type flakyDeleteStore struct {
	*storage.MemoryStorage
	failed bool
}

func (f *flakyDeleteStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if !f.failed {
		f.failed = true
		return errors.New("redis blip")
	}
	return f.MemoryStorage.DeleteSession(ctx, id)
}

func TestPuzzleService_VictoryAnnouncedOnceWhenDeleteFails(t *testing.T) {
	store := &flakyDeleteStore{MemoryStorage: storage.NewMemoryStorage(time.Hour)}
	rec := &recorder{}
	svc := NewPuzzleService(store, puzzle.Valley(), PuzzleOptions{Events: rec})
	ctx := context.Background()

	view, err := svc.Open(ctx)
	require.NoError(t, err)
	placeAll(t, svc, view.SessionID, valleySolution)

	_, err = svc.Apply(ctx, view.SessionID, Gesture{Type: GestureSubmit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis blip")
	svc.Wait()
	assert.Zero(t, rec.count(events.EventTypePuzzleSolved))
	assert.Zero(t, rec.count(events.EventTypeChatFollowUp))

	// The retry wins; the win is announced only now.
	out, err := svc.Apply(ctx, view.SessionID, Gesture{Type: GestureSubmit})
	require.NoError(t, err)
	assert.Equal(t, board.StatusVictory, out.Status)
	assert.Equal(t, svc.Definition().VictoryPrompt, out.FollowUp)
	svc.Wait()
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleSolved))
	assert.Equal(t, 1, rec.count(events.EventTypeChatFollowUp))

	_, err = svc.Apply(ctx, view.SessionID, Gesture{Type: GestureSubmit})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, rec.count(events.EventTypePuzzleSolved))
}

func TestPuzzleService_ConcurrentGestures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	view, err := svc.Open(ctx)
	require.NoError(t, err)
	id := view.SessionID

	var wg sync.WaitGroup
	for _, m := range valleySolution {
		wg.Add(1)
		go func(tokenID, blankID string) {
			defer wg.Done()
			_, err := svc.Apply(ctx, id, Gesture{Type: GesturePlace, TokenID: tokenID, BlankID: blankID})
			assert.NoError(t, err)
		}(m[0], m[1])
	}
	wg.Wait()

	// Serialized per session: no placement is lost to a racing save.
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Filled)
	assert.Equal(t, board.StatusReady, got.Status)
}
