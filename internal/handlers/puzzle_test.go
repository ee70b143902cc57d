package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/jwebster45206/murder-valley/pkg/board"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/jwebster45206/murder-valley/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPuzzleHandler(t *testing.T) *PuzzleHandler {
	t.Helper()
	svc := services.NewPuzzleService(storage.NewMemoryStorage(time.Hour), puzzle.Valley(), services.PuzzleOptions{Logger: testLogger()})
	return NewPuzzleHandler(svc, testLogger())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func openSession(t *testing.T, h http.Handler) uuid.UUID {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/puzzles", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var view services.SessionView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	return view.SessionID
}

func TestPuzzleHandler_Open(t *testing.T) {
	h := newTestPuzzleHandler(t)

	rr := do(t, h, http.MethodPost, "/v1/puzzles", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.NotContains(t, body, "expected", "answer key must not leave the server")

	var view services.SessionView
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.NotEqual(t, uuid.Nil, view.SessionID)
	assert.Equal(t, board.StatusIncomplete, view.Status)
	assert.Equal(t, "A Murder in the Valley", view.Title)
	assert.Len(t, view.Sentences, 4)
	assert.Len(t, view.Pool, 9)
	assert.False(t, view.CanSubmit)
}

func TestPuzzleHandler_Briefing(t *testing.T) {
	h := newTestPuzzleHandler(t)

	rr := do(t, h, http.MethodGet, "/v1/puzzles/briefing", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp BriefingResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "murder_in_the_valley", resp.PuzzleID)
	assert.Equal(t, puzzle.Valley().Briefing, resp.Briefing)

	rr = do(t, h, http.MethodPost, "/v1/puzzles/briefing", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// The backstory never rides along with a player view.
	rr = do(t, h, http.MethodPost, "/v1/puzzles", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "briefing")

	noBriefing := puzzle.Valley()
	noBriefing.Briefing = ""
	svc := services.NewPuzzleService(storage.NewMemoryStorage(time.Hour), noBriefing, services.PuzzleOptions{Logger: testLogger()})
	rr = do(t, NewPuzzleHandler(svc, testLogger()), http.MethodGet, "/v1/puzzles/briefing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPuzzleHandler_GestureFlow(t *testing.T) {
	h := newTestPuzzleHandler(t)
	id := openSession(t, h)
	gestures := "/v1/puzzles/" + id.String() + "/gestures"

	rr := do(t, h, http.MethodPost, gestures, `{"type":"drag_start","token_id":"tok_elon_1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, gestures, `{"type":"drop","blank_id":"murderer"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out services.Outcome
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	assert.True(t, out.Accepted)
	assert.Equal(t, 1, out.Filled)

	// Submitting an incomplete board is ignored, not an error.
	rr = do(t, h, http.MethodPost, gestures, `{"type":"submit"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	out = services.Outcome{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	assert.False(t, out.Accepted)
	assert.Nil(t, out.Result)

	rr = do(t, h, http.MethodGet, "/v1/puzzles/"+id.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view services.SessionView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	require.NotNil(t, view.Sentences[0].Segments[1].Token)
	assert.Equal(t, "Elon", view.Sentences[0].Segments[1].Token.Value)
}

func TestPuzzleHandler_Victory(t *testing.T) {
	h := newTestPuzzleHandler(t)
	id := openSession(t, h)
	gestures := "/v1/puzzles/" + id.String() + "/gestures"

	for _, m := range [][2]string{
		{"tok_elon_1", "murderer"},
		{"tok_elon_2", "motive_who"},
		{"tok_codes", "motive_what"},
		{"tok_agi", "motive_goal"},
		{"tok_sam_1", "witness"},
		{"tok_dario", "argument"},
		{"tok_sam_2", "innocent"},
	} {
		rr := do(t, h, http.MethodPost, gestures, `{"type":"place","token_id":"`+m[0]+`","blank_id":"`+m[1]+`"}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(t, h, http.MethodPost, gestures, `{"type":"submit"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out services.Outcome
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	assert.Equal(t, board.StatusVictory, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, puzzle.TierVictory, out.Result.Tier)
	assert.NotEmpty(t, out.FollowUp)

	rr = do(t, h, http.MethodGet, "/v1/puzzles/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPuzzleHandler_Close(t *testing.T) {
	h := newTestPuzzleHandler(t)
	id := openSession(t, h)

	rr := do(t, h, http.MethodDelete, "/v1/puzzles/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodDelete, "/v1/puzzles/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPuzzleHandler_Errors(t *testing.T) {
	h := newTestPuzzleHandler(t)
	id := openSession(t, h)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "list not supported",
			method:         http.MethodGet,
			path:           "/v1/puzzles",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "bad session id",
			method:         http.MethodGet,
			path:           "/v1/puzzles/not-a-uuid",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid session ID format",
		},
		{
			name:           "unknown session",
			method:         http.MethodGet,
			path:           "/v1/puzzles/" + uuid.NewString(),
			expectedStatus: http.StatusNotFound,
			expectedError:  "Puzzle session not found",
		},
		{
			name:           "bad json",
			method:         http.MethodPost,
			path:           "/v1/puzzles/" + id.String() + "/gestures",
			body:           `{"type":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON in request body",
		},
		{
			name:           "unknown field",
			method:         http.MethodPost,
			path:           "/v1/puzzles/" + id.String() + "/gestures",
			body:           `{"type":"submit","force":true}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed gesture",
			method:         http.MethodPost,
			path:           "/v1/puzzles/" + id.String() + "/gestures",
			body:           `{"type":"drop"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "drop requires blank_id or to_pool",
		},
		{
			name:           "gesture on unknown session",
			method:         http.MethodPost,
			path:           "/v1/puzzles/" + uuid.NewString() + "/gestures",
			body:           `{"type":"submit"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "wrong method on gestures",
			method:         http.MethodGet,
			path:           "/v1/puzzles/" + id.String() + "/gestures",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "unknown sub-resource",
			method:         http.MethodGet,
			path:           "/v1/puzzles/" + id.String() + "/answers",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			if tt.expectedError != "" {
				assert.Contains(t, resp.Error, tt.expectedError)
			}
		})
	}
}
