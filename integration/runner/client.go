package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Body)
}

// OpenPuzzle opens a new session
func OpenPuzzle(ctx context.Context, client *http.Client, baseURL string) (*services.SessionView, error) {
	var view services.SessionView
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/puzzles", nil, http.StatusCreated, &view); err != nil {
		return nil, fmt.Errorf("failed to open puzzle: %w", err)
	}
	return &view, nil
}

// GetPuzzle retrieves the current board of a session
func GetPuzzle(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*services.SessionView, error) {
	var view services.SessionView
	if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/v1/puzzles/%s", baseURL, sessionID), nil, http.StatusOK, &view); err != nil {
		return nil, fmt.Errorf("failed to get puzzle: %w", err)
	}
	return &view, nil
}

// PostGesture applies one gesture to a session
func PostGesture(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, g services.Gesture) (*services.Outcome, error) {
	var out services.Outcome
	url := fmt.Sprintf("%s/v1/puzzles/%s/gestures", baseURL, sessionID)
	if err := doJSON(ctx, client, http.MethodPost, url, g, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("failed to post %s gesture: %w", g.Type, err)
	}
	return &out, nil
}

// ClosePuzzle discards a session without scoring
func ClosePuzzle(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) error {
	if err := doJSON(ctx, client, http.MethodDelete, fmt.Sprintf("%s/v1/puzzles/%s", baseURL, sessionID), nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to close puzzle: %w", err)
	}
	return nil
}

func doJSON(ctx context.Context, client *http.Client, method, url string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		reqBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
