package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// puzzleClient talks to the puzzle API.
type puzzleClient struct {
	client  *http.Client
	baseURL string
}

func (c *puzzleClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *puzzleClient) openPuzzle() (*services.SessionView, error) {
	var view services.SessionView
	if err := c.do(http.MethodPost, "/v1/puzzles", nil, http.StatusCreated, &view); err != nil {
		return nil, fmt.Errorf("failed to open puzzle: %w", err)
	}
	return &view, nil
}

func (c *puzzleClient) getPuzzle(id uuid.UUID) (*services.SessionView, error) {
	var view services.SessionView
	if err := c.do(http.MethodGet, "/v1/puzzles/"+id.String(), nil, http.StatusOK, &view); err != nil {
		return nil, fmt.Errorf("failed to get puzzle: %w", err)
	}
	return &view, nil
}

func (c *puzzleClient) sendGesture(id uuid.UUID, g services.Gesture) (*services.Outcome, error) {
	var out services.Outcome
	if err := c.do(http.MethodPost, "/v1/puzzles/"+id.String()+"/gestures", g, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("%s failed: %w", g.Type, err)
	}
	return &out, nil
}

func (c *puzzleClient) closePuzzle(id uuid.UUID) error {
	if err := c.do(http.MethodDelete, "/v1/puzzles/"+id.String(), nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to close puzzle: %w", err)
	}
	return nil
}

func (c *puzzleClient) do(method, path string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
