package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// BriefingResponse carries the backstory for the chat layer. It is served
// apart from session views because it names the culprit.
type BriefingResponse struct {
	PuzzleID string `json:"puzzle_id"`
	Title    string `json:"title,omitempty"`
	Briefing string `json:"briefing"`
}

type PuzzleHandler struct {
	service *services.PuzzleService
	logger  *slog.Logger
}

func NewPuzzleHandler(service *services.PuzzleService, logger *slog.Logger) *PuzzleHandler {
	return &PuzzleHandler{
		service: service,
		logger:  logger,
	}
}

// ServeHTTP handles HTTP requests for puzzle sessions
// Routes:
// POST   /v1/puzzles               - Open a new session
// GET    /v1/puzzles/briefing      - Backstory for the chat layer
// GET    /v1/puzzles/{id}          - Current board view
// POST   /v1/puzzles/{id}/gestures - Apply one gesture
// DELETE /v1/puzzles/{id}          - Close the session without scoring
func (h *PuzzleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/puzzles"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported on /v1/puzzles")
			return
		}
		h.handleOpen(w, r)
		return
	}

	if path == "briefing" {
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported on /v1/puzzles/briefing")
			return
		}
		h.handleBriefing(w)
		return
	}

	parts := strings.Split(path, "/")
	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, sessionID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleClose(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "gestures" && r.Method == http.MethodPost:
		h.handleGesture(w, r, sessionID)
	case len(parts) == 1, len(parts) == 2 && parts[1] == "gestures":
		h.logger.Warn("Method not allowed for puzzle endpoint", "method", r.Method, "path", r.URL.Path)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		h.writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *PuzzleHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Open(r.Context())
	if err != nil {
		h.logger.Error("Failed to open puzzle session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to open puzzle session")
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *PuzzleHandler) handleBriefing(w http.ResponseWriter) {
	def := h.service.Definition()
	if def.Briefing == "" {
		h.writeError(w, http.StatusNotFound, "This puzzle has no briefing")
		return
	}
	h.writeJSON(w, http.StatusOK, BriefingResponse{
		PuzzleID: def.ID,
		Title:    def.Title,
		Briefing: def.Briefing,
	})
}

func (h *PuzzleHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *PuzzleHandler) handleGesture(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var g services.Gesture
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	out, err := h.service.Apply(r.Context(), id, g)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *PuzzleHandler) handleClose(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.service.Close(r.Context(), id); err != nil {
		h.writeServiceError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PuzzleHandler) writeServiceError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "Puzzle session not found")
	case errors.Is(err, services.ErrInvalidGesture):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Puzzle session request failed", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *PuzzleHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *PuzzleHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
