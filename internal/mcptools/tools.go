// Package mcptools exposes puzzle sessions as MCP tools, so a chat host can
// open the board, move tokens and submit on the player's behalf.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool is one MCP tool: its schema and its handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every puzzle tool bound to svc.
func Tools(svc *services.PuzzleService) []Tool {
	return []Tool{
		&startTool{svc: svc},
		&statusTool{svc: svc},
		&gestureTool{
			svc:         svc,
			name:        "place_token",
			description: "Move a token from the pool or another blank into a blank. A token already in that blank goes back to the pool.",
			gesture:     services.GesturePlace,
			token:       true,
			blank:       true,
		},
		&gestureTool{
			svc:         svc,
			name:        "return_token",
			description: "Move a placed token back to the pool.",
			gesture:     services.GestureReturn,
			token:       true,
		},
		&gestureTool{
			svc:         svc,
			name:        "submit_board",
			description: "Score the board. Only accepted when every blank is filled.",
			gesture:     services.GestureSubmit,
		},
		&dragTool{svc: svc},
		&closeTool{svc: svc},
	}
}

// Register adds every puzzle tool to s.
func Register(s *server.MCPServer, svc *services.PuzzleService) {
	for _, t := range Tools(svc) {
		s.AddTool(t.Definition(), t.Handle)
	}
}

func withSession() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by start_puzzle"),
	)
}

type startTool struct {
	svc *services.PuzzleService
}

func (t *startTool) Definition() mcp.Tool {
	return mcp.NewTool("start_puzzle",
		mcp.WithDescription("Open the deduction board: sentences with blanks and a pool of word tokens. Returns the session id used by every other tool, followed by the game backstory for role-playing the suspects."),
	)
}

func (t *startTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := t.svc.Open(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open puzzle: %v", err)), nil
	}

	// The board goes first; the backstory is for the model only.
	result := mcp.NewToolResultText(renderSession(view, ""))
	if briefing := t.svc.Definition().Briefing; briefing != "" {
		result.Content = append(result.Content, mcp.NewTextContent(briefing))
	}
	return result, nil
}

type statusTool struct {
	svc *services.PuzzleService
}

func (t *statusTool) Definition() mcp.Tool {
	return mcp.NewTool("board_status",
		mcp.WithDescription("Show the board: filled blanks, the token pool and the current status."),
		withSession(),
	)
}

func (t *statusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := sessionArg(req)
	if errResult != nil {
		return errResult, nil
	}
	view, err := t.svc.Get(ctx, id)
	if err != nil {
		return serviceError(err), nil
	}
	return mcp.NewToolResultText(renderSession(view, "")), nil
}

// gestureTool is a one-shot gesture with fixed required arguments.
type gestureTool struct {
	svc          *services.PuzzleService
	name         string
	description  string
	gesture      services.GestureType
	token, blank bool
}

func (t *gestureTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.description), withSession()}
	if t.token {
		opts = append(opts, mcp.WithString("token_id", mcp.Required(), mcp.Description("Token to move")))
	}
	if t.blank {
		opts = append(opts, mcp.WithString("blank_id", mcp.Required(), mcp.Description("Target blank")))
	}
	return mcp.NewTool(t.name, opts...)
}

func (t *gestureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := sessionArg(req)
	if errResult != nil {
		return errResult, nil
	}
	g := services.Gesture{Type: t.gesture}
	if t.token {
		g.TokenID = stringArg(req, "token_id")
	}
	if t.blank {
		g.BlankID = stringArg(req, "blank_id")
	}
	return apply(ctx, t.svc, id, g), nil
}

// dragTool forwards raw drag gestures from hosts that track the pointer.
type dragTool struct {
	svc *services.PuzzleService
}

func (t *dragTool) Definition() mcp.Tool {
	return mcp.NewTool("drag_gesture",
		mcp.WithDescription("Forward a raw drag gesture: drag_start, drag_over, drop or drag_end."),
		withSession(),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Enum(string(services.GestureDragStart), string(services.GestureDragOver), string(services.GestureDrop), string(services.GestureDragEnd)),
			mcp.Description("Gesture type"),
		),
		mcp.WithString("token_id", mcp.Description("Token lifted by drag_start")),
		mcp.WithString("blank_id", mcp.Description("Blank under the pointer for drag_over and drop")),
		mcp.WithBoolean("to_pool", mcp.Description("Drop onto the pool instead of a blank")),
	)
}

func (t *dragTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := sessionArg(req)
	if errResult != nil {
		return errResult, nil
	}
	g := services.Gesture{
		Type:    services.GestureType(stringArg(req, "type")),
		TokenID: stringArg(req, "token_id"),
		BlankID: stringArg(req, "blank_id"),
	}
	if toPool, ok := req.Params.Arguments["to_pool"].(bool); ok {
		g.ToPool = toPool
	}
	switch g.Type {
	case services.GestureDragStart, services.GestureDragOver, services.GestureDrop, services.GestureDragEnd:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported drag gesture %q", g.Type)), nil
	}
	return apply(ctx, t.svc, id, g), nil
}

type closeTool struct {
	svc *services.PuzzleService
}

func (t *closeTool) Definition() mcp.Tool {
	return mcp.NewTool("close_puzzle",
		mcp.WithDescription("Dismiss the board without scoring."),
		withSession(),
	)
}

func (t *closeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := sessionArg(req)
	if errResult != nil {
		return errResult, nil
	}
	if err := t.svc.Close(ctx, id); err != nil {
		return serviceError(err), nil
	}
	return mcp.NewToolResultText("Puzzle closed."), nil
}

func apply(ctx context.Context, svc *services.PuzzleService, id uuid.UUID, g services.Gesture) *mcp.CallToolResult {
	out, err := svc.Apply(ctx, id, g)
	if err != nil {
		return serviceError(err)
	}

	var note string
	if !out.Accepted {
		note = "Nothing changed."
	}
	text := renderSession(&out.SessionView, note)
	if out.FollowUp != "" {
		text += "\n\nFollow-up: " + out.FollowUp
	}
	return mcp.NewToolResultText(text)
}

func renderSession(v *services.SessionView, note string) string {
	var out strings.Builder
	out.WriteString("Session: " + v.SessionID.String() + "\n")
	if note != "" {
		out.WriteString(note + "\n")
	}
	out.WriteString("\n" + v.Render())
	return out.String()
}

func sessionArg(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw := stringArg(req, "session_id")
	if raw == "" {
		return uuid.Nil, mcp.NewToolResultError("session_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("invalid session_id: %v", err))
	}
	return id, nil
}

func stringArg(req mcp.CallToolRequest, key string) string {
	v, _ := req.Params.Arguments[key].(string)
	return strings.TrimSpace(v)
}

func serviceError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return mcp.NewToolResultError("puzzle session not found; it may have been solved, closed or expired")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
