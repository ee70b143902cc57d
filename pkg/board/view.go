package board

import (
	"strconv"
	"strings"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

// SegmentView is a sentence segment as shown to the player. Blank segments
// carry the occupying token, never the expected value.
type SegmentView struct {
	Type    puzzle.SegmentKind `json:"type"`
	Text    string             `json:"text,omitempty"`
	BlankID string             `json:"blank_id,omitempty"`
	Token   *puzzle.Token      `json:"token,omitempty"`
}

// SentenceView is one rendered sentence.
type SentenceView struct {
	Segments []SegmentView `json:"segments"`
}

// View is the player-facing picture of the board.
type View struct {
	PuzzleID  string         `json:"puzzle_id"`
	Title     string         `json:"title,omitempty"`
	Status    Status         `json:"status"`
	CanSubmit bool           `json:"can_submit"`
	Filled    int            `json:"filled"`
	Total     int            `json:"total"`
	Sentences []SentenceView `json:"sentences"`
	Pool      []puzzle.Token `json:"pool"`
	Result    *Result        `json:"result,omitempty"`
	Drag      *Dragging      `json:"drag,omitempty"`
}

// View builds the player-facing picture of the current state.
func (c *Controller) View() View {
	b := c.board
	v := View{
		PuzzleID:  b.def.ID,
		Title:     b.def.Title,
		Status:    c.status,
		CanSubmit: c.CanSubmit(),
		Filled:    b.Filled(),
		Total:     len(b.blanks),
		Pool:      b.Pool(),
		Result:    c.result,
	}
	if d, ok := c.drag.(Dragging); ok {
		v.Drag = &d
	}

	v.Sentences = make([]SentenceView, len(b.def.Sentences))
	for i, s := range b.def.Sentences {
		segs := make([]SegmentView, len(s.Segments))
		for j, seg := range s.Segments {
			if seg.Kind == puzzle.SegmentText {
				segs[j] = SegmentView{Type: puzzle.SegmentText, Text: seg.Text}
				continue
			}
			sv := SegmentView{Type: puzzle.SegmentBlank, BlankID: seg.BlankID}
			if tok, ok := b.TokenIn(seg.BlankID); ok {
				sv.Token = &tok
			}
			segs[j] = sv
		}
		v.Sentences[i] = SentenceView{Segments: segs}
	}
	return v
}

// Statement renders the sentences as plain text, with empty blanks shown as
// underscores.
func (v View) Statement() string {
	var out strings.Builder
	for i, s := range v.Sentences {
		if i > 0 {
			out.WriteString(" ")
		}
		for _, seg := range s.Segments {
			switch {
			case seg.Type == puzzle.SegmentText:
				out.WriteString(seg.Text)
			case seg.Token != nil:
				out.WriteString(seg.Token.Value)
			default:
				out.WriteString("____")
			}
		}
	}
	return out.String()
}

// Render is a compact text rendering for chat and terminal hosts: numbered
// sentences with bracketed blanks, then the pool.
func (v View) Render() string {
	var out strings.Builder
	if v.Title != "" {
		out.WriteString(v.Title + "\n\n")
	}
	for i, s := range v.Sentences {
		out.WriteString(strconv.Itoa(i+1) + ". ")
		for _, seg := range s.Segments {
			switch {
			case seg.Type == puzzle.SegmentText:
				out.WriteString(seg.Text)
			case seg.Token != nil:
				out.WriteString("[" + seg.BlankID + ": " + seg.Token.Value + " (" + seg.Token.ID + ")]")
			default:
				out.WriteString("[" + seg.BlankID + ": ____]")
			}
		}
		out.WriteString("\n")
	}

	out.WriteString("\nPool:")
	if len(v.Pool) == 0 {
		out.WriteString(" (empty)")
	}
	for _, t := range v.Pool {
		out.WriteString(" " + t.Value + " (" + t.ID + ")")
	}
	out.WriteString("\n\nStatus: " + string(v.Status) + " (" + strconv.Itoa(v.Filled) + "/" + strconv.Itoa(v.Total) + " filled)")
	if v.Result != nil {
		out.WriteString("\n" + v.Result.Message)
	}
	return out.String()
}
