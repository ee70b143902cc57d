package puzzle

// SegmentKind tags a sentence segment as literal text or a blank.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentBlank SegmentKind = "blank"
)

// Segment is one piece of a sentence. Text segments carry Text; blank
// segments carry BlankID and Expected.
type Segment struct {
	Kind     SegmentKind `json:"type" yaml:"type"`
	Text     string      `json:"text,omitempty" yaml:"text,omitempty"`
	BlankID  string      `json:"blank_id,omitempty" yaml:"blank_id,omitempty"`
	Expected string      `json:"expected,omitempty" yaml:"expected,omitempty"` // answer key, never sent to clients
}

// Sentence is an ordered list of segments. Display data only.
type Sentence struct {
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Token is a relocatable word. Two tokens may share a Value; identity is the ID.
type Token struct {
	ID    string `json:"id" yaml:"id"`
	Value string `json:"value" yaml:"value"`
}

// Blank is a placement target derived from a blank segment.
type Blank struct {
	ID       string `json:"id"`
	Expected string `json:"-"`
	Sentence int    `json:"sentence"` // index into Definition.Sentences
}

// Feedback holds the message shown for each scoring tier.
type Feedback struct {
	Victory string `json:"victory,omitempty" yaml:"victory,omitempty"`
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Definition is the static configuration of a puzzle: sentences with their
// blanks and answer key, plus the initial token pool.
type Definition struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title,omitempty" yaml:"title,omitempty"`
	Sentences     []Sentence `json:"sentences" yaml:"sentences"`
	Pool          []Token    `json:"pool" yaml:"pool"`
	Feedback      Feedback   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	VictoryPrompt string     `json:"victory_prompt,omitempty" yaml:"victory_prompt,omitempty"` // follow-up sent to the chat layer on victory
	// Briefing is the backstory handed to the chat layer when a game starts.
	// It may name the culprit, so it never goes into a player view.
	Briefing string `json:"briefing,omitempty" yaml:"briefing,omitempty"`
}

// Blanks returns every blank in reading order.
func (d *Definition) Blanks() []Blank {
	var blanks []Blank
	for i, s := range d.Sentences {
		for _, seg := range s.Segments {
			if seg.Kind == SegmentBlank {
				blanks = append(blanks, Blank{ID: seg.BlankID, Expected: seg.Expected, Sentence: i})
			}
		}
	}
	return blanks
}

// FeedbackFor returns the configured message for a tier, falling back to the
// default wording when the definition leaves it blank.
func (d *Definition) FeedbackFor(t Tier) string {
	if msg := d.Feedback.messageFor(t); msg != "" {
		return msg
	}
	return DefaultFeedback.messageFor(t)
}

func (f Feedback) messageFor(t Tier) string {
	switch t {
	case TierVictory:
		return f.Victory
	case TierWarning:
		return f.Warning
	case TierFailure:
		return f.Failure
	}
	return ""
}

// DefaultVictoryPrompt is sent to the chat layer when a definition has no
// VictoryPrompt of its own.
const DefaultVictoryPrompt = "The user has solved the puzzle and found the murderer. Congratulate them and wrap up the story."

// FollowUpPrompt returns the chat follow-up for a solved board.
func (d *Definition) FollowUpPrompt() string {
	if d.VictoryPrompt != "" {
		return d.VictoryPrompt
	}
	return DefaultVictoryPrompt
}
