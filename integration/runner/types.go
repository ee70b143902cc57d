package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single gesture and its expected outcome.
// A step with reset: true closes the session and opens a fresh one instead.
type TestStep struct {
	Name         string           `json:"name,omitempty"`
	Gesture      services.Gesture `json:"gesture"`
	Reset        bool             `json:"reset,omitempty"`
	Expectations Expectations     `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	// HTTPStatus, when set, expects the gesture request to fail with this
	// status. No other expectation is checked.
	HTTPStatus *int `json:"http_status,omitempty"`

	Accepted  *bool   `json:"accepted,omitempty"`
	Status    *string `json:"status,omitempty"`
	Filled    *int    `json:"filled,omitempty"`
	CanSubmit *bool   `json:"can_submit,omitempty"`
	Dragging  *string `json:"dragging,omitempty"` // token id, or "" for idle

	// Placements maps blank id to token id; "" expects the blank to be empty.
	Placements   map[string]string `json:"placements,omitempty"`
	PoolContains []string          `json:"pool_contains,omitempty"`

	// Scoring, checked against the outcome's result
	Tier             *string  `json:"tier,omitempty"`
	Mismatches       *int     `json:"mismatches,omitempty"`
	MessageContains  []string `json:"message_contains,omitempty"`
	FollowUpContains []string `json:"follow_up_contains,omitempty"`

	// SessionGone checks that the session can no longer be fetched.
	SessionGone *bool `json:"session_gone,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool // True if this was a reset step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	SessionID uuid.UUID // last session used by this suite
}
