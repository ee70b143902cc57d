package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running murder-valley API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	// If this is not a sequence, return it as-is
	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	// This is a sequence - load all referenced cases
	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite on a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	view, err := OpenPuzzle(ctx, r.Client, r.BaseURL)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SessionID = view.SessionID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, &result.SessionID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep applies one step. A reset step replaces *sessionID with a new session.
func (r *Runner) runStep(ctx context.Context, sessionID *uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if step.Reset {
		// The old session may already be gone after a victory.
		var se *StatusError
		if err := ClosePuzzle(ctx, r.Client, r.BaseURL, *sessionID); err != nil && !(errors.As(err, &se) && se.Status == http.StatusNotFound) {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
		view, err := OpenPuzzle(ctx, r.Client, r.BaseURL)
		if err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
		*sessionID = view.SessionID
		result.Success = true
		result.IsReset = true
		result.Duration = time.Since(start)
		return result
	}

	out, err := PostGesture(ctx, r.Client, r.BaseURL, *sessionID, step.Gesture)
	if step.Expectations.HTTPStatus != nil {
		result.Error = checkStatus(*step.Expectations.HTTPStatus, err)
		result.Success = result.Error == nil
		result.Duration = time.Since(start)
		return result
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if err := r.checkExpectations(ctx, *sessionID, step.Expectations, out); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func checkStatus(want int, err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		if err == nil {
			return fmt.Errorf("expected HTTP %d, got success", want)
		}
		return err
	}
	if se.Status != want {
		return fmt.Errorf("expected HTTP %d, got %d: %s", want, se.Status, se.Body)
	}
	return nil
}

// checkExpectations validates the step expectations against the outcome
func (r *Runner) checkExpectations(ctx context.Context, sessionID uuid.UUID, exp Expectations, out *services.Outcome) error {
	if exp.Accepted != nil && out.Accepted != *exp.Accepted {
		return fmt.Errorf("expected accepted to be %t, got %t", *exp.Accepted, out.Accepted)
	}

	if exp.Status != nil && string(out.Status) != *exp.Status {
		return fmt.Errorf("expected status %s, got %s", *exp.Status, out.Status)
	}

	if exp.Filled != nil && out.Filled != *exp.Filled {
		return fmt.Errorf("expected %d filled blanks, got %d", *exp.Filled, out.Filled)
	}

	if exp.CanSubmit != nil && out.CanSubmit != *exp.CanSubmit {
		return fmt.Errorf("expected can_submit to be %t, got %t", *exp.CanSubmit, out.CanSubmit)
	}

	if exp.Dragging != nil {
		var got string
		if out.Drag != nil {
			got = out.Drag.TokenID
		}
		if got != *exp.Dragging {
			return fmt.Errorf("expected dragging %q, got %q", *exp.Dragging, got)
		}
	}

	if len(exp.Placements) > 0 {
		actual := placements(&out.SessionView)
		for blankID, want := range exp.Placements {
			got, exists := actual[blankID]
			if !exists {
				return fmt.Errorf("expected blank %s to exist, but it doesn't", blankID)
			}
			if got != want {
				return fmt.Errorf("expected blank %s to hold %q, got %q", blankID, want, got)
			}
		}
	}

	if len(exp.PoolContains) > 0 {
		var pool []string
		for _, tok := range out.Pool {
			pool = append(pool, tok.ID)
		}
		for _, id := range exp.PoolContains {
			if !slices.Contains(pool, id) {
				return fmt.Errorf("expected pool to contain '%s'. Actual pool: %v", id, pool)
			}
		}
	}

	if exp.Tier != nil || exp.Mismatches != nil || len(exp.MessageContains) > 0 {
		if out.Result == nil {
			return fmt.Errorf("expected a scored result, got none")
		}
		if exp.Tier != nil && out.Result.Tier != puzzle.Tier(*exp.Tier) {
			return fmt.Errorf("expected tier %s, got %s", *exp.Tier, out.Result.Tier)
		}
		if exp.Mismatches != nil && out.Result.Mismatches != *exp.Mismatches {
			return fmt.Errorf("expected %d mismatches, got %d", *exp.Mismatches, out.Result.Mismatches)
		}
		for _, text := range exp.MessageContains {
			if !strings.Contains(strings.ToLower(out.Result.Message), strings.ToLower(text)) {
				return fmt.Errorf("expected message to contain '%s', got '%s'", text, out.Result.Message)
			}
		}
	}

	for _, text := range exp.FollowUpContains {
		if !strings.Contains(strings.ToLower(out.FollowUp), strings.ToLower(text)) {
			return fmt.Errorf("expected follow-up to contain '%s', got '%s'", text, out.FollowUp)
		}
	}

	if exp.SessionGone != nil {
		_, err := GetPuzzle(ctx, r.Client, r.BaseURL, sessionID)
		var se *StatusError
		gone := errors.As(err, &se) && se.Status == http.StatusNotFound
		if err != nil && !gone {
			return err
		}
		if gone != *exp.SessionGone {
			return fmt.Errorf("expected session_gone to be %t, got %t", *exp.SessionGone, gone)
		}
	}

	return nil
}

func placements(v *services.SessionView) map[string]string {
	out := make(map[string]string)
	for _, s := range v.Sentences {
		for _, seg := range s.Segments {
			if seg.Type != puzzle.SegmentBlank {
				continue
			}
			out[seg.BlankID] = ""
			if seg.Token != nil {
				out[seg.BlankID] = seg.Token.ID
			}
		}
	}
	return out
}
