package puzzle

import "fmt"

// Tier is the feedback class selected from a mismatch count.
type Tier string

const (
	TierVictory Tier = "victory"
	TierWarning Tier = "warning" // few errors
	TierFailure Tier = "failure" // too many errors
)

// DefaultWarningMax is the largest mismatch count still classed as a warning.
const DefaultWarningMax = 2

// Thresholds tunes the tier boundaries. Zero mismatches is always victory;
// 1..WarningMax is a warning; anything above is a failure.
type Thresholds struct {
	WarningMax int `json:"warning_max"`
}

// DefaultThresholds matches the shipped puzzle.
var DefaultThresholds = Thresholds{WarningMax: DefaultWarningMax}

// DefaultFeedback is used for any tier a definition leaves unset.
var DefaultFeedback = Feedback{
	Victory: "Case closed! You found the murderer.",
	Warning: "Almost there, a few details don't add up.",
	Failure: "Too many errors. Go back and question the suspects.",
}

// Validate rejects thresholds that would make the warning tier unreachable
// in a confusing way.
func (t Thresholds) Validate() error {
	if t.WarningMax < 0 {
		return fmt.Errorf("warning max must be >= 0, got %d", t.WarningMax)
	}
	return nil
}

// Classify selects exactly one tier for a mismatch count.
func (t Thresholds) Classify(mismatches int) Tier {
	switch {
	case mismatches <= 0:
		return TierVictory
	case mismatches <= t.WarningMax:
		return TierWarning
	default:
		return TierFailure
	}
}
