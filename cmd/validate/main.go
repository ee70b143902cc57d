package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <puzzle.yaml|puzzle.json> [...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &PuzzleValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}

	if failed {
		os.Exit(1)
	}
}

// PuzzleValidator runs the strict loader plus the naming lints the loader
// does not enforce.
type PuzzleValidator struct {
	errors []string
}

func (v *PuzzleValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	format, err := puzzle.FormatFromPath(filename)
	if err != nil {
		return err
	}

	baseName := filepath.Base(filename)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidPuzzleFilename(nameWithoutExt) {
		return fmt.Errorf("puzzle filename '%s' must be lowercase snake_case (e.g., my_puzzle.yaml, not my-puzzle.yaml or MyPuzzle.yaml)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	d, err := puzzle.ParseStrict(data, format)
	if err != nil {
		var verr *puzzle.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				v.addError(p)
			}
		} else {
			return fmt.Errorf("file %s failed strict unmarshaling: %w", filename, err)
		}
	} else {
		v.validatePuzzle(d)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *PuzzleValidator) validatePuzzle(d *puzzle.Definition) {
	v.validateIDFormat("puzzle ID", d.ID)

	for _, b := range d.Blanks() {
		v.validateIDFormat("blank ID", b.ID)
	}

	for _, tok := range d.Pool {
		v.validateIDFormat("token ID", tok.ID)
	}

	if d.VictoryPrompt == "" {
		v.addError("victory_prompt is empty; the default follow-up will be used")
	}
}

func (v *PuzzleValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError(fmt.Sprintf("%s is missing", fieldName))
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *PuzzleValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidPuzzleFilename(name string) bool {
	// Allow 'x.' prefix for experimental puzzles
	name = strings.TrimPrefix(name, "x.")
	return validIDRegex.MatchString(name)
}
