package puzzle

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid puzzle definition:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Validate checks the configuration-time invariants: blank and token ids are
// unique, every segment is well formed, and the pool holds enough tokens of
// each expected value to fill every blank correctly.
func (d *Definition) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(d.Sentences) == 0 {
		addf("puzzle has no sentences")
	}

	blankIDs := make(map[string]bool)
	needed := make(map[string]int)
	for i, s := range d.Sentences {
		if len(s.Segments) == 0 {
			addf("sentence %d has no segments", i)
		}
		for j, seg := range s.Segments {
			switch seg.Kind {
			case SegmentText:
				if seg.BlankID != "" || seg.Expected != "" {
					addf("sentence %d segment %d: text segment cannot carry blank_id or expected", i, j)
				}
			case SegmentBlank:
				if seg.BlankID == "" {
					addf("sentence %d segment %d: blank is missing blank_id", i, j)
					continue
				}
				if blankIDs[seg.BlankID] {
					addf("duplicate blank id %q", seg.BlankID)
				}
				blankIDs[seg.BlankID] = true
				if seg.Expected == "" {
					addf("blank %q has no expected value", seg.BlankID)
					continue
				}
				needed[seg.Expected]++
			default:
				addf("sentence %d segment %d: unknown segment type %q", i, j, seg.Kind)
			}
		}
	}
	if len(blankIDs) == 0 && len(d.Sentences) > 0 {
		addf("puzzle has no blanks")
	}

	tokenIDs := make(map[string]bool)
	have := make(map[string]int)
	for i, tok := range d.Pool {
		if tok.ID == "" {
			addf("pool token %d has no id", i)
		} else if tokenIDs[tok.ID] {
			addf("duplicate token id %q", tok.ID)
		}
		tokenIDs[tok.ID] = true
		if tok.Value == "" {
			addf("pool token %q has no value", tok.ID)
		}
		have[tok.Value]++
	}

	values := make([]string, 0, len(needed))
	for v := range needed {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		if have[v] < needed[v] {
			addf("pool has %d token(s) with value %q but %d blank(s) expect it", have[v], v, needed[v])
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
