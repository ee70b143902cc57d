package board

import "fmt"

// InvariantError reports a token that was lost or duplicated. It is raised
// with panic: reaching it means the placement code itself is broken, not
// that a caller sent a bad gesture.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("board invariant violated after %s: %s", e.Op, e.Detail)
}

// checkInvariant verifies that every token sits in exactly one place and
// that placements, location and pool agree with each other.
func (b *Board) checkInvariant() error {
	if len(b.placements) != len(b.blanks) {
		return fmt.Errorf("%d placement slots for %d blanks", len(b.placements), len(b.blanks))
	}

	seen := make([]int, len(b.tokens))

	for i, t := range b.pool {
		if t < 0 || t >= len(b.tokens) {
			return fmt.Errorf("pool holds unknown token ordinal %d", t)
		}
		if i > 0 && b.pool[i-1] >= t {
			return fmt.Errorf("pool out of order at %d", i)
		}
		if b.location[t] != empty {
			return fmt.Errorf("token %q is in the pool but located at blank %d", b.tokens[t].ID, b.location[t])
		}
		seen[t]++
	}

	for bi, t := range b.placements {
		if t == empty {
			continue
		}
		if t < 0 || t >= len(b.tokens) {
			return fmt.Errorf("blank %q holds unknown token ordinal %d", b.blanks[bi].ID, t)
		}
		if b.location[t] != bi {
			return fmt.Errorf("token %q is in blank %q but located at %d", b.tokens[t].ID, b.blanks[bi].ID, b.location[t])
		}
		seen[t]++
	}

	for t, n := range seen {
		switch {
		case n == 0:
			return fmt.Errorf("token %q is lost", b.tokens[t].ID)
		case n > 1:
			return fmt.Errorf("token %q appears %d times", b.tokens[t].ID, n)
		}
	}
	return nil
}

func (b *Board) mustHoldInvariant(op string) {
	if err := b.checkInvariant(); err != nil {
		panic(&InvariantError{Op: op, Detail: err.Error()})
	}
}
