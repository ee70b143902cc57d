package board

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/murder-valley/pkg/puzzle"
)

// empty marks a blank with no token, or a token sitting in the pool.
const empty = -1

// Board is the mutable placement of tokens across the pool and the blanks.
//
// Tokens and blanks are addressed internally by their ordinal in the
// definition. placements has exactly one slot per blank, fixed at
// construction, and location mirrors it from the token side. The pool is
// kept sorted by token ordinal so its display order is stable and a token
// returned to the pool lands exactly where it started.
//
// A Board is not safe for concurrent use.
type Board struct {
	def        *puzzle.Definition
	blanks     []puzzle.Blank
	blankIndex map[string]int
	tokens     []puzzle.Token
	tokenIndex map[string]int

	placements []int // blank ordinal -> token ordinal or empty
	location   []int // token ordinal -> blank ordinal or empty (pool)
	pool       []int // token ordinals, ascending
}

// New builds a board with every token in the pool and every blank empty.
// The definition must already be validated.
func New(def *puzzle.Definition) *Board {
	b := &Board{
		def:        def,
		blanks:     def.Blanks(),
		blankIndex: make(map[string]int),
		tokens:     slices.Clone(def.Pool),
		tokenIndex: make(map[string]int),
	}

	b.placements = make([]int, len(b.blanks))
	for i, bl := range b.blanks {
		b.blankIndex[bl.ID] = i
		b.placements[i] = empty
	}

	b.location = make([]int, len(b.tokens))
	b.pool = make([]int, len(b.tokens))
	for i, tok := range b.tokens {
		b.tokenIndex[tok.ID] = i
		b.location[i] = empty
		b.pool[i] = i
	}

	b.mustHoldInvariant("new")
	return b
}

// Definition returns the puzzle this board was built from.
func (b *Board) Definition() *puzzle.Definition {
	return b.def
}

// Blanks returns the blanks in reading order.
func (b *Board) Blanks() []puzzle.Blank {
	return b.blanks
}

// Token looks up a token by id.
func (b *Board) Token(id string) (puzzle.Token, bool) {
	i, ok := b.tokenIndex[id]
	if !ok {
		return puzzle.Token{}, false
	}
	return b.tokens[i], true
}

// HasBlank reports whether id names a blank of this puzzle.
func (b *Board) HasBlank(id string) bool {
	_, ok := b.blankIndex[id]
	return ok
}

// Pool returns the unplaced tokens in stable display order.
func (b *Board) Pool() []puzzle.Token {
	out := make([]puzzle.Token, len(b.pool))
	for i, t := range b.pool {
		out[i] = b.tokens[t]
	}
	return out
}

// TokenIn returns the token occupying a blank. ok is false when the blank
// is empty or unknown.
func (b *Board) TokenIn(blankID string) (puzzle.Token, bool) {
	bi, known := b.blankIndex[blankID]
	if !known || b.placements[bi] == empty {
		return puzzle.Token{}, false
	}
	return b.tokens[b.placements[bi]], true
}

// Locate returns the blank holding a token, or "" when it is in the pool.
// ok is false for unknown tokens.
func (b *Board) Locate(tokenID string) (blankID string, ok bool) {
	ti, known := b.tokenIndex[tokenID]
	if !known {
		return "", false
	}
	if bi := b.location[ti]; bi != empty {
		return b.blanks[bi].ID, true
	}
	return "", true
}

// Placements maps every blank id to the id of its token, or "" when empty.
func (b *Board) Placements() map[string]string {
	out := make(map[string]string, len(b.blanks))
	for bi, bl := range b.blanks {
		if t := b.placements[bi]; t != empty {
			out[bl.ID] = b.tokens[t].ID
		} else {
			out[bl.ID] = ""
		}
	}
	return out
}

// Filled counts non-empty blanks.
func (b *Board) Filled() int {
	n := 0
	for _, t := range b.placements {
		if t != empty {
			n++
		}
	}
	return n
}

// Full reports whether every blank holds a token.
func (b *Board) Full() bool {
	return b.Filled() == len(b.blanks)
}

// Place moves a token into a blank. A different token already in the
// target is displaced to the pool; a source blank is left empty. Unknown
// ids and placing a token onto the blank it already occupies change
// nothing and report false.
func (b *Board) Place(tokenID, blankID string) bool {
	ti, ok := b.tokenIndex[tokenID]
	if !ok {
		return false
	}
	target, ok := b.blankIndex[blankID]
	if !ok {
		return false
	}
	source := b.location[ti]
	if source == target {
		return false
	}

	if displaced := b.placements[target]; displaced != empty {
		b.location[displaced] = empty
		b.poolInsert(displaced)
	}

	if source == empty {
		b.poolRemove(ti)
	} else {
		b.placements[source] = empty
	}

	b.placements[target] = ti
	b.location[ti] = target

	b.mustHoldInvariant("place")
	return true
}

// Return moves a placed token back to the pool. A token already in the pool
// or an unknown id changes nothing and reports false.
func (b *Board) Return(tokenID string) bool {
	ti, ok := b.tokenIndex[tokenID]
	if !ok {
		return false
	}
	source := b.location[ti]
	if source == empty {
		return false
	}

	b.placements[source] = empty
	b.location[ti] = empty
	b.poolInsert(ti)

	b.mustHoldInvariant("return")
	return true
}

// Mismatches counts blanks that are empty or hold a token whose value
// differs from the expected value. Token identity is irrelevant: any token
// with the right value is correct.
func (b *Board) Mismatches() int {
	n := 0
	for bi, bl := range b.blanks {
		t := b.placements[bi]
		if t == empty || b.tokens[t].Value != bl.Expected {
			n++
		}
	}
	return n
}

func (b *Board) poolInsert(ti int) {
	i, found := slices.BinarySearch(b.pool, ti)
	if found {
		panic(&InvariantError{Op: "pool insert", Detail: fmt.Sprintf("token %q already in pool", b.tokens[ti].ID)})
	}
	b.pool = slices.Insert(b.pool, i, ti)
}

func (b *Board) poolRemove(ti int) {
	i, found := slices.BinarySearch(b.pool, ti)
	if !found {
		panic(&InvariantError{Op: "pool remove", Detail: fmt.Sprintf("token %q not in pool", b.tokens[ti].ID)})
	}
	b.pool = slices.Delete(b.pool, i, i+1)
}
