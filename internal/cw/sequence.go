// internal/cw/sequence.go
package cw

// Accumulator walks the decode tree as classified symbols arrive and
// resolves the accumulated sequence into a character on completion.
// The zero value is ready to use, positioned at the tree root.
type Accumulator struct {
	pos   int
	count int
}

// AddSymbol advances the tree position (dot = left, dash = right) and
// increments the element count. Symbols past the tree's maximum depth are
// dropped: real operators never exceed six elements per character, so
// overflow is capped rather than treated as an error. Noise is ignored.
func (a *Accumulator) AddSymbol(s Symbol) {
	var next int
	switch s {
	case Dot:
		next = a.pos*2 + 1
	case Dash:
		next = a.pos*2 + 2
	default:
		return
	}
	if next >= TreeSize {
		return
	}
	a.pos = next
	a.count++
}

// Complete resolves the current position against the decode tree and resets
// to the root. It returns false when no elements have accumulated (making
// repeated calls idempotent) and when the position has no assigned
// character; the reset happens regardless.
func (a *Accumulator) Complete() (rune, bool) {
	if a.count == 0 {
		return 0, false
	}
	ch, ok := Lookup(a.pos)
	a.pos = 0
	a.count = 0
	return ch, ok
}

// Len returns the number of elements accumulated since the last completion.
func (a *Accumulator) Len() int {
	return a.count
}
