// internal/cw/tree.go
// Package cw implements decoding of telegraph-key pulse reports into text.
package cw

// Tree addressing: root at index 0, dot = left child 2i+1, dash = right
// child 2i+2. A dot/dash path therefore maps to exactly one index.
const (
	// MaxElements is the longest code the tree can hold (6 elements)
	MaxElements = 6
	// TreeSize is the number of addressable positions for MaxElements depth
	TreeSize = 1<<(MaxElements+1) - 1
)

// decodeTree is the binary lookup tree for the international Morse alphabet,
// digits, common punctuation and the AA digraph (mapped to a line break).
// Zero entries are undefined codes.
var decodeTree = [TreeSize]rune{
	1:   'E',  // .
	2:   'T',  // -
	3:   'I',  // ..
	4:   'A',  // .-
	5:   'N',  // -.
	6:   'M',  // --
	7:   'S',  // ...
	8:   'U',  // ..-
	9:   'R',  // .-.
	10:  'W',  // .--
	11:  'D',  // -..
	12:  'K',  // -.-
	13:  'G',  // --.
	14:  'O',  // ---
	15:  'H',  // ....
	16:  'V',  // ...-
	17:  'F',  // ..-.
	19:  'L',  // .-..
	20:  '\n', // .-.- (AA digraph, line break)
	21:  'P',  // .--.
	22:  'J',  // .---
	23:  'B',  // -...
	24:  'X',  // -..-
	25:  'C',  // -.-.
	26:  'Y',  // -.--
	27:  'Z',  // --..
	28:  'Q',  // --.-
	31:  '5',  // .....
	32:  '4',  // ....-
	34:  '3',  // ...--
	38:  '2',  // ..---
	41:  '+',  // .-.-.
	46:  '1',  // .----
	47:  '6',  // -....
	48:  '=',  // -...-
	49:  '/',  // -..-.
	53:  '(',  // -.--.
	55:  '7',  // --...
	59:  '8',  // ---..
	61:  '9',  // ----.
	62:  '0',  // -----
	75:  '?',  // ..--..
	81:  '"',  // .-..-.
	84:  '.',  // .-.-.-
	89:  '@',  // .--.-.
	93:  '\'', // .----.
	96:  '-',  // -....-
	108: ')',  // -.--.-
	114: ',',  // --..--
	119: ':',  // ---...
}

// Lookup resolves a tree position to its assigned character.
// It returns false for the root, for positions past the populated depth
// and for positions whose code has no assigned character.
func Lookup(pos int) (rune, bool) {
	if pos <= 0 || pos >= TreeSize {
		return 0, false
	}
	ch := decodeTree[pos]
	if ch == 0 {
		return 0, false
	}
	return ch, true
}
