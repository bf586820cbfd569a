package token

import "fmt"

// Position is where a token starts in the statement text. Line and Column
// are 1-based and count bytes; Offset is the 0-based byte index used to map
// a node back to the caret.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}
