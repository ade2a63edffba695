// Package vecid defines the vector identifier used across the store and
// both ANN indices.
package vecid

import "fmt"

// ID is a non-negative index into a vector store. The zero value is
// Invalid; ID biases the stored representation by +1 internally so
// node fields that embed an ID default to "no id" without a separate
// boolean flag. Callers only ever see the unbiased value through Int
// and String.
type ID uint32

// Invalid is the sentinel ID denoting "no vector".
const Invalid ID = 0

// Of builds the ID for vector store index i (i is the unbiased index).
func Of(i int) ID {
	if i < 0 {
		return Invalid
	}
	return ID(i + 1)
}

// Valid reports whether id refers to an actual vector.
func (id ID) Valid() bool {
	return id != Invalid
}

// Int returns the unbiased vector store index. Panics if id is Invalid.
func (id ID) Int() int {
	if id == Invalid {
		panic("vecid: Int called on Invalid ID")
	}
	return int(id) - 1
}

func (id ID) String() string {
	if !id.Valid() {
		return "V<invalid>"
	}
	return fmt.Sprintf("V%d", id.Int())
}
