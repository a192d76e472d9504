package model

// BoardSize is the dimension of the letter grid
const BoardSize = 4

// Board is the letter grid shared by both players of a room.
// Letters are strings so multi-byte Turkish letters survive serialization.
type Board [BoardSize][BoardSize]string

// Letters returns the cells in row-major order
func (b Board) Letters() []string {
	out := make([]string, 0, BoardSize*BoardSize)
	for _, row := range b {
		out = append(out, row[:]...)
	}
	return out
}
