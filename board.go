package main

// Symbol marks one side of the match. The zero value marks an empty cell.
type Symbol string

const (
	Empty   Symbol = ""
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
)

func (s Symbol) other() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// Outcome is the terminal result of a match, or OutcomeNone while playing.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeX    Outcome = "X"
	OutcomeO    Outcome = "O"
	OutcomeDraw Outcome = "DRAW"
)

// Board is a 3x3 grid in row-major order.
type Board [9]Symbol

// winLines are the eight triples that decide a match: three rows, three
// columns and both diagonals, checked in this order.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// checkWinner reports the outcome of a board: the symbol holding a full
// line, OutcomeDraw if the board is full without one, OutcomeNone otherwise.
func checkWinner(board Board) Outcome {
	for _, line := range winLines {
		a := board[line[0]]
		if a != Empty && a == board[line[1]] && a == board[line[2]] {
			return Outcome(a)
		}
	}

	for _, cell := range board {
		if cell == Empty {
			return OutcomeNone
		}
	}

	return OutcomeDraw
}
