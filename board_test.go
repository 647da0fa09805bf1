package main

import (
	"testing"
)

func TestCheckWinnerLines(t *testing.T) {
	for _, symbol := range []Symbol{SymbolX, SymbolO} {
		for _, line := range winLines {
			var board Board
			for _, i := range line {
				board[i] = symbol
			}

			got := checkWinner(board)
			if got != Outcome(symbol) {
				t.Errorf("line %v for %s: expected %q, got %q", line, symbol, symbol, got)
			}
		}
	}
}

func TestCheckWinnerInProgress(t *testing.T) {
	tests := []struct {
		name  string
		board Board
	}{
		{"empty board", Board{}},
		{"single move", Board{SymbolX}},
		{"no line yet", Board{
			SymbolX, SymbolO, Empty,
			Empty, SymbolX, Empty,
			Empty, Empty, SymbolO,
		}},
	}

	for _, test := range tests {
		if got := checkWinner(test.board); got != OutcomeNone {
			t.Errorf("%s: expected no outcome, got %q", test.name, got)
		}
	}
}

func TestCheckWinnerDraw(t *testing.T) {
	board := Board{
		SymbolX, SymbolO, SymbolX,
		SymbolX, SymbolO, SymbolO,
		SymbolO, SymbolX, SymbolX,
	}

	if got := checkWinner(board); got != OutcomeDraw {
		t.Errorf("expected draw, got %q", got)
	}
}

// hasLine is an independent reference check, walking rows, columns and
// diagonals by coordinates instead of the fixed triple table.
func hasLine(board Board, symbol Symbol) bool {
	for i := 0; i < 3; i++ {
		if board[3*i] == symbol && board[3*i+1] == symbol && board[3*i+2] == symbol {
			return true
		}
		if board[i] == symbol && board[i+3] == symbol && board[i+6] == symbol {
			return true
		}
	}
	if board[0] == symbol && board[4] == symbol && board[8] == symbol {
		return true
	}
	return board[2] == symbol && board[4] == symbol && board[6] == symbol
}

// TestCheckWinnerExhaustive sweeps every possible cell assignment (3^9
// boards, reachable or not) and checks the evaluator's contract against
// the coordinate-based reference.
func TestCheckWinnerExhaustive(t *testing.T) {
	symbols := [3]Symbol{Empty, SymbolX, SymbolO}

	for n := 0; n < 19683; n++ {
		var board Board
		filled := true
		for i, v := 0, n; i < 9; i, v = i+1, v/3 {
			board[i] = symbols[v%3]
			if board[i] == Empty {
				filled = false
			}
		}

		winsX := hasLine(board, SymbolX)
		winsO := hasLine(board, SymbolO)
		got := checkWinner(board)

		switch got {
		case OutcomeX:
			if !winsX {
				t.Fatalf("board %v: reported X without an X line", board)
			}
		case OutcomeO:
			if !winsO {
				t.Fatalf("board %v: reported O without an O line", board)
			}
		case OutcomeDraw:
			if winsX || winsO || !filled {
				t.Fatalf("board %v: reported draw incorrectly", board)
			}
		case OutcomeNone:
			if winsX || winsO || filled {
				t.Fatalf("board %v: reported in-progress incorrectly", board)
			}
		}

		if (winsX || winsO) && got != OutcomeX && got != OutcomeO {
			t.Fatalf("board %v: missed a winning line", board)
		}
	}
}

func TestSymbolOther(t *testing.T) {
	if SymbolX.other() != SymbolO || SymbolO.other() != SymbolX {
		t.Error("symbol complement is broken")
	}
}
