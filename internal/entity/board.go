package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

// Mark is one of the two symbols placed on the board. The zero value is an empty cell.
type Mark string

const (
	MarkNone Mark = ""
	MarkX    Mark = "X"
	MarkO    Mark = "O"

	// StartingMark moves first in every round.
	StartingMark = MarkX

	BoardSize = 9
)

// Marks lists the marks in assignment order.
var Marks = [2]Mark{MarkX, MarkO}

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Opponent returns the other mark.
func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}
	return MarkX
}

// MarshalJSON encodes an empty mark as null so clients can test cells for truthiness.
func (that Mark) MarshalJSON() ([]byte, error) {
	if that == MarkNone {
		return []byte("null"), nil
	}
	return []byte(`"` + string(that) + `"`), nil
}

// Board is a 3x3 grid in row-major order.
type Board [BoardSize]Mark

// IsFull reports whether every cell holds a mark.
func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == MarkNone {
			return false
		}
	}
	return true
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeWin
	OutcomeDraw
)

// Outcome is the result of inspecting a board. Winner is set only for OutcomeWin.
type Outcome struct {
	Kind   OutcomeKind
	Winner Mark
}

// ApplyMove returns a copy of board with mark written at index.
// Turn order is not checked here.
func ApplyMove(board Board, index int, mark Mark) (Board, error) {
	if index < 0 || index >= BoardSize {
		return board, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if board[index] != MarkNone {
		return board, fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	board[index] = mark

	return board, nil
}

// DetectOutcome checks the eight lines for a winner, then the grid for a draw.
func DetectOutcome(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != MarkNone && a == b && b == c {
			return Outcome{Kind: OutcomeWin, Winner: a}
		}
	}

	// the round continues until all the cells are full
	if board.IsFull() {
		return Outcome{Kind: OutcomeDraw}
	}

	return Outcome{Kind: OutcomeNone}
}
