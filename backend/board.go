package main

import (
	"strings"

	"github.com/pkg/errors"
)

type Cell int

const (
	CellEmpty Cell = iota
	CellBlack
	CellWhite
)

// Board is a square grid of cells. Boards returned by Clone never share
// storage with the original.
type Board struct {
	size  int
	cells []Cell
}

var neighborOffsets = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

func NewBoard(boardSize int) Board {
	b := Board{}
	b.Reset(boardSize)
	return b
}

func (b *Board) Reset(boardSize int) {
	b.size = boardSize
	b.cells = make([]Cell, boardSize*boardSize)
}

func (b Board) At(x, y int) Cell {
	return b.cells[b.index(x, y)]
}

func (b *Board) Set(x, y int, value Cell) {
	b.cells[b.index(x, y)] = value
}

func (b *Board) Remove(x, y int) {
	b.cells[b.index(x, y)] = CellEmpty
}

func (b Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

// Neighbors returns the in-bounds orthogonal neighbours of (x, y).
func (b Board) Neighbors(x, y int) []Move {
	return b.appendNeighbors(make([]Move, 0, 4), x, y)
}

func (b Board) appendNeighbors(dst []Move, x, y int) []Move {
	for _, off := range neighborOffsets {
		nx, ny := x+off[0], y+off[1]
		if b.InBounds(nx, ny) {
			dst = append(dst, Play(nx, ny))
		}
	}
	return dst
}

func (b Board) CountEmpty() int {
	return b.Count(CellEmpty)
}

func (b Board) Count(cell Cell) int {
	count := 0
	for _, c := range b.cells {
		if c == cell {
			count++
		}
	}
	return count
}

func (b Board) Size() int {
	return b.size
}

func (b Board) Clone() Board {
	clone := Board{size: b.size}
	clone.cells = make([]Cell, len(b.cells))
	copy(clone.cells, b.cells)
	return clone
}

// Hash is the Zobrist hash of the stones on the board. Equal contents give
// equal hashes regardless of how the position was reached.
func (b Board) Hash() uint64 {
	z := GetZobrist(b.size)
	var hash uint64
	for i, cell := range b.cells {
		if cell != CellEmpty {
			hash ^= z.cellKey(i, cell)
		}
	}
	return hash
}

// String renders the board with '@' for black, 'O' for white and '.' for
// empty points, one row per line.
func (b Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			sb.WriteByte(b.At(x, y).symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (b Board) index(x, y int) int {
	return y*b.size + x
}

func (c Cell) String() string {
	switch c {
	case CellBlack:
		return "Black"
	case CellWhite:
		return "White"
	default:
		return "Empty"
	}
}

func (c Cell) symbol() byte {
	switch c {
	case CellBlack:
		return '@'
	case CellWhite:
		return 'O'
	default:
		return '.'
	}
}

func (c Cell) Opponent() Cell {
	switch c {
	case CellBlack:
		return CellWhite
	case CellWhite:
		return CellBlack
	default:
		return CellEmpty
	}
}

func CellFromPlayer(player PlayerColor) Cell {
	if player == PlayerBlack {
		return CellBlack
	}
	return CellWhite
}

// ParseBoard builds a board from rows of '@', 'O' and '.' characters.
// Whitespace around rows is ignored.
func ParseBoard(diagram string) (Board, error) {
	var rows []string
	for _, line := range strings.Split(diagram, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			rows = append(rows, line)
		}
	}
	size := len(rows)
	board := NewBoard(size)
	for y, row := range rows {
		if len(row) != size {
			return Board{}, errors.Errorf("row %d has %d columns, want %d", y, len(row), size)
		}
		for x := 0; x < size; x++ {
			switch row[x] {
			case '@':
				board.Set(x, y, CellBlack)
			case 'O':
				board.Set(x, y, CellWhite)
			case '.':
			default:
				return Board{}, errors.Errorf("unexpected %q at (%d,%d)", row[x], x, y)
			}
		}
	}
	return board, nil
}
