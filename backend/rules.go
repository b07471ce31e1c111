package main

import "github.com/pkg/errors"

// ErrIllegalMove is returned when a caller applies a move that did not come
// from the legal move list.
var ErrIllegalMove = errors.New("illegal move")

const (
	ReasonOutOfBounds = "out of bounds"
	ReasonOccupied    = "occupied"
	ReasonSuicide     = "suicide"
	ReasonKo          = "ko"
)

// KoRule carries the board hash a move must not recreate. The zero value
// disables the check.
type KoRule struct {
	Forbidden uint64
	Active    bool
}

var NoKo = KoRule{}

func KoForbidding(hash uint64) KoRule {
	return KoRule{Forbidden: hash, Active: true}
}

// Group is a maximal set of orthogonally connected stones of one colour.
type Group struct {
	Color     Cell
	Stones    []Move
	Liberties int
}

func (g Group) InAtari() bool {
	return g.Liberties == 1
}

// Rules holds no state; every method is a pure function of its arguments
// except PlayMove, which mutates the board it is given.
type Rules struct{}

func NewRules() Rules {
	return Rules{}
}

func (r Rules) IsLegal(board Board, player PlayerColor, x, y int, ko KoRule) (bool, string) {
	_, _, reason := r.simulate(board, player, x, y, ko)
	return reason == "", reason
}

// PlayMove plays a legal move on board in place and returns the captured
// coordinates.
func (r Rules) PlayMove(board *Board, player PlayerColor, x, y int, ko KoRule) ([]Move, error) {
	if ok, reason := r.IsLegal(*board, player, x, y, ko); !ok {
		return nil, errors.Wrapf(ErrIllegalMove, "%s at %s: %s", CellFromPlayer(player), Play(x, y), reason)
	}
	return r.place(board, player, x, y), nil
}

// simulate plays the move on a copy. A non-empty reason means the move is
// illegal and the other results are unset.
func (r Rules) simulate(board Board, player PlayerColor, x, y int, ko KoRule) (Board, []Move, string) {
	if !board.InBounds(x, y) {
		return Board{}, nil, ReasonOutOfBounds
	}
	if board.At(x, y) != CellEmpty {
		return Board{}, nil, ReasonOccupied
	}
	next := board.Clone()
	captured := r.place(&next, player, x, y)
	if len(captured) == 0 && FindGroup(next, x, y).Liberties == 0 {
		return Board{}, nil, ReasonSuicide
	}
	if ko.Active && next.Hash() == ko.Forbidden {
		return Board{}, nil, ReasonKo
	}
	return next, captured, ""
}

// place sets the stone and removes every adjacent opponent group left
// without liberties. Captures happen before any suicide test.
func (r Rules) place(board *Board, player PlayerColor, x, y int) []Move {
	cell := CellFromPlayer(player)
	opponent := cell.Opponent()
	board.Set(x, y, cell)
	var captured []Move
	var neighbors [4]Move
	for _, n := range board.appendNeighbors(neighbors[:0], x, y) {
		if board.At(n.X, n.Y) != opponent {
			continue
		}
		group := FindGroup(*board, n.X, n.Y)
		if group.Liberties > 0 {
			continue
		}
		for _, stone := range group.Stones {
			board.Remove(stone.X, stone.Y)
		}
		captured = append(captured, group.Stones...)
	}
	return captured
}

// FindGroup flood-fills the group containing (x, y). An empty point yields
// a group with no stones.
func FindGroup(board Board, x, y int) Group {
	scanner := newGroupScanner(board)
	return scanner.scan(x, y)
}

// AllGroups lists every group on the board, scanning row by row.
func AllGroups(board Board) []Group {
	scanner := newGroupScanner(board)
	size := board.Size()
	var groups []Group
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			idx := board.index(x, y)
			if scanner.seen[idx] || board.cells[idx] == CellEmpty {
				continue
			}
			groups = append(groups, scanner.scan(x, y))
		}
	}
	return groups
}

// groupScanner reuses its marks across scans of one board. Stones stay
// marked so each group is found once; liberty marks are cleared per scan.
type groupScanner struct {
	board       Board
	seen        []bool
	libertySeen []bool
	touched     []int
	stack       []Move
}

func newGroupScanner(board Board) *groupScanner {
	n := board.Size() * board.Size()
	return &groupScanner{
		board:       board,
		seen:        make([]bool, n),
		libertySeen: make([]bool, n),
	}
}

func (g *groupScanner) scan(x, y int) Group {
	board := g.board
	color := board.At(x, y)
	group := Group{Color: color}
	if color == CellEmpty {
		return group
	}
	g.stack = append(g.stack[:0], Play(x, y))
	g.seen[board.index(x, y)] = true
	var neighbors [4]Move
	for len(g.stack) > 0 {
		stone := g.stack[len(g.stack)-1]
		g.stack = g.stack[:len(g.stack)-1]
		group.Stones = append(group.Stones, stone)
		for _, n := range board.appendNeighbors(neighbors[:0], stone.X, stone.Y) {
			idx := board.index(n.X, n.Y)
			switch board.cells[idx] {
			case CellEmpty:
				if !g.libertySeen[idx] {
					g.libertySeen[idx] = true
					g.touched = append(g.touched, idx)
					group.Liberties++
				}
			case color:
				if !g.seen[idx] {
					g.seen[idx] = true
					g.stack = append(g.stack, n)
				}
			}
		}
	}
	for _, idx := range g.touched {
		g.libertySeen[idx] = false
	}
	g.touched = g.touched[:0]
	return group
}

// countGroupsInAtari counts groups of color with exactly one liberty.
func countGroupsInAtari(board Board, color Cell) int {
	count := 0
	for _, group := range AllGroups(board) {
		if group.Color == color && group.InAtari() {
			count++
		}
	}
	return count
}
