package main

import "github.com/pkg/errors"

type PlayerColor int

const (
	PlayerBlack PlayerColor = iota
	PlayerWhite
)

func (p PlayerColor) String() string {
	if p == PlayerWhite {
		return "White"
	}
	return "Black"
}

func otherPlayer(player PlayerColor) PlayerColor {
	if player == PlayerBlack {
		return PlayerWhite
	}
	return PlayerBlack
}

// GameState is an immutable snapshot of a game. ApplyMove returns a new
// state and never touches the receiver, so states can be shared freely
// between goroutines.
//
// hashes always holds one more entry than moves: the genesis hash plus one
// per applied move, passes and resignations included.
type GameState struct {
	board        Board
	toMove       PlayerColor
	moves        []Move
	hashes       []uint64
	lastCaptures []Move
}

func NewGameState(boardSize int) GameState {
	board := NewBoard(boardSize)
	return GameState{
		board:  board,
		toMove: PlayerBlack,
		hashes: []uint64{board.Hash()},
	}
}

// GameStateFromBoard starts a game from an arbitrary position.
func GameStateFromBoard(board Board, toMove PlayerColor) GameState {
	board = board.Clone()
	return GameState{
		board:  board,
		toMove: toMove,
		hashes: []uint64{board.Hash()},
	}
}

// Board returns a copy of the position.
func (s GameState) Board() Board {
	return s.board.Clone()
}

func (s GameState) BoardSize() int {
	return s.board.Size()
}

func (s GameState) At(x, y int) Cell {
	return s.board.At(x, y)
}

func (s GameState) ToMove() PlayerColor {
	return s.toMove
}

func (s GameState) Moves() []Move {
	return append([]Move(nil), s.moves...)
}

func (s GameState) MoveCount() int {
	return len(s.moves)
}

func (s GameState) HashHistory() []uint64 {
	return append([]uint64(nil), s.hashes...)
}

func (s GameState) Hash() uint64 {
	return s.hashes[len(s.hashes)-1]
}

func (s GameState) LastMove() (Move, bool) {
	if len(s.moves) == 0 {
		return Move{}, false
	}
	return s.moves[len(s.moves)-1], true
}

// LastCaptures lists the stones removed by the most recent move.
func (s GameState) LastCaptures() []Move {
	return append([]Move(nil), s.lastCaptures...)
}

// koRule forbids recreating the position from before the opponent's last
// move. Only simple ko is enforced.
func (s GameState) koRule() KoRule {
	if len(s.hashes) < 2 {
		return NoKo
	}
	return KoForbidding(s.hashes[len(s.hashes)-2])
}

func (s GameState) IsLegal(move Move) (bool, string) {
	switch move.Kind {
	case MovePass, MoveResign:
		return true, ""
	case MovePlay:
		return NewRules().IsLegal(s.board, s.toMove, move.X, move.Y, s.koRule())
	default:
		return false, "unknown move"
	}
}

// LegalMoves lists every legal play in row-major order, then Pass and Resign.
func (s GameState) LegalMoves() []Move {
	moves := s.legalPlays()
	return append(moves, Pass(), Resign())
}

func (s GameState) legalPlays() []Move {
	rules := NewRules()
	ko := s.koRule()
	size := s.board.Size()
	moves := make([]Move, 0, s.board.CountEmpty()+2)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if s.board.At(x, y) != CellEmpty {
				continue
			}
			if ok, _ := rules.IsLegal(s.board, s.toMove, x, y, ko); ok {
				moves = append(moves, Play(x, y))
			}
		}
	}
	return moves
}

func (s GameState) IsTerminal() bool {
	n := len(s.moves)
	if n == 0 {
		return false
	}
	if s.moves[n-1].Kind == MoveResign {
		return true
	}
	return n >= 2 && s.moves[n-1].Kind == MovePass && s.moves[n-2].Kind == MovePass
}

// Resigned reports the player who resigned, if the game ended that way.
func (s GameState) Resigned() (PlayerColor, bool) {
	last, ok := s.LastMove()
	if !ok || last.Kind != MoveResign {
		return PlayerBlack, false
	}
	return otherPlayer(s.toMove), true
}

// ApplyMove returns the state after move. A move that LegalMoves would not
// list is rejected with ErrIllegalMove.
func (s GameState) ApplyMove(move Move) (GameState, error) {
	next := GameState{
		board:  s.board,
		toMove: otherPlayer(s.toMove),
		moves:  appendMove(s.moves, move),
	}
	switch move.Kind {
	case MovePass, MoveResign:
		next.hashes = appendHash(s.hashes, s.Hash())
		return next, nil
	case MovePlay:
	default:
		return GameState{}, errors.Wrapf(ErrIllegalMove, "unknown move kind %d", move.Kind)
	}
	board := s.board.Clone()
	captured, err := NewRules().PlayMove(&board, s.toMove, move.X, move.Y, s.koRule())
	if err != nil {
		return GameState{}, err
	}
	next.board = board
	next.lastCaptures = captured
	next.hashes = appendHash(s.hashes, board.Hash())
	return next, nil
}

// appendMove and appendHash always copy so that sibling states never share
// a backing array.
func appendMove(moves []Move, move Move) []Move {
	out := make([]Move, len(moves)+1)
	copy(out, moves)
	out[len(moves)] = move
	return out
}

func appendHash(hashes []uint64, hash uint64) []uint64 {
	out := make([]uint64, len(hashes)+1)
	copy(out, hashes)
	out[len(hashes)] = hash
	return out
}
