package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type MoveKind int

const (
	MovePlay MoveKind = iota
	MovePass
	MoveResign
)

// Move is a play at (X, Y), a pass or a resignation. X and Y are -1 for
// pass and resign so that two passes always compare equal.
type Move struct {
	Kind MoveKind
	X    int
	Y    int
}

func Play(x, y int) Move {
	return Move{Kind: MovePlay, X: x, Y: y}
}

func Pass() Move {
	return Move{Kind: MovePass, X: -1, Y: -1}
}

func Resign() Move {
	return Move{Kind: MoveResign, X: -1, Y: -1}
}

func (m Move) IsPlay() bool {
	return m.Kind == MovePlay
}

// IsValid reports whether m is a known kind and, for a play, lies on a board
// of boardSize.
func (m Move) IsValid(boardSize int) bool {
	if m.Kind != MovePlay {
		return m.Kind == MovePass || m.Kind == MoveResign
	}
	return m.X >= 0 && m.Y >= 0 && m.X < boardSize && m.Y < boardSize
}

func (m Move) String() string {
	switch m.Kind {
	case MovePass:
		return "pass"
	case MoveResign:
		return "resign"
	default:
		return fmt.Sprintf("(%d,%d)", m.X, m.Y)
	}
}

func (k MoveKind) String() string {
	switch k {
	case MovePass:
		return "pass"
	case MoveResign:
		return "resign"
	default:
		return "play"
	}
}

func parseMoveKind(raw string) (MoveKind, error) {
	switch raw {
	case "", "play":
		return MovePlay, nil
	case "pass":
		return MovePass, nil
	case "resign":
		return MoveResign, nil
	default:
		return MovePlay, errors.Errorf("unknown move kind %q", raw)
	}
}

type moveJSON struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (m Move) MarshalJSON() ([]byte, error) {
	return json.Marshal(moveJSON{Kind: m.Kind.String(), X: m.X, Y: m.Y})
}

func (m *Move) UnmarshalJSON(data []byte) error {
	var raw moveJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := parseMoveKind(raw.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case MovePass:
		*m = Pass()
	case MoveResign:
		*m = Resign()
	default:
		*m = Play(raw.X, raw.Y)
	}
	return nil
}
