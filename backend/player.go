package main

// IPlayer is implemented by HumanPlayer and AIPlayer. ChooseMove reports
// false when the player has no move yet.
type IPlayer interface {
	IsHuman() bool
	ChooseMove(state GameState) (Move, bool)
}
