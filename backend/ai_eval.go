package main

// resignScore dominates any material evaluation so that resigning is only
// chosen when nothing else is available.
const resignScore = 1_000_000.0

// EvalTerms are the raw evaluation components, all from Black's point of
// view.
type EvalTerms struct {
	BlackStones    int
	WhiteStones    int
	BlackLiberties int
	WhiteLiberties int
	BlackInAtari   int
	WhiteInAtari   int
}

// Evaluator scores positions statically. It is safe for concurrent use.
type Evaluator struct {
	weights HeuristicConfig
}

func NewEvaluator(weights HeuristicConfig) Evaluator {
	return Evaluator{weights: weights}
}

func (e Evaluator) Weights() HeuristicConfig {
	return e.weights
}

// Score evaluates state for forPlayer; higher is better for forPlayer.
// Positions are scored with the weighted stone, liberty and atari terms of
// EvaluateBoard. A state ended by resignation is the exception: it scores
// -resignScore for the resigner and +resignScore for the opponent instead of
// the board terms.
func (e Evaluator) Score(state GameState, forPlayer PlayerColor) float64 {
	if resigned, ok := state.Resigned(); ok {
		if resigned == forPlayer {
			return -resignScore
		}
		return resignScore
	}
	return EvaluateBoard(state.board, forPlayer, e.weights)
}

func EvaluateBoard(board Board, forPlayer PlayerColor, weights HeuristicConfig) float64 {
	terms := CollectEvalTerms(board)
	stones := float64(terms.BlackStones - terms.WhiteStones)
	liberties := float64(terms.BlackLiberties - terms.WhiteLiberties)
	// Stones Black threatens (White in atari) minus stones White threatens.
	threats := float64(terms.WhiteInAtari - terms.BlackInAtari)
	score := weights.Stones*stones + weights.Liberties*liberties + weights.Atari*threats
	if forPlayer == PlayerWhite {
		return -score
	}
	return score
}

// CollectEvalTerms walks every group once. Liberties are summed per group,
// each group counting a shared empty point once.
func CollectEvalTerms(board Board) EvalTerms {
	var terms EvalTerms
	for _, group := range AllGroups(board) {
		stones := len(group.Stones)
		if group.Color == CellBlack {
			terms.BlackStones += stones
			terms.BlackLiberties += group.Liberties
			if group.InAtari() {
				terms.BlackInAtari += stones
			}
			continue
		}
		terms.WhiteStones += stones
		terms.WhiteLiberties += group.Liberties
		if group.InAtari() {
			terms.WhiteInAtari += stones
		}
	}
	return terms
}
