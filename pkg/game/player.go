package game

// Outcome is what a player learns when the game ends.
type Outcome int

const (
	Won Outcome = iota
	Lost
	Tied
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Tied:
		return "tied"
	default:
		return "unknown"
	}
}

// Invert returns the opponent's view of the same result.
func (o Outcome) Invert() Outcome {
	switch o {
	case Won:
		return Lost
	case Lost:
		return Won
	default:
		return o
	}
}

// Mover is the path into the engine. (ForfeitRow, ForfeitCol) skips the turn.
type Mover interface {
	MakeMove(color Color, row, col int) error
}

// Player drives one side of a game. The engine never inspects which variant
// it holds. Implementations may call back into the Mover from StartTurn.
type Player interface {
	// Bind assigns the player's color and the mover it submits moves to.
	Bind(color Color, mover Mover)
	// StartTurn asks the player for a move.
	StartTurn()
	// UpdateBoardView reports a stone placed by the opponent.
	UpdateBoardView(color Color, row, col int)
	// EndGame is the terminal notification.
	EndGame(outcome Outcome)
}
