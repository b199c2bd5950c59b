// Package game holds the in-memory session state for the HTTP front end:
// one GameState per active game, keyed by a uuid the client carries on
// every subsequent request.
package game

import (
	"time"

	"gozero/internal/board"
	"gozero/internal/mcts"
)

// GameState is one game's board and search state.
type GameState struct {
	ID         string
	Pos        *board.Position
	Controller *mcts.Controller
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
