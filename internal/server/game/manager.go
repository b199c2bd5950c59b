package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"gozero/internal/board"
	"gozero/internal/eval"
	"gozero/internal/mcts"
)

// ErrNotFound is returned by Get/Play for an unknown game id.
var ErrNotFound = errors.New("game: not found")

// Manager is a uuid-keyed in-memory registry of active games, one
// mcts.Controller each, safe for concurrent HTTP handlers.
type Manager struct {
	mu    sync.RWMutex
	games map[string]*GameState

	ev     eval.Evaluator
	params mcts.Params
}

// NewManager creates a Manager whose games all share one evaluator (a
// single batching ONNX session amortizes best across concurrent games) and
// search parameters.
func NewManager(ev eval.Evaluator, params mcts.Params) *Manager {
	return &Manager{games: make(map[string]*GameState), ev: ev, params: params}
}

// NewGame starts a fresh game on an empty board of the given size.
func (m *Manager) NewGame(boardSize int) *GameState {
	pos := board.New(boardSize)
	g := &GameState{
		ID:         uuid.NewString(),
		Pos:        pos,
		Controller: mcts.NewController(pos, m.ev, m.params),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.mu.Lock()
	m.games[g.ID] = g
	m.mu.Unlock()
	return g
}

func (m *Manager) Get(id string) (*GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// Play applies move to the named game, advancing both its plain position
// and its search tree, and returns the resulting state.
func (m *Manager) Play(id string, move board.Point) (*GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, ok := g.Controller.AdvanceRoot(move)
	if !ok {
		return nil, board.ErrIllegalMove
	}
	g.Pos = next
	g.UpdatedAt = time.Now()
	return g, nil
}
