// Package httpserver exposes the session game.Manager over a small JSON API:
// start a game, play a human move, ask the engine to move, and poll state.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gozero/internal/board"
	"gozero/internal/mcts"
	"gozero/internal/server/game"
	"gozero/internal/timecontrol"
)

// Handler implements http.Handler for the /api/* routes, backed by a
// game.Manager.
type Handler struct {
	manager *game.Manager
}

func NewHandler(manager *game.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/new_game":
		h.handleNewGame(w, r)
	case "/api/play":
		h.handlePlay(w, r)
	case "/api/state":
		h.handleState(w, r)
	case "/api/ai_move":
		h.handleAIMove(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	size := req.BoardSize
	if size <= 0 {
		size = 9
	}

	g := h.manager.NewGame(size)
	writeJSON(w, NewGameResponse{
		GameID:     g.ID,
		Position:   g.Pos.Encode(),
		ToMove:     g.Pos.ToMove().String(),
		LegalMoves: movesToStrings(g.Pos.LegalMoves()),
	})
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	mv, err := parsePoint(req.Move)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := h.manager.Play(req.GameID, mv)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, PlayResponse{
		Position:   g.Pos.Encode(),
		ToMove:     g.Pos.ToMove().String(),
		LegalMoves: movesToStrings(g.Pos.LegalMoves()),
		Status:     gameStatus(g.Pos),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	g, err := h.manager.Get(req.GameID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, StateResponse{
		Position:   g.Pos.Encode(),
		ToMove:     g.Pos.ToMove().String(),
		LegalMoves: movesToStrings(g.Pos.LegalMoves()),
		Status:     gameStatus(g.Pos),
	})
}

func (h *Handler) handleAIMove(w http.ResponseWriter, r *http.Request) {
	var req AIMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	g, err := h.manager.Get(req.GameID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	budget := 2 * time.Second
	if req.TimeMs > 0 {
		budget = time.Duration(req.TimeMs) * time.Millisecond
	}
	tc := timecontrol.NewSimpleTimeControl(budget, 0, false)

	ctx, cancel := context.WithTimeout(r.Context(), budget+500*time.Millisecond)
	defer cancel()

	mv, resign, err := g.Controller.Think(ctx, tc, req.MovesLeft, mcts.NORMAL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := AIMoveResponse{Move: mv.String(), Resigned: resign}
	if !resign {
		if updated, err := h.manager.Play(req.GameID, mv); err == nil {
			g = updated
		}
	}
	root, _ := g.Controller.Tree.Root()
	resp.Visits = root.Visits()
	resp.WinRate = 1 - root.Value()
	resp.Position = g.Pos.Encode()
	resp.ToMove = g.Pos.ToMove().String()
	resp.LegalMoves = movesToStrings(g.Pos.LegalMoves())
	resp.Status = gameStatus(g.Pos)

	writeJSON(w, resp)
}

func parsePoint(s string) (board.Point, error) {
	switch s {
	case "pass":
		return board.Pass, nil
	case "resign":
		return board.Resign, nil
	default:
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, err
		}
		return board.Point(v), nil
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func writeGameError(w http.ResponseWriter, err error) {
	switch err {
	case game.ErrNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case board.ErrIllegalMove, board.ErrSuperko:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
