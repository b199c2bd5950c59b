package mcts

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"gozero/internal/board"
	"gozero/internal/eval"
	"gozero/internal/timecontrol"
)

// PassFlag narrows a think() call's pass/resign behavior, mirroring a GTP
// front end's genmove variants: a plain genmove allows either override,
// while kgs-genmove_cleanup-style or "don't resign this game" requests need
// the overrides suppressed individually.
type PassFlag int

const (
	NORMAL   PassFlag = iota // both pass and resign overrides apply normally
	NOPASS                   // never return Pass, even if it is the most-visited root move
	NORESIGN                 // never resign, regardless of win rate
)

// Controller drives search for one side of a game: it owns the Tree, the
// evaluator, and the knobs to stop a search and pick a move from it.
type Controller struct {
	Tree   *Tree
	Eval   eval.Evaluator
	Params Params

	// Handicap, when non-zero, blends the resign threshold toward "never
	// resign" the way a teaching/handicap game should, since an early raw
	// win-rate read is least trustworthy exactly when the game was started
	// unbalanced on purpose.
	Handicap int

	// MoveNum counts plies played through this controller via AdvanceRoot,
	// gating shouldResign: resigning on move 1 off a single raw win-rate
	// read is not a sane heuristic no matter how low it reads.
	MoveNum int

	// AnalysisWriter, if set and Params.AnalyzeInterval > 0, receives one
	// formatted analysis line (see analysis.go) every AnalyzeInterval while
	// Think runs, the way a GTP engine streams "info ..." lines during
	// search. Left nil, analysis output is simply not produced.
	AnalysisWriter io.Writer
}

// NewController creates a controller searching from pos.
func NewController(pos *board.Position, ev eval.Evaluator, p Params) *Controller {
	return &Controller{Tree: NewTree(pos), Eval: ev, Params: p}
}

// stopper closes its channel at most once, so a time-budget timer, a
// canceled context, and an early have_alternate_moves exit can all try to
// stop the search without racing each other on a double close.
type stopper struct {
	ch   chan struct{}
	once sync.Once
}

func newStopper() *stopper { return &stopper{ch: make(chan struct{})} }

func (s *stopper) stop() { s.once.Do(func() { close(s.ch) }) }

// Think runs simulations until tc's budget for this move elapses, ctx is
// canceled, or pruneNonContenders decides no further search could change
// the answer, then returns the chosen move along with whether the engine
// elects to resign instead of playing it. flag narrows the pass/resign
// overrides bestMove applies, mirroring a GTP front end's genmove variants.
func (c *Controller) Think(ctx context.Context, tc timecontrol.TimeControl, movesLeft int, flag PassFlag) (board.Point, bool, error) {
	root, rootPos := c.Tree.Root()
	budget := tc.MaxTimeForMove(rootPos.Size, movesLeft)

	start := time.Now()
	deadline := start.Add(budget)
	startVisits := root.Visits()

	s := newStopper()
	timer := time.AfterFunc(budget, s.stop)
	defer timer.Stop()
	// have_alternate_moves pruning only ever applies for the duration of
	// this one Think call; reactivate every root child on the way out so a
	// decision from this search never leaks into the next.
	defer reactivateChildren(root)

	done := ctx.Done()
	go func() {
		select {
		case <-done:
			timer.Stop()
			s.stop()
		case <-s.ch:
		}
	}()

	go c.managePruning(root, start, deadline, startVisits, s)

	if c.Params.AnalyzeInterval > 0 && c.AnalysisWriter != nil {
		go c.runAnalysis(root, s)
	}

	Run(c.Tree, c.Eval, c.Params, s.ch, startVisits)

	if err := ctx.Err(); err != nil {
		return board.Pass, false, err
	}

	return c.bestMove(root, rootPos, flag)
}

// managePruning periodically estimates how many playouts remain in the
// time budget and prunes root children that could not possibly catch the
// current leader even if every remaining playout went to them; once only
// one candidate remains, further search cannot change the answer, so it
// stops the search early instead of burning out the clock.
func (c *Controller) managePruning(root *Node, start, deadline time.Time, startVisits int64, s *stopper) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.ch:
			return
		case <-ticker.C:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return
			}
			elapsed := time.Since(start)
			visitsSoFar := root.Visits() - startVisits
			if elapsed <= 0 || visitsSoFar <= 0 {
				continue
			}
			rate := float64(visitsSoFar) / elapsed.Seconds()
			playoutsLeft := int64(rate * remaining.Seconds())
			if !haveAlternateMoves(root, playoutsLeft) {
				s.stop()
				return
			}
		}
	}
}

// runAnalysis streams one FormatAnalysis line to AnalysisWriter every
// Params.AnalyzeInterval while a search runs, the way a GTP engine emits
// periodic "info ..." lines for a front end to render live.
func (c *Controller) runAnalysis(root *Node, s *stopper) {
	ticker := time.NewTicker(c.Params.AnalyzeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ch:
			return
		case <-ticker.C:
			fmt.Fprintln(c.AnalysisWriter, FormatAnalysis(DumpStats(root)))
		}
	}
}

// pruneNonContenders marks every root child inactive except the current
// leader and any child whose visit deficit against the leader could still
// be closed within playoutsLeft more playouts. Returns how many children
// remain active. Grounded on the "no amount of remaining search time could
// change the answer" early-exit a real engine performs between playouts,
// not just at the very end of its budget.
func pruneNonContenders(root *Node, playoutsLeft int64) int {
	children := root.Children()
	if len(children) < 2 {
		return len(children)
	}

	var leader *Node
	var leaderVisits int64 = -1
	for _, ch := range children {
		if v := ch.Visits(); v > leaderVisits {
			leaderVisits = v
			leader = ch
		}
	}

	active := 0
	for _, ch := range children {
		if ch == leader || leaderVisits-ch.Visits() <= playoutsLeft {
			ch.setPruned(false)
			active++
		} else {
			ch.setPruned(true)
		}
	}
	return active
}

// haveAlternateMoves reports whether more than one root child remains a
// viable candidate for the move about to be chosen, given playoutsLeft
// more playouts to spend.
func haveAlternateMoves(root *Node, playoutsLeft int64) bool {
	return pruneNonContenders(root, playoutsLeft) > 1
}

// reactivateChildren clears any pruning decision pruneNonContenders made
// against root's children, since it is only ever valid for the single
// Think call that produced it.
func reactivateChildren(root *Node) {
	for _, ch := range root.Children() {
		ch.setPruned(false)
	}
}

// bestMove picks the most-visited root child, then applies pass/resign
// overrides: an engine should not blindly pass if passing loses the game
// outright on the board's current score, and should resign rather than
// play on a clearly lost position instead of dragging the game out. flag
// can suppress either override individually, the way a GTP front end's
// genmove variants do.
func (c *Controller) bestMove(root *Node, pos *board.Position, flag PassFlag) (board.Point, bool, error) {
	children := root.Children()
	if len(children) == 0 {
		return board.Pass, false, nil
	}

	var best *Node
	var bestVisits int64 = -1
	for _, ch := range children {
		if v := ch.Visits(); v > bestVisits {
			bestVisits = v
			best = ch
		}
	}

	winRate := 1 - root.Value()
	if flag != NORESIGN && c.shouldResign(winRate, c.MoveNum) {
		return board.Resign, true, nil
	}

	if flag == NOPASS && best.move == board.Pass {
		best = secondBestNonPass(children, best)
		if best == nil {
			return board.Pass, false, nil
		}
	}

	if c.Params.DumbPass || best.move != board.Pass {
		return best.move, false, nil
	}

	// best move is Pass: only actually pass if the board's current area
	// score has the side to move strictly ahead. On a draw or a deficit,
	// passing does not win, so prefer the next-best non-pass move instead.
	score := pos.FinalScore()
	if pos.ToMove() == board.White {
		score = -score
	}
	if score > 0 {
		return board.Pass, false, nil
	}

	if alt := secondBestNonPass(children, best); alt != nil {
		return alt.move, false, nil
	}
	return board.Pass, false, nil
}

// secondBestNonPass returns the most-visited child among children other
// than exclude and other than Pass, or nil if none exists.
func secondBestNonPass(children []*Node, exclude *Node) *Node {
	var best *Node
	var bestVisits int64 = -1
	for _, ch := range children {
		if ch == exclude || ch.move == board.Pass {
			continue
		}
		if v := ch.Visits(); v > bestVisits {
			bestVisits = v
			best = ch
		}
	}
	return best
}

// shouldResign applies the handicap-blended resign threshold, gated on
// movenum: resigning before the game is at least a quarter played is not a
// sane heuristic off a single raw win-rate read, no matter how low it is.
func (c *Controller) shouldResign(winRate float64, movenum int) bool {
	if movenum <= c.boardArea()/4 {
		return false
	}

	threshold := c.Params.ResignThreshold
	if c.Handicap > 0 {
		blend := c.Params.ResignHandicapBlend * float64(c.Handicap)
		if blend > 1 {
			blend = 1
		}
		threshold *= 1 - blend
	}
	return winRate < threshold && winRate >= 0 && !math.IsNaN(winRate)
}

// boardArea returns the board's point count for the resign movenum gate,
// falling back to a 19x19 board's area when Tree is unset (e.g. a bare
// Controller built directly in a test), so the gate still behaves
// sensibly.
func (c *Controller) boardArea() int {
	if c.Tree == nil {
		return 361
	}
	_, pos := c.Tree.Root()
	return pos.Size * pos.Size
}

// AdvanceRoot plays move against the tree's current root position and
// rebases the tree onto the resulting position.
func (c *Controller) AdvanceRoot(move board.Point) (*board.Position, bool) {
	_, pos := c.Tree.Root()
	next, ok := pos.Play(move)
	if !ok {
		return nil, false
	}
	c.Tree.AdvanceRoot(move, next)
	c.MoveNum++
	return next, true
}
