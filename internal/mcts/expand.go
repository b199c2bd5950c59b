package mcts

import (
	"gozero/internal/board"
	"gozero/internal/eval"
)

// expand begins expansion of node, whose caller has just received
// actionWrite for it. It must only be called by that goroutine. Real
// evaluation and the backup it feeds happen asynchronously: for a position
// that is already terminal by the rules onBackup runs immediately, but
// otherwise everything from the evaluator's result onward — policy
// processing, child construction, publishing the node, and paying back
// stray virtual loss — runs inside the callback passed to ev.Submit, which
// the evaluator may invoke on its own feeder goroutine rather than this
// one. expand itself never blocks waiting for that result. isRoot disables
// MinPsaRatio pruning, since the root keeps every surviving legal move as a
// genuine candidate rather than narrowing early.
func expand(t *Tree, node *Node, pos *board.Position, ev eval.Evaluator, p Params, sym eval.Symmetry, isRoot bool, onBackup func(value float64)) {
	if pos.Terminal() {
		value := terminalValue(pos)
		node.markTerminal(value)
		payBackStrayVirtualLoss(node, p)
		onBackup(value)
		return
	}

	moves := pos.LegalMoves()

	ev.Submit(pos, sym, func(r eval.Result) {
		children, priors := buildChildren(node, pos, moves, r, p, isRoot)
		node.finishExpand(children, priors)
		t.addNodes(int64(len(children)))
		payBackStrayVirtualLoss(node, p)

		value := float64(r.WinRate)
		if len(children) == 0 {
			// Every legal move was pruned or none existed: nothing to
			// propagate from the network, so treat the leaf as a neutral
			// dead end rather than fabricating a win-rate reading.
			value = 0.5
		}
		onBackup(value)
	})
}

// payBackStrayVirtualLoss repays the virtual loss that piled up on node
// while it sat in stateWriting. A reader that selects node mid-expansion
// gets actionFail and, per the asymmetric virtual-loss design (see
// worker.go's actionFail case), leaves its virtual loss in place instead of
// unwinding it immediately — this steers other simulations away from the
// still-unevaluated subtree until the real value lands. node's own share of
// that virtual loss (laid down by this very goroutine when it first
// descended into node) is left for the normal backup pass to remove; only
// the extra, reader-contributed portion is released here.
func payBackStrayVirtualLoss(node *Node, p Params) {
	debt := node.consumeAccumulatedVL()
	extra := debt - p.VirtualLossesPerThread
	if extra > 0 {
		node.releaseVirtualLoss(extra)
	}
}

// buildChildren turns an evaluator result into child nodes for every legal
// move surviving MinPsaRatio pruning (skipped entirely at the root), with
// priors renormalized over the surviving set.
func buildChildren(node *Node, pos *board.Position, moves []board.Point, r eval.Result, p Params, isRoot bool) ([]*Node, []float32) {
	policyOf := func(pt board.Point) float32 {
		if pt == board.Pass {
			return r.Policy[len(r.Policy)-1]
		}
		if int(pt) < len(r.Policy)-1 {
			return r.Policy[pt]
		}
		return 0
	}

	maxPrior := float32(0)
	for _, mv := range moves {
		if pp := policyOf(mv); pp > maxPrior {
			maxPrior = pp
		}
	}

	var children []*Node
	var priors []float32
	var total float32
	for _, mv := range moves {
		pp := policyOf(mv)
		if !isRoot && maxPrior > 0 && float64(pp/maxPrior) < p.MinPsaRatio {
			continue
		}
		children = append(children, newNode(mv, node, pos.ToMove().Opposite()))
		priors = append(priors, pp)
		total += pp
	}
	if total > 0 {
		for i := range priors {
			priors[i] /= total
		}
	}
	return children, priors
}

// terminalValue returns the win rate for the side to move at a rules-
// terminal position (two passes), derived from area score.
func terminalValue(pos *board.Position) float64 {
	score := pos.FinalScore()
	switch {
	case score > 0:
		if pos.ToMove() == board.Black {
			return 1
		}
		return 0
	case score < 0:
		if pos.ToMove() == board.White {
			return 1
		}
		return 0
	default:
		return 0.5
	}
}
