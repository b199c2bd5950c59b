package mcts

import (
	"gozero/internal/eval"
)

// runSimulation performs one selection pass starting at the tree's current
// root. Expansion and the backup it produces may complete asynchronously
// (see expand), so the returned bool reports only whether this call made
// forward progress: false means it lost a race to expand a node
// (actionFail) and should be retried by the caller; true covers both a
// synchronously completed backup (a terminal leaf, or an evaluator that
// invokes its callback inline, as internal/eval/testeval does) and a write
// that was successfully handed off for asynchronous completion.
func runSimulation(t *Tree, ev eval.Evaluator, p Params, sym eval.Symmetry) bool {
	t.beginSimulation()

	root, rootPos := t.Root()

	node := root
	pos := rootPos
	path := []*Node{node}
	isRoot := true

	for {
		switch node.getAction() {
		case actionWrite:
			expand(t, node, pos, ev, p, sym, isRoot, func(value float64) {
				backup(path, value, p.VirtualLossesPerThread)
				t.endSimulation()
			})
			return true

		case actionBackupTerminal:
			backup(path, node.terminalValue, p.VirtualLossesPerThread)
			t.endSimulation()
			return true

		case actionFail:
			// Another goroutine is writing node right now. Unwind the
			// virtual losses this simulation laid down above node as
			// usual, but leave node's own share in place: per the
			// asymmetric virtual-loss design, that steers other
			// simulations away from retrying the same contested,
			// still-unevaluated subtree, and node's eventual expander pays
			// it back via payBackStrayVirtualLoss once the real value is
			// known instead of this reader unwinding it immediately.
			for i := 1; i < len(path)-1; i++ {
				path[i].addVirtualLoss(-p.VirtualLossesPerThread)
			}
			t.endSimulation()
			return false

		case actionRead:
			idx := selectChild(node, p, isRoot)
			if idx < 0 {
				// No eligible children remain (all invalidated or pruned
				// as non-contenders): back up using the BACKUP sentinel,
				// node's own value from its own side to move.
				backup(path, node.Value(), p.VirtualLossesPerThread)
				t.endSimulation()
				return true
			}
			child := node.children[idx]
			child.addVirtualLoss(p.VirtualLossesPerThread)

			next, ok := pos.Play(child.move)
			if !ok {
				// Superko or other late-discovered illegality: invalidate
				// this child so future selections skip it entirely and
				// back up a neutral result for this playout.
				child.markTerminal(0.5)
				backup(append(path, child), 0.5, p.VirtualLossesPerThread)
				t.endSimulation()
				return true
			}

			pos = next
			node = child
			path = append(path, node)
			isRoot = false
		}
	}
}

// Run launches p.NumWorkers goroutines, each looping runSimulation against
// t until stop is closed or a playout/visit/tree-size limit from p is
// reached. playoutBaseline is root's visit count when this call started, so
// MaxPlayouts bounds playouts spent on this move rather than visits
// accumulated across the whole game via a tree reused between moves.
func Run(t *Tree, ev eval.Evaluator, p Params, stop <-chan struct{}, playoutBaseline int64) {
	workers := p.NumWorkers
	if workers < 1 {
		workers = 1
	}
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for {
				select {
				case <-stop:
					done <- struct{}{}
					return
				default:
				}
				root, _ := t.Root()
				if p.MaxVisits > 0 && root.Visits() >= p.MaxVisits {
					done <- struct{}{}
					return
				}
				if p.MaxPlayouts > 0 && root.Visits()-playoutBaseline >= p.MaxPlayouts {
					done <- struct{}{}
					return
				}
				if p.MaxTreeSize > 0 && t.NodeCount() >= p.MaxTreeSize {
					done <- struct{}{}
					return
				}
				runSimulation(t, ev, p, eval.RandomSymmetry)
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
}
