package mcts

import (
	"context"
	"sync"
	"testing"
	"time"

	"gozero/internal/board"
	"gozero/internal/eval"
	"gozero/internal/eval/testeval"
	"gozero/internal/timecontrol"
)

func smallParams() Params {
	p := DefaultParams()
	p.NumWorkers = 4
	return p
}

func TestSingleSimulationExpandsRoot(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)

	ok := runSimulation(tree, ev, smallParams(), eval.Identity)
	if !ok {
		t.Fatalf("expected first simulation on an idle root to succeed")
	}
	root, _ := tree.Root()
	if root.Visits() != 1 {
		t.Fatalf("expected root visits == 1 after one simulation, got %d", root.Visits())
	}
	if len(root.Children()) == 0 {
		t.Fatalf("expected root to have children after expansion")
	}
}

func TestVisitsEqualBackupCount(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if runSimulation(tree, ev, p, eval.Identity) {
					return
				}
			}
		}()
	}
	wg.Wait()

	root, _ := tree.Root()
	if root.Visits() != n {
		t.Fatalf("expected %d visits, got %d", n, root.Visits())
	}
}

func TestVirtualLossConservation(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if runSimulation(tree, ev, p, eval.Identity) {
					return
				}
			}
		}()
	}
	wg.Wait()

	root, _ := tree.Root()
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.VirtualLoss() != 0 {
			t.Fatalf("expected zero virtual loss after all simulations finished, node %v has %d", n.move, n.VirtualLoss())
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
}

func TestAdvanceRootReusesChild(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()

	for i := 0; i < 20; i++ {
		runSimulation(tree, ev, p, eval.Identity)
	}
	root, rootPos := tree.Root()
	children := root.Children()
	if len(children) == 0 {
		t.Fatalf("expected root children before advancing")
	}
	target := children[0]
	targetVisits := target.Visits()

	next, ok := rootPos.Play(target.move)
	if !ok {
		t.Fatalf("expected move %v to be legal", target.move)
	}
	tree.AdvanceRoot(target.move, next)

	newRoot, _ := tree.Root()
	if newRoot != target {
		t.Fatalf("expected AdvanceRoot to reuse the existing child node")
	}
	if newRoot.Visits() != targetVisits {
		t.Fatalf("expected reused child's visit count to carry over unchanged")
	}
}

func TestZeroPlayoutBoundary(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	root, _ := tree.Root()
	if root.Visits() != 0 {
		t.Fatalf("expected zero visits before any simulation")
	}
	ctrl := &Controller{Tree: tree, Eval: ev, Params: smallParams()}
	ctrl.Params.MaxVisits = 0
	mv, resign, err := ctrl.bestMove(root, pos, NORMAL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resign {
		t.Fatalf("did not expect resign with no evidence at all")
	}
	if mv != board.Pass {
		t.Fatalf("expected Pass as the only sane choice from an unexpanded root, got %v", mv)
	}
}

func TestMaxVisitsOneBoundary(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()
	p.MaxVisits = 1
	p.NumWorkers = 1

	Run(tree, ev, p, make(chan struct{}), 0)
	root, _ := tree.Root()
	if root.Visits() < 1 {
		t.Fatalf("expected at least one visit once MaxVisits == 1, got %d", root.Visits())
	}
}

func TestPVNonEmptyAfterSearch(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()
	for i := 0; i < 50; i++ {
		runSimulation(tree, ev, p, eval.Identity)
	}
	root, _ := tree.Root()
	pv := PV(root)
	if len(pv) == 0 {
		t.Fatalf("expected a non-empty principal variation after 50 simulations")
	}
}

func TestSingleThreadDeterminism(t *testing.T) {
	run := func() []string {
		pos := board.New(5)
		ev := testeval.New()
		tree := NewTree(pos)
		p := smallParams()
		p.NumWorkers = 1
		for i := 0; i < 40; i++ {
			runSimulation(tree, ev, p, eval.Identity)
		}
		root, _ := tree.Root()
		return PV(root)
	}
	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("expected deterministic PV length with a single worker, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic PV with a single worker, diverged at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestControllerThinkRespectsTimeBudget(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	ctrl := NewController(pos, ev, smallParams())
	tc := timecontrol.NewSimpleTimeControl(2*time.Second, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	_, _, err := ctrl.Think(ctx, tc, 20, NORMAL)
	if err != nil {
		t.Fatalf("unexpected error from Think: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("expected Think to respect the time-control budget on a small board")
	}
}

func TestShouldResignHandicapBlend(t *testing.T) {
	p := DefaultParams()
	c := &Controller{Params: p}
	if !c.shouldResign(0.06, 100) {
		t.Fatalf("expected resign with no handicap at a very low win rate")
	}
	c.Handicap = 9
	if c.shouldResign(0.06, 100) {
		t.Fatalf("expected a large handicap to suppress resignation at the same win rate")
	}
	if c.shouldResign(0.01, 1) {
		t.Fatalf("expected the movenum gate to suppress resignation early in the game")
	}
}

func TestSelectChildSkipsInvalidAndPrunedChildren(t *testing.T) {
	pos := board.New(5)
	ev := testeval.New()
	tree := NewTree(pos)
	p := smallParams()

	ok := runSimulation(tree, ev, p, eval.Identity)
	if !ok {
		t.Fatalf("expected the first simulation to expand root")
	}
	root, _ := tree.Root()
	children := root.Children()
	if len(children) < 2 {
		t.Fatalf("expected root to have at least two children on a 5x5 board")
	}

	// Mark every child but one invalid, as worker.go does for a superko
	// rejection, and confirm selectChild never returns it.
	var survivor *Node
	for i, ch := range children {
		if i == 0 {
			survivor = ch
			continue
		}
		ch.markTerminal(0.5)
	}
	for i := 0; i < 50; i++ {
		idx := selectChild(root, p, true)
		if idx < 0 {
			t.Fatalf("expected a valid child to remain selectable")
		}
		if children[idx] != survivor {
			t.Fatalf("selectChild returned an invalidated child")
		}
	}

	survivor.markTerminal(0.5)
	if idx := selectChild(root, p, true); idx >= 0 {
		t.Fatalf("expected selectChild to return -1 once every child is invalid, got index %d", idx)
	}
}

func TestPruneNonContendersExcludesHopelessChildren(t *testing.T) {
	pos := board.New(5)
	tree := NewTree(pos)
	ev := testeval.New()
	p := smallParams()
	if !runSimulation(tree, ev, p, eval.Identity) {
		t.Fatalf("expected the first simulation to expand root")
	}
	root, _ := tree.Root()
	children := root.Children()
	if len(children) < 2 {
		t.Fatalf("expected at least two children")
	}

	leader := children[0]
	for leader.Visits() < 100 {
		leader.recordVisit(0)
	}
	for _, ch := range children[1:] {
		ch.recordVisit(0)
	}

	if haveAlternateMoves(root, 0) {
		t.Fatalf("expected no alternate moves left once trailing children cannot catch up with zero playouts left")
	}
	for _, ch := range children[1:] {
		if ch.Active() {
			t.Fatalf("expected a hopeless trailing child to be pruned")
		}
	}
	if !leader.Active() {
		t.Fatalf("expected the leader to remain active")
	}

	reactivateChildren(root)
	for _, ch := range children {
		if !ch.Active() {
			t.Fatalf("expected reactivateChildren to clear every pruning decision")
		}
	}
}
