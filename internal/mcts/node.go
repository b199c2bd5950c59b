package mcts

import (
	"math"
	"sync/atomic"

	"gozero/internal/board"
)

// expandState values for Node.state.
const (
	stateIdle     int32 = iota // never touched
	stateWriting               // one goroutine is evaluating/populating children
	stateReady                 // children is safe to read
	stateInvalid               // terminal or all-children-dead dead end
)

// actionKind is what a selecting goroutine should do after consulting a
// node's expand state.
type actionKind int

const (
	actionRead actionKind = iota
	actionWrite
	actionFail
	actionBackupTerminal
)

// Node is one position in the search tree. Its hot fields (visits,
// valueSum, virtualLoss, accumulatedVL, state, pruned) are all accessed
// with atomics so a selecting goroutine never blocks behind another one;
// the compare-and-swap of state from stateIdle to stateWriting (see
// getAction) serializes the one-time children/policy population. The lock
// field is not acquired by the search.
type Node struct {
	move   board.Point
	parent *Node
	toMove board.Color // side to move at this node (who chooses among children)

	lock  rwlock
	state int32 // atomic, one of state*

	children []*Node   // written once under lock before state -> stateReady
	priors   []float32 // aligned with children, prior policy mass per child

	visits        int64  // atomic
	valueSumBits  uint64 // atomic, IEEE-754 bits of a float64 sum from toMove's own perspective pre-flip; see Value()
	virtualLoss   int32  // atomic, in-flight simulations currently below this node
	accumulatedVL int32  // atomic, virtual losses laid down while this node sat in stateWriting; see consumeAccumulatedVL

	// pruned marks a root child that pruneNonContenders decided can no
	// longer catch the leader given the time remaining; zero (the default)
	// means still an active candidate. Only ever set on root's direct
	// children and always cleared again once Think returns.
	pruned int32 // atomic

	terminal      bool    // set once, before stateReady/stateInvalid; safe to read after
	terminalValue float64 // win rate for the side to move at this node, if terminal
}

func newNode(move board.Point, parent *Node, toMove board.Color) *Node {
	return &Node{move: move, parent: parent, toMove: toMove}
}

func (n *Node) Move() board.Point   { return n.move }
func (n *Node) Parent() *Node       { return n.parent }
func (n *Node) ToMove() board.Color { return n.toMove }

func (n *Node) Visits() int64 { return atomic.LoadInt64(&n.visits) }

// Value returns the average backed-up value from the perspective of the
// side to move AT THIS NODE (i.e. the player who is about to choose among
// its children), or 0 if unvisited.
func (n *Node) Value() float64 {
	v := atomic.LoadInt64(&n.visits)
	if v == 0 {
		return 0
	}
	sum := math.Float64frombits(atomic.LoadUint64(&n.valueSumBits))
	return sum / float64(v)
}

func (n *Node) VirtualLoss() int32 { return atomic.LoadInt32(&n.virtualLoss) }

func (n *Node) addVirtualLoss(delta int32) {
	atomic.AddInt32(&n.virtualLoss, delta)
	atomic.AddInt32(&n.accumulatedVL, delta)
}

// releaseVirtualLoss removes delta virtual loss without touching
// accumulatedVL. Used by the expander (see payBackStrayVirtualLoss in
// expand.go) to pay back virtual loss a failed reader deliberately left in
// place rather than unwinding immediately.
func (n *Node) releaseVirtualLoss(delta int32) {
	if delta == 0 {
		return
	}
	atomic.AddInt32(&n.virtualLoss, -delta)
}

// consumeAccumulatedVL atomically resets accumulatedVL to zero and returns
// the value it held. Called exactly once per node, by the goroutine
// finishing that node's expansion, right after finishExpand or markTerminal
// has moved it out of stateWriting (see payBackStrayVirtualLoss).
func (n *Node) consumeAccumulatedVL() int32 {
	return atomic.SwapInt32(&n.accumulatedVL, 0)
}

// addValue atomically folds delta into the running value sum via a
// compare-and-swap retry loop, since there is no atomic float64 add.
func (n *Node) addValue(delta float64) {
	for {
		old := atomic.LoadUint64(&n.valueSumBits)
		sum := math.Float64frombits(old)
		next := math.Float64bits(sum + delta)
		if atomic.CompareAndSwapUint64(&n.valueSumBits, old, next) {
			return
		}
	}
}

// recordVisit adds one visit and folds in value.
func (n *Node) recordVisit(value float64) {
	atomic.AddInt64(&n.visits, 1)
	n.addValue(value)
}

// Children returns the node's children slice. Only valid once the caller has
// observed the node in stateReady (getAction returning actionRead); the
// atomic load of state is the acquire-barrier that makes finishExpand's
// preceding plain store of children visible here.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) Prior(i int) float32 { return n.priors[i] }

func (n *Node) Terminal() bool { return n.terminal }

// invalid reports whether this node has been excluded from selection
// permanently, either because it is terminal by the rules, has no
// surviving legal children, or was discovered illegal only once a
// simulation actually tried to play it (superko).
func (n *Node) invalid() bool { return atomic.LoadInt32(&n.state) == stateInvalid }

// Active reports whether pruneNonContenders still considers this root
// child a viable candidate for the move about to be chosen.
func (n *Node) Active() bool { return atomic.LoadInt32(&n.pruned) == 0 }

func (n *Node) setPruned(v bool) {
	val := int32(0)
	if v {
		val = 1
	}
	atomic.StoreInt32(&n.pruned, val)
}

// getAction inspects and, where appropriate, advances this node's expand
// state, returning what the caller should do next. It is lock-free and
// never blocks: a losing contender for the write gets actionFail and should
// treat this playout as a no-op for this node (the winner will finish the
// expansion; the loser's virtual loss is handled per the asymmetric
// virtual-loss design in worker.go).
func (n *Node) getAction() actionKind {
	for {
		s := atomic.LoadInt32(&n.state)
		switch s {
		case stateReady:
			return actionRead
		case stateInvalid:
			return actionBackupTerminal
		case stateWriting:
			return actionFail
		case stateIdle:
			if atomic.CompareAndSwapInt32(&n.state, stateIdle, stateWriting) {
				return actionWrite
			}
			// lost the race; re-read and act on whatever state the winner leaves.
		}
	}
}

// finishExpand publishes children/priors and flips the node to stateReady
// (or stateInvalid if there were no legal children). Must only be called by
// the goroutine that received actionWrite from getAction.
func (n *Node) finishExpand(children []*Node, priors []float32) {
	if len(children) == 0 {
		n.terminal = true
		atomic.StoreInt32(&n.state, stateInvalid)
		return
	}
	n.children = children
	n.priors = priors
	atomic.StoreInt32(&n.state, stateReady)
}

// markTerminal flips a node straight to stateInvalid with a fixed value,
// used for positions that are terminal by the rules (two passes) rather
// than by exhausting legal moves.
func (n *Node) markTerminal(value float64) {
	n.terminal = true
	n.terminalValue = value
	atomic.StoreInt32(&n.state, stateInvalid)
}
