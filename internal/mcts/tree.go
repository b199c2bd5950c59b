package mcts

import (
	"sync/atomic"
	"time"

	"gozero/internal/board"
)

// Tree owns the current root and the machinery to replace it as the game
// advances, without blocking in-flight simulations on the old root any
// longer than necessary. Root replacement uses the blocking half of rwlock:
// a writer here genuinely waits for every current reader (a worker mid
// selection through the root) to finish before swapping the pointer.
type Tree struct {
	rootLock rwlock
	root     *Node
	rootPos  *board.Position

	// pending counts simulations currently in flight anywhere under the
	// current root generation. AdvanceRoot swaps in a fresh counter and
	// hands the old one, plus the detached subtree, to a background
	// goroutine that waits for it to drain before letting the subtree go.
	pending *int64

	// nodeCount is a running total of nodes ever allocated into this tree,
	// checked against Params.MaxTreeSize. It is not decremented when a
	// subtree is dropped by AdvanceRoot: it tracks total allocation, not
	// the live tree's current size, which is enough to bound memory growth
	// within one search without the bookkeeping of a true live count.
	nodeCount int64 // atomic
}

// NewTree creates a tree rooted at pos, to move by pos.ToMove().
func NewTree(pos *board.Position) *Tree {
	var zero int64
	return &Tree{
		root:      newNode(board.Pass, nil, pos.ToMove()),
		rootPos:   pos,
		pending:   &zero,
		nodeCount: 1,
	}
}

func (t *Tree) addNodes(n int64) { atomic.AddInt64(&t.nodeCount, n) }

// NodeCount returns the running total of nodes allocated into this tree.
func (t *Tree) NodeCount() int64 { return atomic.LoadInt64(&t.nodeCount) }

// Root returns the current root node and position, protected by the tree's
// reader side so it is never observed mid-replacement.
func (t *Tree) Root() (*Node, *board.Position) {
	t.rootLock.acquireReader()
	defer t.rootLock.releaseReader()
	return t.root, t.rootPos
}

func (t *Tree) beginSimulation() {
	atomic.AddInt64(t.pending, 1)
}

func (t *Tree) endSimulation() {
	atomic.AddInt64(t.pending, -1)
}

// AdvanceRoot replaces the root with the existing child reached by move,
// building a fresh unexpanded node if the move was never explored. The
// detached old root is handed to a background goroutine that frees it only
// once every simulation that started against it has finished and its
// virtual loss has returned to zero, mirroring a real engine's lazy
// tree-deletion task instead of blocking the caller on a synchronous free.
func (t *Tree) AdvanceRoot(move board.Point, newPos *board.Position) {
	t.rootLock.acquireWriter()

	oldRoot := t.root
	oldPending := t.pending

	var next *Node
	if atomic.LoadInt32(&oldRoot.state) == stateReady {
		for _, ch := range oldRoot.children {
			if ch.move == move {
				next = ch
				break
			}
		}
	}
	if next == nil {
		next = newNode(move, nil, newPos.ToMove())
		t.addNodes(1)
	} else {
		next.parent = nil
	}

	var zero int64
	t.root = next
	t.rootPos = newPos
	t.pending = &zero

	t.rootLock.releaseWriter()

	go backgroundDestroy(oldRoot, oldPending)
}

// backgroundDestroy waits for an old root generation to fully drain before
// dropping every reference into it, so Go's garbage collector can reclaim
// the subtree. Polling is deliberately coarse: this is cleanup, not a
// latency-sensitive path.
func backgroundDestroy(root *Node, pending *int64) {
	for atomic.LoadInt64(pending) != 0 || root.VirtualLoss() != 0 {
		time.Sleep(100 * time.Millisecond)
	}
	clearSubtree(root)
}

func clearSubtree(n *Node) {
	for _, c := range n.children {
		c.parent = nil
		clearSubtree(c)
	}
	n.children = nil
}
