package mcts

import (
	"sync/atomic"
	"time"
)

// rwlock is a single-atomic-counter reader/writer lock. Values below
// writerBit count active readers; writerBit alone marks an exclusive writer.
// It trades a blocking, fair queue for a tight spin loop, which is the right
// trade for a lock held for only a handful of instructions on the hot
// selection path.
//
// The engine acquires it only as the Tree-level lock, which genuinely blocks
// a writer until every in-flight reader has drained and is taken for writing
// only when the controller replaces the root. Node also carries an rwlock
// field, but a node's one-time IDLE->WRITING->READY transition is gated by
// the compare-and-swap on Node.state (see getAction), so that per-node lock
// is never acquired.
type rwlock struct {
	state int32
}

const writerBit int32 = 1 << 27

// acquireReader increments the reader count. It never blocks: a reader
// racing an in-progress writer simply retries.
func (l *rwlock) acquireReader() {
	for {
		v := atomic.LoadInt32(&l.state)
		if v >= writerBit {
			continue
		}
		if atomic.CompareAndSwapInt32(&l.state, v, v+1) {
			return
		}
	}
}

func (l *rwlock) releaseReader() {
	atomic.AddInt32(&l.state, -1)
}

// tryAcquireWriter attempts to set the writer bit without waiting for
// readers to drain, succeeding only from state 0 (no readers, no writer).
// No code in this package calls it; per-node expansion is gated by
// Node.state instead (see getAction).
func (l *rwlock) tryAcquireWriter() bool {
	return atomic.CompareAndSwapInt32(&l.state, 0, writerBit)
}

// acquireWriter blocks until all readers have drained, then claims the
// writer bit. Used only by the controller for root replacement, where
// blocking briefly is acceptable and correctness requires no reader observe
// a half-replaced root.
func (l *rwlock) acquireWriter() {
	for !atomic.CompareAndSwapInt32(&l.state, 0, writerBit) {
		time.Sleep(time.Microsecond)
	}
}

func (l *rwlock) releaseWriter() {
	atomic.StoreInt32(&l.state, 0)
}
