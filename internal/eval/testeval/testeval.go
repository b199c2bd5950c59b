// Package testeval provides a deterministic, synchronous eval.Evaluator for
// use in internal/mcts tests and as the no-model fallback of the cmd/ and
// mobile entry points, standing in for the batched ONNX backend in
// internal/eval/nn without requiring a model file or GPU.
package testeval

import (
	"sync/atomic"

	"gozero/internal/board"
	"gozero/internal/eval"
)

// Evaluator returns a uniform policy over every legal-shaped point plus a
// fixed or position-derived win rate. It invokes its callback inline, on the
// caller's own goroutine, so tests can reason about ordering without races.
type Evaluator struct {
	// WinRate is returned for every Submit call unless WinRateFunc is set.
	WinRate float32
	// WinRateFunc, if non-nil, overrides WinRate and lets a test vary the
	// evaluation by position (for example to make one branch look better).
	WinRateFunc func(pos *board.Position) float32

	calls  int64
	closed int32
}

var _ eval.Evaluator = (*Evaluator)(nil)

// New returns an Evaluator that reports a 0.5 win rate for every position.
func New() *Evaluator {
	return &Evaluator{WinRate: 0.5}
}

func (e *Evaluator) Submit(pos *board.Position, _ eval.Symmetry, cb func(eval.Result)) {
	atomic.AddInt64(&e.calls, 1)

	n := pos.Size * pos.Size
	policy := make([]float32, n+1)
	uniform := float32(1) / float32(n+1)
	for i := range policy {
		policy[i] = uniform
	}

	wr := e.WinRate
	if e.WinRateFunc != nil {
		wr = e.WinRateFunc(pos)
	}

	cb(eval.Result{Policy: policy, WinRate: wr})
}

// Calls reports how many evaluations have been requested, for assertions
// about batching or caching behavior built on top of an Evaluator.
func (e *Evaluator) Calls() int64 { return atomic.LoadInt64(&e.calls) }

func (e *Evaluator) Close() error {
	atomic.StoreInt32(&e.closed, 1)
	return nil
}

// Closed reports whether Close has been called.
func (e *Evaluator) Closed() bool { return atomic.LoadInt32(&e.closed) != 0 }
