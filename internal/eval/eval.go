// Package eval defines the position-evaluator contract shared by the search
// engine and its backends. A real engine batches many pending evaluations
// onto a neural network (internal/eval/nn); tests use a synchronous
// deterministic stand-in (internal/eval/testeval).
package eval

import "gozero/internal/board"

// Symmetry selects one of the board's eight dihedral symmetries to apply
// before evaluation and undo on the returned policy. RandomSymmetry lets the
// backend pick one itself, which is how the production augmentation used
// during self-play training is exercised at inference time too.
type Symmetry int

const (
	Identity Symmetry = iota
	Rot90
	Rot180
	Rot270
	FlipH
	FlipV
	FlipDiag
	FlipAntiDiag
	numSymmetries

	RandomSymmetry Symmetry = -1
)

// Result is a network evaluation for one position: a policy distribution
// over every point plus Pass, and a win-rate estimate for the side to move.
type Result struct {
	Policy  []float32 // len == board points + 1 (Pass last), sums to ~1
	WinRate float32   // side to move's probability of winning, in [0, 1]
}

// ConfigError reports a backend configuration or resource problem detected
// at construction time (for example a batch or memory setting the runtime
// cannot honor), as distinct from a per-call evaluation failure.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "eval: invalid " + e.Field + ": " + e.Msg
}

// Evaluator submits a position for evaluation and invokes cb exactly once
// with the result. Submit never blocks the caller on the evaluation itself;
// batching backends may block briefly to enqueue. cb may run on a different
// goroutine than the caller of Submit.
type Evaluator interface {
	Submit(pos *board.Position, sym Symmetry, cb func(Result))
	Close() error
}
