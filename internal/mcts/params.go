package mcts

import "time"

// Params holds every tunable of the search, named after their counterparts
// in a classic UCT/PUCT Go engine's GTP config variables so a config layer
// can map them one-to-one. cmd/gtp currently sets NumWorkers and
// AnalyzeInterval from its flags and leaves the rest at DefaultParams.
type Params struct {
	// Puct, PuctBase and PuctLog parameterize the exploration coefficient:
	// cpuct(visits) = Puct + PuctLog * ln((visits + PuctBase) / PuctBase).
	Puct    float64
	PuctBase float64
	PuctLog  float64

	// FpuReduction and FpuRootReduction subtract from the parent's value
	// estimate to produce the "first play urgency" value assigned to an
	// unvisited child, scaled by the fraction of prior policy mass already
	// visited among siblings. Root uses its own reduction so the engine can
	// explore the root more eagerly than deeper nodes.
	FpuReduction     float64
	FpuRootReduction float64

	// VirtualLossesPerThread is how much a path is penalized per in-flight
	// simulation traversing it, to discourage other workers from piling
	// onto the same line before its backup lands.
	VirtualLossesPerThread int32

	// MinPsaRatio prunes children whose policy prior, as a fraction of the
	// largest prior among siblings, falls below this ratio: they are never
	// expanded into nodes at all. Does not apply at the root, which always
	// keeps every legal move as a candidate.
	MinPsaRatio float64

	// NumWorkers is the number of concurrent simulation goroutines.
	NumWorkers int

	MaxPlayouts  int64
	MaxVisits    int64
	MaxTreeSize  int64

	ResignThreshold float64
	// ResignHandicapBlend interpolates the resign threshold toward 0 (never
	// resign) as the position's handicap stones increase, matching the
	// intuition that a handicap game is not lost just because the model's
	// raw win rate looks bad early on.
	ResignHandicapBlend float64

	AnalyzeInterval time.Duration
	LagBuffer       time.Duration

	// DumbPass disables the pass override heuristic and plays the
	// most-visited move even when it is Pass. Resignation and the NOPASS
	// flag still apply.
	DumbPass bool
}

// DefaultParams returns sensible defaults for a mid-sized board.
func DefaultParams() Params {
	return Params{
		Puct:                   0.8,
		PuctBase:               19652,
		PuctLog:                0.0,
		FpuReduction:           0.25,
		FpuRootReduction:       0.1,
		VirtualLossesPerThread: 3,
		MinPsaRatio:            0.0,
		NumWorkers:             8,
		MaxPlayouts:            0,
		MaxVisits:              0,
		MaxTreeSize:            0,
		ResignThreshold:        0.1,
		ResignHandicapBlend:    0.05,
		AnalyzeInterval:        0,
		LagBuffer:              100 * time.Millisecond,
	}
}
