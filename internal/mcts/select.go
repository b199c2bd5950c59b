package mcts

import "math"

// cpuct returns the exploration coefficient for a node with the given
// number of visits, following the visit-count-scaled formula so exploration
// tapers as a subtree accumulates evidence.
func cpuct(p Params, parentVisits int64) float64 {
	v := float64(parentVisits)
	if p.PuctLog == 0 {
		return p.Puct
	}
	return p.Puct + p.PuctLog*math.Log((v+p.PuctBase)/p.PuctBase)
}

// selectChild runs one PUCT choice among parent's children, returning the
// chosen index, or -1 if none of parent's children are eligible (every one
// is invalidated by superko/all-children-dead, or pruned by time-management
// non-contender pruning). isRoot selects which FPU reduction applies. It
// assumes the caller has already verified parent's state is stateReady.
func selectChild(parent *Node, p Params, isRoot bool) int {
	children := parent.Children()
	parentVisits := parent.Visits()
	c := cpuct(p, parentVisits)
	sqrtParent := math.Sqrt(float64(parentVisits) + 1)

	fpuReduction := p.FpuReduction
	if isRoot {
		fpuReduction = p.FpuRootReduction
	}
	var visitedMass float32
	for i, ch := range children {
		if ch.invalid() || !ch.Active() {
			continue
		}
		if ch.Visits() > 0 {
			visitedMass += parent.Prior(i)
		}
	}
	fpuValue := parent.Value() - fpuReduction*math.Sqrt(float64(visitedMass))

	best := -1
	bestScore := math.Inf(-1)
	for i, ch := range children {
		// Invalidated children (superko, or exhausted of their own legal
		// children) and children pruned as non-contenders are excluded from
		// selection entirely, not merely deprioritized: scoring them would
		// let a dead line accumulate fake visits forever.
		if ch.invalid() || !ch.Active() {
			continue
		}

		visits := ch.Visits()
		vloss := float64(ch.VirtualLoss())
		weight := float64(visits) + vloss

		var q float64
		if weight > 0 {
			// ch.Value() is from ch's own side-to-move perspective; the
			// parent wants it from the parent's perspective, which is the
			// negation since the two sides alternate move to move.
			q = -ch.Value()
			if vloss > 0 {
				// Fold pending virtual losses in as provisional losses (-1
				// each) so other workers see this line as less attractive
				// until the real backup lands.
				q = (q*float64(visits) + (-1.0)*vloss) / weight
			}
		} else {
			q = fpuValue
		}

		u := c * float64(parent.Prior(i)) * sqrtParent / (1 + weight)
		score := q + u
		if score > bestScore || (score == bestScore && best >= 0 && parent.Prior(i) > parent.Prior(best)) {
			bestScore = score
			best = i
		}
	}
	return best
}
