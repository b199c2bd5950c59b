package mcts

// backup propagates a simulation's outcome back up path, alternating the
// sign of value at each step since consecutive nodes belong to opposite
// sides to move, and removes the virtual loss this simulation added along
// the way. path is ordered root-to-leaf; value is from the leaf's own side
// to move's perspective.
func backup(path []*Node, value float64, vlPerThread int32) {
	v := value
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		n.recordVisit(v)
		if i > 0 {
			n.addVirtualLoss(-vlPerThread)
		}
		v = -v
	}
}
