package nn

import "gozero/internal/eval"

// applySymmetry maps a point on the true board to its location under one of
// the eight dihedral symmetries, for writing into the feature planes.
func applySymmetry(sq, size int, sym eval.Symmetry) int {
	row, col := sq/size, sq%size
	last := size - 1
	switch sym {
	case eval.Identity:
	case eval.Rot90:
		row, col = col, last-row
	case eval.Rot180:
		row, col = last-row, last-col
	case eval.Rot270:
		row, col = last-col, row
	case eval.FlipH:
		col = last - col
	case eval.FlipV:
		row = last - row
	case eval.FlipDiag:
		row, col = col, row
	case eval.FlipAntiDiag:
		row, col = last-col, last-row
	}
	return row*size + col
}

// inverseSymmetry returns the symmetry that undoes sym.
func inverseSymmetry(sym eval.Symmetry) eval.Symmetry {
	switch sym {
	case eval.Rot90:
		return eval.Rot270
	case eval.Rot270:
		return eval.Rot90
	default:
		return sym
	}
}

// unapplySymmetry rewrites a policy vector (board points in row-major order,
// Pass last) from the transformed frame the network saw back to the real
// board frame, in place.
func unapplySymmetry(policy []float32, size int, sym eval.Symmetry) {
	if sym == eval.Identity || sym == eval.RandomSymmetry {
		return
	}
	n := size * size
	out := make([]float32, n)
	for sq := 0; sq < n; sq++ {
		out[sq] = policy[applySymmetry(sq, size, sym)]
	}
	copy(policy[:n], out)
}
