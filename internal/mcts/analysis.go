package mcts

import (
	"fmt"
	"sort"
	"strings"
)

// ChildInfo summarizes one root child for analysis output.
type ChildInfo struct {
	Move    string
	Visits  int64
	WinRate float64
	Prior   float32
	Order   int
	PV      []string
}

// PV walks the most-visited child at every step starting from node,
// returning the move sequence as a principal variation.
func PV(node *Node) []string {
	var moves []string
	n := node
	for {
		children := n.children
		if len(children) == 0 {
			return moves
		}
		var best *Node
		var bestVisits int64 = -1
		for _, c := range children {
			if v := c.Visits(); v > bestVisits {
				bestVisits = v
				best = c
			}
		}
		if best == nil || bestVisits <= 0 {
			return moves
		}
		moves = append(moves, best.move.String())
		n = best
	}
}

// DumpStats returns the per-child analysis lines for root, most-visited
// first, matching the "info move ... visits ... winrate ... prior ...
// order ... pv ..." shape a GTP front end streams during search.
func DumpStats(root *Node) []ChildInfo {
	children := root.Children()
	infos := make([]ChildInfo, 0, len(children))
	for i, c := range children {
		infos = append(infos, ChildInfo{
			Move:    c.move.String(),
			Visits:  c.Visits(),
			WinRate: 1 - c.Value(), // from root's side-to-move perspective
			Prior:   root.Prior(i),
		})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Visits > infos[j].Visits })
	for i := range infos {
		infos[i].Order = i
	}
	for i := range infos {
		var child *Node
		for _, c := range children {
			if c.move.String() == infos[i].Move {
				child = c
				break
			}
		}
		if child != nil {
			infos[i].PV = append([]string{infos[i].Move}, PV(child)...)
		}
	}
	return infos
}

// FormatAnalysis renders DumpStats output as one GTP-style analysis line.
func FormatAnalysis(infos []ChildInfo) string {
	var sb strings.Builder
	for _, ci := range infos {
		fmt.Fprintf(&sb, "info move %s visits %d winrate %d prior %d order %d pv %s ",
			ci.Move, ci.Visits, int(ci.WinRate*10000), int(ci.Prior*10000), ci.Order, strings.Join(ci.PV, " "))
	}
	return strings.TrimSpace(sb.String())
}
