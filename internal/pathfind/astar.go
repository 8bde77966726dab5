// Package pathfind computes walking routes over a battlefield's tile grid.
package pathfind

import (
	"container/heap"

	"github.com/Garsondee/battlecore/internal/battle"
)

// minStepCost is the cheapest cardinal step any terrain allows; it keeps the
// heuristic admissible.
const minStepCost = 2

// defaultMaxNodes bounds the search on large maps.
const defaultMaxNodes = 20000

// Finder is an A* pathfinder over one level of the battlefield. It
// implements battle.Pathfinder.
type Finder struct {
	bf       *battle.Battlefield
	maxNodes int
}

// New returns a Finder over bf.
func New(bf *battle.Battlefield) *Finder {
	return &Finder{bf: bf, maxNodes: defaultMaxNodes}
}

// SetMaxNodes caps how many tiles a single search may expand.
func (f *Finder) SetMaxNodes(n int) {
	if n > 0 {
		f.maxNodes = n
	}
}

type pathNode struct {
	pos    battle.Position
	g, h   int
	dir    battle.Direction
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].h < ol[j].h
}
func (ol openList) Swap(i, j int) { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x any) { n := x.(*pathNode); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

// octile distance scaled to step costs: diagonal steps cost half as much again.
func heuristic(a, b battle.Position) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	lo, hi := min(dx, dy), max(dx, dy)
	return (hi-lo)*minStepCost + lo*minStepCost*3/2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Calculate returns the cheapest route for u to target on u's level. Steps
// excludes the start tile; the path is infeasible when the target is on
// another level, cannot be entered, or lies beyond the search bound.
func (f *Finder) Calculate(u *battle.Unit, target battle.Position, run bool) (battle.Path, bool) {
	start := u.Pos()
	if target.Z != start.Z || !f.bf.InBounds(target) {
		return battle.Path{}, false
	}
	if target == start {
		return battle.Path{StartDirection: battle.DirNone}, true
	}

	first := &pathNode{pos: start, h: heuristic(start, target), dir: battle.DirNone}
	ol := &openList{first}
	heap.Init(ol)
	closed := make(map[battle.Position]bool)
	best := map[battle.Position]*pathNode{start: first}

	expanded := 0
	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.pos == target {
			return buildPath(cur), true
		}
		if closed[cur.pos] {
			continue
		}
		closed[cur.pos] = true
		expanded++
		if expanded > f.maxNodes {
			break
		}

		for d := battle.DirNorth; d <= battle.DirNorthWest; d++ {
			next := cur.pos.Add(d.Vector())
			if closed[next] {
				continue
			}
			cost := f.bf.StepCost(u, cur.pos, d)
			if cost == battle.MoveImpassable {
				continue
			}
			g := cur.g + cost
			if prev, ok := best[next]; ok && g >= prev.g {
				continue
			}
			node := &pathNode{pos: next, g: g, h: heuristic(next, target), dir: d, parent: cur}
			best[next] = node
			heap.Push(ol, node)
		}
	}
	return battle.Path{}, false
}

func buildPath(end *pathNode) battle.Path {
	var nodes []*pathNode
	for n := end; n.parent != nil; n = n.parent {
		nodes = append(nodes, n)
	}
	// Reverse
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	path := battle.Path{Cost: end.g, Steps: make([]battle.Position, len(nodes))}
	for i, n := range nodes {
		path.Steps[i] = n.pos
	}
	path.StartDirection = nodes[0].dir
	return path
}

// Reachable returns every tile u can walk to on its level for at most
// budget TU, with the cheapest cost of reaching it. The start tile is
// included at cost 0.
func (f *Finder) Reachable(u *battle.Unit, budget int) map[battle.Position]int {
	start := u.Pos()
	costs := map[battle.Position]int{start: 0}
	ol := &openList{{pos: start}}
	heap.Init(ol)
	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.g > costs[cur.pos] {
			continue
		}
		for d := battle.DirNorth; d <= battle.DirNorthWest; d++ {
			step := f.bf.StepCost(u, cur.pos, d)
			if step == battle.MoveImpassable {
				continue
			}
			next := cur.pos.Add(d.Vector())
			g := cur.g + step
			if g > budget {
				continue
			}
			if prev, ok := costs[next]; ok && g >= prev {
				continue
			}
			costs[next] = g
			heap.Push(ol, &pathNode{pos: next, g: g})
		}
	}
	return costs
}
