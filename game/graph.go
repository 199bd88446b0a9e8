// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package game interprets an abstraction as a two-player stochastic game and
// refines it lazily.
//
// A Graph has three kinds of nodes. From a state, the abstraction player
// (player 1) selects a choice set; this choice models the uncertainty
// introduced by the abstraction. From a choice set, the program player
// (player 2) selects a distribution, that is a nondeterministic choice of the
// program. A distribution then leads to states with some probabilities. The
// lower bound of a reachability probability is obtained when player 1
// minimizes, and the upper bound when player 1 maximizes; player 2 minimizes
// or maximizes depending on the property.
package game

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/dalzilio/pcegar/expr"
)

// State, ChoiceSet and Distribution are the nodes of a game graph.
type (
	State        int
	ChoiceSet    int
	Distribution int
)

const (
	tolerance = 1e-12
	maxsteps  = 100000
)

type state struct {
	region *expr.Expr
	init   bool
	goal   bool
	sets   []ChoiceSet
	lower  float64
	upper  float64
	lset   ChoiceSet
	ldist  Distribution
	uset   ChoiceSet
	udist  Distribution
}

type distribution struct {
	action int
	succ   []State
	prob   []float64
}

// Graph is a stochastic game graph. Choice sets belong to a single state.
type Graph struct {
	states []state
	sets   [][]Distribution
	dists  []distribution
}

// New returns an empty game graph.
func New() *Graph {
	return &Graph{}
}

// AddState adds a state whose concrete states are described by region. A nil
// region stands for true.
func (g *Graph) AddState(region *expr.Expr) State {
	if region == nil {
		region = expr.True()
	}
	g.states = append(g.states, state{region: region, lset: -1, ldist: -1, uset: -1, udist: -1})
	return State(len(g.states) - 1)
}

// NumStates returns the number of states of g.
func (g *Graph) NumStates() int { return len(g.states) }

// Region returns the region of state s.
func (g *Graph) Region(s State) *expr.Expr { return g.states[s].region }

// SetRegion changes the region of state s.
func (g *Graph) SetRegion(s State, region *expr.Expr) { g.states[s].region = region }

// AddInit marks s as initial.
func (g *Graph) AddInit(s State) { g.states[s].init = true }

// AddGoal marks s as a goal state. Goal states are absorbing: their choice
// sets are ignored.
func (g *Graph) AddGoal(s State) { g.states[s].goal = true }

// IsInit reports whether s is initial.
func (g *Graph) IsInit(s State) bool { return g.states[s].init }

// IsGoal reports whether s is a goal state.
func (g *Graph) IsGoal(s State) bool { return g.states[s].goal }

// CreateChoiceSet returns a new, empty, choice set.
func (g *Graph) CreateChoiceSet() ChoiceSet {
	g.sets = append(g.sets, nil)
	return ChoiceSet(len(g.sets) - 1)
}

// AddChoiceSet adds choice set c to the choices of player 1 in s.
func (g *Graph) AddChoiceSet(s State, c ChoiceSet) {
	g.states[s].sets = append(g.states[s].sets, c)
}

// ChoiceSets returns the choice sets of s.
func (g *Graph) ChoiceSets(s State) []ChoiceSet { return g.states[s].sets }

// CreateDistribution returns a new distribution for the command with index
// action.
func (g *Graph) CreateDistribution(action int) Distribution {
	g.dists = append(g.dists, distribution{action: action})
	return Distribution(len(g.dists) - 1)
}

// AddDistribution adds distribution d to the choices of player 2 in c.
func (g *Graph) AddDistribution(c ChoiceSet, d Distribution) {
	g.sets[c] = append(g.sets[c], d)
}

// Distributions returns the distributions of c.
func (g *Graph) Distributions(c ChoiceSet) []Distribution { return g.sets[c] }

// AddProbChoice adds a transition from d to target with probability prob.
// Transitions are kept in the order of the alternatives of the command.
func (g *Graph) AddProbChoice(d Distribution, target State, prob float64) {
	g.dists[d].succ = append(g.dists[d].succ, target)
	g.dists[d].prob = append(g.dists[d].prob, prob)
}

// Action returns the command index of d.
func (g *Graph) Action(d Distribution) int { return g.dists[d].action }

// Successors returns the targets of d, one per alternative.
func (g *Graph) Successors(d Distribution) []State { return g.dists[d].succ }

// RemoveDistribution removes d from choice set c of state s. A choice set left
// empty is removed from s.
func (g *Graph) RemoveDistribution(s State, c ChoiceSet, d Distribution) {
	ds := g.sets[c][:0]
	for _, e := range g.sets[c] {
		if e != d {
			ds = append(ds, e)
		}
	}
	g.sets[c] = ds
	if len(ds) > 0 {
		return
	}
	g.RemoveChoiceSet(s, c)
}

// RemoveChoiceSet removes choice set c from s.
func (g *Graph) RemoveChoiceSet(s State, c ChoiceSet) {
	sets := g.states[s].sets[:0]
	for _, e := range g.states[s].sets {
		if e != c {
			sets = append(sets, e)
		}
	}
	g.states[s].sets = sets
}

func contains(ds []Distribution, d Distribution) bool {
	for _, e := range ds {
		if e == d {
			return true
		}
	}
	return false
}

func (g *Graph) copySet(s State, ds []Distribution) ChoiceSet {
	c := g.CreateChoiceSet()
	g.sets[c] = append([]Distribution(nil), ds...)
	g.AddChoiceSet(s, c)
	return c
}

// DoSplit splits the pivot state in two. The fresh state, which is returned,
// keeps the choice sets of the pivot that contain the pivot distribution; the
// pivot state loses this distribution. Every distribution leading to the
// pivot state may now also lead to the fresh state: player 1 decides, through
// new choice sets.
func (g *Graph) DoSplit(p Pivot) State {
	pv := p.State
	fresh := g.AddState(g.states[pv].region)
	g.states[fresh].init = g.states[pv].init
	for _, c := range g.states[pv].sets {
		if contains(g.sets[c], p.Dist) {
			g.copySet(fresh, g.sets[c])
		}
	}
	for _, c := range append([]ChoiceSet(nil), g.states[pv].sets...) {
		if contains(g.sets[c], p.Dist) {
			g.RemoveDistribution(pv, c, p.Dist)
		}
	}

	variants := make(map[Distribution][]Distribution)
	redirect := func(d Distribution) []Distribution {
		if vs, ok := variants[d]; ok {
			return vs
		}
		pos := []int{}
		for k, t := range g.dists[d].succ {
			if t == pv {
				pos = append(pos, k)
			}
		}
		vs := []Distribution{d}
		for mask := 1; mask < 1<<len(pos); mask++ {
			e := g.CreateDistribution(g.dists[d].action)
			g.dists[e].succ = append([]State(nil), g.dists[d].succ...)
			g.dists[e].prob = append([]float64(nil), g.dists[d].prob...)
			for i, k := range pos {
				if mask&(1<<i) != 0 {
					g.dists[e].succ[k] = fresh
				}
			}
			vs = append(vs, e)
		}
		variants[d] = vs
		return vs
	}
	for s := range g.states {
		for _, c := range append([]ChoiceSet(nil), g.states[s].sets...) {
			opts := make([][]Distribution, len(g.sets[c]))
			n := 1
			for k, d := range g.sets[c] {
				opts[k] = redirect(d)
				n *= len(opts[k])
			}
			// the first combination is c itself
			for i := 1; i < n; i++ {
				ds := make([]Distribution, len(opts))
				j := i
				for k := range opts {
					ds[k] = opts[k][j%len(opts[k])]
					j /= len(opts[k])
				}
				g.copySet(State(s), ds)
			}
		}
	}
	return fresh
}

// value returns the expected bound of the successors of d.
func (g *Graph) value(d Distribution, upper bool) float64 {
	res := 0.0
	for k, t := range g.dists[d].succ {
		if upper {
			res += g.dists[d].prob[k] * g.states[t].upper
		} else {
			res += g.states[t].lower * g.dists[d].prob[k]
		}
	}
	return res
}

// best returns the optimal value of state s, with the optimal choice set and
// distribution. Player 1 minimizes when upper is false, player 2 minimizes
// when min is true.
func (g *Graph) best(s State, upper, min bool) (float64, ChoiceSet, Distribution) {
	res, rc, rd := 0.0, ChoiceSet(-1), Distribution(-1)
	for _, c := range g.states[s].sets {
		v, vd := 0.0, Distribution(-1)
		for _, d := range g.sets[c] {
			x := g.value(d, upper)
			if vd < 0 || (min && x < v) || (!min && x > v) {
				v, vd = x, d
			}
		}
		if vd < 0 {
			continue
		}
		if rc < 0 || (upper && v > res) || (!upper && v < res) {
			res, rc, rd = v, c, vd
		}
	}
	return res, rc, rd
}

// Until computes the lower and upper bounds of the probability to eventually
// reach a goal state, from every state of g. Player 2 minimizes when min is
// true. It returns the number of iterations.
func (g *Graph) Until(min bool) int {
	for k := range g.states {
		st := &g.states[k]
		st.lower, st.upper = 0, 0
		st.lset, st.ldist, st.uset, st.udist = -1, -1, -1, -1
		if st.goal {
			st.lower, st.upper = 1, 1
		}
	}
	steps := 0
	for steps < maxsteps {
		steps++
		delta := 0.0
		for k := range g.states {
			st := &g.states[k]
			if st.goal || len(st.sets) == 0 {
				continue
			}
			lo, lc, ld := g.best(State(k), false, min)
			up, uc, ud := g.best(State(k), true, min)
			delta = math.Max(delta, math.Max(math.Abs(lo-st.lower), math.Abs(up-st.upper)))
			st.lower, st.lset, st.ldist = lo, lc, ld
			st.upper, st.uset, st.udist = up, uc, ud
		}
		if delta < tolerance {
			break
		}
	}
	return steps
}

// Lower returns the lower bound computed for s by the last call to Until.
func (g *Graph) Lower(s State) float64 { return g.states[s].lower }

// Upper returns the upper bound computed for s by the last call to Until.
func (g *Graph) Upper(s State) float64 { return g.states[s].upper }

// MinResult returns the smallest lower bound of an initial state.
func (g *Graph) MinResult() float64 {
	res, found := 0.0, false
	for _, st := range g.states {
		if st.init && (!found || st.lower < res) {
			res, found = st.lower, true
		}
	}
	return res
}

// MaxResult returns the largest upper bound of an initial state.
func (g *Graph) MaxResult() float64 {
	res := 0.0
	for _, st := range g.states {
		if st.init && st.upper > res {
			res = st.upper
		}
	}
	return res
}

// Pivot is a state together with the choice set and the distribution selected
// for its upper bound.
type Pivot struct {
	State State
	Set   ChoiceSet
	Dist  Distribution
}

// Pivot returns the state with the largest gap between its bounds among the
// states where the choices for the lower and upper bounds differ.
func (g *Graph) Pivot() (Pivot, bool) {
	var res Pivot
	gap, found := 0.0, false
	for k, st := range g.states {
		if st.goal || st.uset < 0 {
			continue
		}
		if st.lset == st.uset && st.ldist == st.udist {
			continue
		}
		if d := st.upper - st.lower; d > gap {
			gap, found = d, true
			res = Pivot{State: State(k), Set: st.uset, Dist: st.udist}
		}
	}
	return res, found
}

// WriteDot writes a description of g in the DOT format.
func (g *Graph) WriteDot(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	for k, st := range g.states {
		shape := "circle"
		if st.goal {
			shape = "doublecircle"
		}
		style := ""
		if st.init {
			style = ", style=bold"
		}
		fmt.Fprintf(bw, "s%d [shape=%s%s, label=\"s%d\\n[%g, %g]\"];\n", k, shape, style, k, st.lower, st.upper)
		for _, c := range st.sets {
			fmt.Fprintf(bw, "s%d -> c%d;\n", k, c)
		}
	}
	dists := make(map[Distribution]bool)
	for _, st := range g.states {
		for _, c := range st.sets {
			fmt.Fprintf(bw, "c%d [shape=point];\n", c)
			for _, d := range g.sets[c] {
				fmt.Fprintf(bw, "c%d -> d%d;\n", c, d)
				dists[d] = true
			}
		}
	}
	for d := range g.dists {
		if !dists[Distribution(d)] {
			continue
		}
		fmt.Fprintf(bw, "d%d [shape=diamond, label=\"%d\"];\n", d, g.dists[d].action)
		for k, t := range g.dists[d].succ {
			fmt.Fprintf(bw, "d%d -> s%d [label=\"%g\"];\n", d, t, g.dists[d].prob[k])
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
