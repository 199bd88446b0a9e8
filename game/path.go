// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package game

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
)

// Step is a transition of a path: from State, distribution Dist is taken and
// its successor number Alt is reached.
type Step struct {
	State State
	Dist  Distribution
	Alt   int
}

// Path returns a shortest path from an initial state to a goal state that
// only follows the distributions selected for the upper bound by the last
// call to Until. Self-loops added for deadlocks are never followed.
func (g *Graph) Path() ([]Step, bool) {
	parent := make(map[State]Step)
	seen := make([]bool, len(g.states))
	queue := []State{}
	for k, st := range g.states {
		if st.init && st.upper > 0 {
			seen[k] = true
			queue = append(queue, State(k))
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if g.states[s].goal {
			path := []Step{}
			for {
				p, ok := parent[s]
				if !ok {
					break
				}
				path = append([]Step{p}, path...)
				s = p.State
			}
			return path, true
		}
		d := g.states[s].udist
		if d < 0 || g.dists[d].action < 0 {
			continue
		}
		for j, t := range g.dists[d].succ {
			if seen[t] || g.states[t].upper == 0 {
				continue
			}
			seen[t] = true
			parent[t] = Step{State: s, Dist: d, Alt: j}
			queue = append(queue, t)
		}
	}
	return nil, false
}

// AnalyzePath checks whether some concrete execution from an initial state
// follows path. The weakest precondition of the region of the last state is
// computed backward, conjoined at each step with the region of the state and
// the guard of the command. When the path is spurious, the atoms of these
// preconditions are returned as new predicates.
func (l *Lazy) AnalyzePath(path []Step) (bool, []*expr.Expr, error) {
	if len(path) == 0 {
		return true, nil, nil
	}
	g := l.g
	last := path[len(path)-1]
	phi := g.Region(g.dists[last.Dist].succ[last.Alt])
	var atoms []*expr.Expr
	for i := len(path) - 1; i >= 0; i-- {
		st := path[i]
		d := g.dists[st.Dist]
		if d.action < 0 || d.action >= len(l.model.Commands) {
			return false, nil, abserr.Errorf(abserr.Bookkeeping, "path", "no command for distribution %d", st.Dist)
		}
		cmd := l.model.Commands[d.action]
		if st.Alt >= len(cmd.Alts) {
			return false, nil, abserr.Errorf(abserr.Bookkeeping, "path", "command %s has no alternative %d", cmd.Label, st.Alt)
		}
		wp := cmd.Alts[st.Alt].WP(phi)
		atoms = append(atoms, expr.Atoms(g.Region(st.State), cmd.Guard, wp)...)
		phi = expr.And(g.Region(st.State), cmd.Guard, wp)
		ok, err := l.satisfiable(phi)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			return false, atoms, nil
		}
	}
	ok, err := l.satisfiable(expr.And(l.model.Init, phi))
	if err != nil || ok {
		return ok, nil, err
	}
	return false, append(atoms, expr.Atoms(l.model.Init)...), nil
}

// refinePath analyzes the path selected for the upper bound, and forwards the
// predicates of a spurious path to the predicate hook. It reports whether the
// graph was replaced.
func (l *Lazy) refinePath(res *Result) (bool, error) {
	if l.onPredicates == nil {
		return false, nil
	}
	path, ok := l.g.Path()
	if !ok {
		return false, nil
	}
	res.Paths++
	feasible, preds, err := l.AnalyzePath(path)
	if err != nil {
		return false, err
	}
	if feasible || len(preds) == 0 {
		l.logger.Info("path to goal is feasible", "length", len(path))
		return false, nil
	}
	l.logger.Info("spurious path to goal", "length", len(path), "predicates", len(preds))
	g, err := l.onPredicates(preds)
	if err != nil || g == nil {
		return false, err
	}
	l.g = g
	return true, nil
}
