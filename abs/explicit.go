// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"strconv"
	"strings"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/expr"
	"github.com/pkg/errors"
)

// Explicit is the reachable part of the abstraction, with states listed
// explicitly. From each state, every enabled command offers a choice between
// distributions; a distribution gives one successor per alternative of the
// command.
type Explicit struct {
	States []State
}

// State is an abstract state, that is a valuation of the predicates.
type State struct {
	Values  []bool
	Region  *expr.Expr // conjunction of the predicates or their negations
	Init    bool
	Goal    bool
	Choices []Choice
}

// Choice is the set of distributions offered by a command. The command is -1
// for the self-loop added on states that may deadlock. Must is true when the
// guard of the command holds on the whole region of the state.
type Choice struct {
	Command       int
	Must          bool
	Distributions []Distribution
}

// Distribution gives, for each alternative of a command, the successor state
// and its probability.
type Distribution struct {
	Succ []int
	Prob []float64
}

func valkey(values []bool) string {
	var sb strings.Builder
	for _, v := range values {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// expand calls f on every assignment of vars satisfying n.
func (m *Model) expand(n dd.Node, vars []int, f func([]bool) error) error {
	return m.b.Allsat(n, func(prof []int) error {
		free := []int{}
		val := make([]bool, len(vars))
		for k, v := range vars {
			switch prof[v] {
			case 1:
				val[k] = true
			case -1:
				free = append(free, k)
			}
		}
		for mask := 0; mask < 1<<len(free); mask++ {
			for i, k := range free {
				val[k] = mask&(1<<i) != 0
			}
			if err := f(append([]bool(nil), val...)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Explicit lists the reachable abstract states and their transitions. Goal
// states are the states whose region satisfies target, which must be a
// boolean combination of predicates.
func (m *Model) Explicit(target *expr.Expr) (*Explicit, error) {
	if m.reach == nil {
		return nil, abserr.Errorf(abserr.Bookkeeping, "explicit", "abstraction not computed")
	}
	b := m.b
	goal, err := m.enc.Encode(target)
	if err != nil {
		return nil, err
	}
	nsv := m.enc.NumStateVars()
	present := make([]int, nsv)
	for i := range present {
		present[i] = m.enc.Present(i)
	}
	interior := make([]dd.Node, len(m.commands))
	for k, c := range m.commands {
		if interior[k], err = m.Interior(c.cmd.Guard); err != nil {
			return nil, errors.Wrapf(err, "abstracting guard of %s", c.cmd.Label)
		}
	}
	res := &Explicit{}
	index := make(map[string]int)
	assigns := [][]bool{}
	err = m.expand(m.reach, present, func(val []bool) error {
		index[valkey(val)] = len(res.States)
		assign := make([]bool, b.Varnum())
		conj := make([]*expr.Expr, nsv)
		for i, v := range val {
			assign[present[i]] = v
			conj[i] = m.enc.Predicate(i).Expr()
			if !v {
				conj[i] = expr.Not(conj[i])
			}
		}
		assigns = append(assigns, assign)
		isInit, _ := b.Eval(m.initial, assign)
		g, _ := b.Eval(goal, assign)
		res.States = append(res.States, State{
			Values: val,
			Region: expr.And(conj...),
			Init:   isInit != 0,
			Goal:   g != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for s := range res.States {
		st := &res.States[s]
		cube := b.Cube(present, st.Values)
		for k, c := range m.commands {
			ch, err := m.choice(c, b.Restrict(c.BDD(), cube), index)
			if err != nil {
				return nil, err
			}
			if len(ch.Distributions) > 0 {
				must, _ := b.Eval(interior[k], assigns[s])
				ch.Command = k
				ch.Must = must != 0
				st.Choices = append(st.Choices, ch)
			}
		}
		if !m.deadlocks {
			continue
		}
		live := false
		for _, ch := range st.Choices {
			live = live || ch.Must
		}
		if !live {
			st.Choices = append(st.Choices, Choice{
				Command:       -1,
				Must:          len(st.Choices) == 0,
				Distributions: []Distribution{{Succ: []int{s}, Prob: []float64{1}}},
			})
		}
	}
	return res, m.enc.Err()
}

// choice returns the distributions of command c, where rel is the relation of
// c restricted to a source state.
func (m *Model) choice(c *Command, rel dd.Node, index map[string]int) (Choice, error) {
	b := m.b
	ch := Choice{}
	if b.IsFalse(rel) {
		return ch, nil
	}
	nondet := []int{}
	for v := len(m.enc.Interleaving().Vars()); v < c.upper; v++ {
		nondet = append(nondet, v)
	}
	present := make([]int, m.enc.NumStateVars())
	for i := range present {
		present[i] = m.enc.Present(i)
	}
	others := append(b.Scanset(m.enc.ProbSet()), b.Scanset(m.enc.NextSet())...)
	choices := b.Exist(rel, b.Makeset(others))
	seen := make(map[string]bool)
	err := m.expand(choices, nondet, func(val []bool) error {
		relv := b.Restrict(rel, b.Cube(nondet, val))
		succ := make([][]int, len(c.cmd.Alts))
		for j := range c.cmd.Alts {
			post := m.enc.ToPresent(b.Restrict(relv, m.enc.ProbChoice(j)))
			err := m.expand(post, present, func(v []bool) error {
				t, ok := index[valkey(v)]
				if !ok {
					return abserr.Errorf(abserr.Bookkeeping, "explicit", "successor %s of command %s not reachable", valkey(v), c.cmd.Label)
				}
				succ[j] = append(succ[j], t)
				return nil
			})
			if err != nil {
				return err
			}
			if len(succ[j]) == 0 {
				return nil
			}
		}
		// one distribution for each combination of successors
		pick := make([]int, len(succ))
		for {
			d := Distribution{Succ: make([]int, len(succ)), Prob: make([]float64, len(succ))}
			var key strings.Builder
			for j := range succ {
				d.Succ[j] = succ[j][pick[j]]
				d.Prob[j] = c.cmd.Alts[j].Prob
				key.WriteString(strconv.Itoa(d.Succ[j]))
				key.WriteByte(',')
			}
			if !seen[key.String()] {
				seen[key.String()] = true
				ch.Distributions = append(ch.Distributions, d)
			}
			j := 0
			for ; j < len(pick); j++ {
				pick[j]++
				if pick[j] < len(succ[j]) {
					break
				}
				pick[j] = 0
			}
			if j == len(pick) {
				return nil
			}
		}
	})
	return ch, err
}
