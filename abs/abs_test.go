// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	x    = expr.IntVar("x")
	y    = expr.IntVar("y")
	zero = expr.Int(0)
	one  = expr.Int(1)
)

// walk is a random walk on [0, 4] that stops in 0.
func walk() *lang.Model {
	return &lang.Model{
		Vars: []lang.Var{{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 4}},
		Init: expr.Eq(x, one),
		Commands: []lang.Command{{
			Label: "step",
			Guard: expr.Lt(zero, x),
			Alts: []lang.Alternative{
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Sub(x, one)}}},
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, one)}}},
			},
		}},
	}
}

func state(t *testing.T, ex *Explicit, values ...bool) *State {
	t.Helper()
	for k := range ex.States {
		if valkey(ex.States[k].Values) == valkey(values) {
			return &ex.States[k]
		}
	}
	t.Fatalf("state %s not reachable", valkey(values))
	return nil
}

func TestRandomWalk(t *testing.T) {
	m, err := New(walk(), smt.EnumFactory())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Refine([]*expr.Expr{expr.Eq(x, zero), expr.Lt(zero, x)}); err != nil {
		t.Fatal(err)
	}
	if n := len(m.Commands()[0].Clusters()); n != 1 {
		t.Errorf("Clusters: expected 1, actual %d", n)
	}
	if !m.Done() {
		t.Errorf("Done: expected true, actual false")
	}
	ex, err := m.Explicit(expr.Eq(x, zero))
	if err != nil {
		t.Fatal(err)
	}
	if len(ex.States) != 2 {
		t.Fatalf("States: expected 2, actual %d", len(ex.States))
	}
	pos := state(t, ex, false, true)
	if !pos.Init || pos.Goal {
		t.Errorf("State x>0: expected init and not goal, actual %v, %v", pos.Init, pos.Goal)
	}
	if len(pos.Choices) != 1 || pos.Choices[0].Command != 0 || !pos.Choices[0].Must {
		t.Fatalf("Choices: unexpected %+v", pos.Choices)
	}
	if n := len(pos.Choices[0].Distributions); n != 2 {
		t.Errorf("Distributions: expected 2, actual %d", n)
	}
	for _, d := range pos.Choices[0].Distributions {
		if d.Prob[0] != 0.5 || d.Prob[1] != 0.5 {
			t.Errorf("Distribution: expected probabilities 0.5, actual %v", d.Prob)
		}
	}
	zs := state(t, ex, true, false)
	if !zs.Goal {
		t.Errorf("State x=0: expected goal")
	}
	if len(zs.Choices) != 1 || zs.Choices[0].Command != -1 {
		t.Errorf("State x=0: expected a deadlock self-loop, actual %+v", zs.Choices)
	}
}

func TestFrameCondition(t *testing.T) {
	model := &lang.Model{
		Vars: []lang.Var{
			{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 2},
			{Name: "y", Kind: lang.IntKind, Lo: 0, Hi: 2},
		},
		Init: expr.And(expr.Eq(x, zero), expr.Eq(y, zero)),
		Commands: []lang.Command{{
			Label: "inc",
			Guard: expr.Lt(x, expr.Int(2)),
			Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, one)}}}},
		}},
	}
	m, err := New(model, smt.EnumFactory())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Refine([]*expr.Expr{expr.Eq(x, zero), expr.Eq(y, zero)}); err != nil {
		t.Fatal(err)
	}
	ex, err := m.Explicit(expr.Eq(y, zero))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range ex.States {
		if !s.Values[1] {
			t.Errorf("State %s: y = 0 should be preserved", valkey(s.Values))
		}
		if !s.Goal {
			t.Errorf("State %s: expected goal", valkey(s.Values))
		}
	}
	start := state(t, ex, true, true)
	if len(start.Choices) != 1 || len(start.Choices[0].Distributions) != 1 {
		t.Fatalf("Choices: unexpected %+v", start.Choices)
	}
	succ := ex.States[start.Choices[0].Distributions[0].Succ[0]]
	if valkey(succ.Values) != "01" {
		t.Errorf("Successor: expected 01, actual %s", valkey(succ.Values))
	}
}

func TestMonotoneReachability(t *testing.T) {
	m, err := New(walk(), smt.EnumFactory())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Refine([]*expr.Expr{expr.Eq(x, zero)}); err != nil {
		t.Fatal(err)
	}
	b := m.BDD()
	reach := m.Reachable()
	if err := m.Refine([]*expr.Expr{expr.Lt(zero, x)}); err != nil {
		t.Fatal(err)
	}
	if m.Rounds() != 2 {
		t.Errorf("Rounds: expected 2, actual %d", m.Rounds())
	}
	proj := b.Exist(m.Reachable(), b.Makeset([]int{m.Manager().Present(1)}))
	if !b.Implies(proj, reach) {
		t.Errorf("Refine: reachable states grew on the old predicates")
	}
	// no new predicate
	if err := m.Refine([]*expr.Expr{expr.Lt(zero, x)}); err != nil {
		t.Fatal(err)
	}
	if m.Rounds() != 2 {
		t.Errorf("Rounds: expected 2, actual %d", m.Rounds())
	}
}

func TestInconclusiveIsTop(t *testing.T) {
	metrics := stats.New(prometheus.NewRegistry())
	m, err := New(walk(), smt.EnumFactory(smt.MaxAssignments(2), smt.WithMetrics(metrics)), WithMetrics(metrics))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Refine([]*expr.Expr{expr.Eq(x, zero), expr.Lt(zero, x)}); err != nil {
		t.Fatal(err)
	}
	if !m.Done() {
		t.Errorf("Done: expected true, actual false")
	}
	for _, c := range m.Commands()[0].Clusters() {
		if !c.IsTop() {
			t.Errorf("Cluster: expected top")
		}
	}
	if n := m.BDD().CountMinterm(m.Reachable(), 2); n != 4 {
		t.Errorf("Reachable: expected 4, actual %v", n)
	}
	if v := testutil.ToFloat64(metrics.SolverUnknown); v == 0 {
		t.Errorf("SolverUnknown: expected positive, actual %v", v)
	}
}

func TestClusterCache(t *testing.T) {
	model := &lang.Model{
		Vars: []lang.Var{
			{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 2},
			{Name: "y", Kind: lang.IntKind, Lo: 0, Hi: 2},
		},
		Init: expr.And(expr.Eq(x, zero), expr.Eq(y, zero)),
		Commands: []lang.Command{
			{
				Label: "a",
				Guard: expr.Lt(x, expr.Int(2)),
				Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, one)}}}},
			},
			{
				Label: "b",
				Guard: expr.Lt(y, expr.Int(2)),
				Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "y", Value: expr.Add(y, one)}}}},
			},
		},
	}
	metrics := stats.New(prometheus.NewRegistry())
	m, err := New(model, smt.EnumFactory(), WithMetrics(metrics))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Refine([]*expr.Expr{expr.Eq(x, zero), expr.Eq(y, zero)}); err != nil {
		t.Fatal(err)
	}
	before := m.Commands()[1].Clusters()
	if err := m.Refine([]*expr.Expr{expr.Eq(x, one)}); err != nil {
		t.Fatal(err)
	}
	after := m.Commands()[1].Clusters()
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("Refine: clusters of command b should be kept")
	}
	if v := testutil.ToFloat64(metrics.RefineRounds); v != 2 {
		t.Errorf("RefineRounds: expected 2, actual %v", v)
	}
}

// counters has two independent commands incrementing x and y.
func counters() *lang.Model {
	return &lang.Model{
		Vars: []lang.Var{
			{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 2},
			{Name: "y", Kind: lang.IntKind, Lo: 0, Hi: 2},
		},
		Init: expr.And(expr.Eq(x, zero), expr.Eq(y, zero)),
		Commands: []lang.Command{
			{
				Label: "a",
				Guard: expr.Lt(x, expr.Int(2)),
				Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, one)}}}},
			},
			{
				Label: "b",
				Guard: expr.Lt(y, expr.Int(2)),
				Alts:  []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "y", Value: expr.Add(y, one)}}}},
			},
		},
	}
}

// summary lists the states of ex with their choices, using predicate
// valuations instead of state indices.
func summary(ex *Explicit) string {
	lines := []string{}
	for _, s := range ex.States {
		choices := []string{}
		for _, ch := range s.Choices {
			dists := []string{}
			for _, d := range ch.Distributions {
				succ := []string{}
				for j, t := range d.Succ {
					succ = append(succ, fmt.Sprintf("%s:%g", valkey(ex.States[t].Values), d.Prob[j]))
				}
				dists = append(dists, strings.Join(succ, " "))
			}
			sort.Strings(dists)
			choices = append(choices, fmt.Sprintf("%d/%v{%s}", ch.Command, ch.Must, strings.Join(dists, "|")))
		}
		sort.Strings(choices)
		lines = append(lines, fmt.Sprintf("%s %v %v %s", valkey(s.Values), s.Init, s.Goal, strings.Join(choices, " ")))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// abstract refines a fresh abstraction of model with each list of predicates
// in turn.
func abstract(t *testing.T, model *lang.Model, rounds [][]*expr.Expr, opts ...Option) *Model {
	t.Helper()
	m, err := New(model, smt.EnumFactory(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	for _, es := range rounds {
		if err := m.Refine(es); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func TestOnTheFly(t *testing.T) {
	tests := []struct {
		name   string
		model  *lang.Model
		rounds [][]*expr.Expr
		target *expr.Expr
		opts   []Option
	}{
		{"walk", walk(), [][]*expr.Expr{{expr.Eq(x, zero), expr.Lt(zero, x)}}, expr.Eq(x, zero), nil},
		{"walk cartesian", walk(), [][]*expr.Expr{{expr.Eq(x, zero), expr.Lt(zero, x)}}, expr.Eq(x, zero), []Option{Cartesian()}},
		{"counters", counters(), [][]*expr.Expr{{expr.Eq(x, zero), expr.Eq(y, zero)}}, expr.Eq(y, zero), nil},
		{"counters cartesian", counters(), [][]*expr.Expr{{expr.Eq(x, zero), expr.Eq(y, zero)}}, expr.Eq(y, zero), []Option{Cartesian()}},
		{"counters two rounds", counters(), [][]*expr.Expr{{expr.Eq(x, zero), expr.Eq(y, zero)}, {expr.Eq(x, one)}}, expr.Eq(x, one), nil},
	}
	for _, tt := range tests {
		lazy := abstract(t, tt.model, tt.rounds, append(tt.opts, EnumerationLimit(1))...)
		full := abstract(t, tt.model, tt.rounds, append(tt.opts, Incremental(false))...)
		if lazy.Done() {
			t.Errorf("Done(%s): expected false with an enumeration limit of 1", tt.name)
		}
		if !full.Done() {
			t.Errorf("Done(%s): expected true without on-the-fly exploration", tt.name)
		}
		if lazy.Rounds() != len(tt.rounds) {
			t.Errorf("Rounds(%s): expected %d, actual %d", tt.name, len(tt.rounds), lazy.Rounds())
		}
		n := lazy.Manager().NumStateVars()
		if a, e := lazy.BDD().CountMinterm(lazy.Reachable(), n), full.BDD().CountMinterm(full.Reachable(), n); a != e {
			t.Errorf("Reachable(%s): expected %v states, actual %v", tt.name, e, a)
		}
		lex, err := lazy.Explicit(tt.target)
		if err != nil {
			t.Fatal(err)
		}
		fex, err := full.Explicit(tt.target)
		if err != nil {
			t.Fatal(err)
		}
		if a, e := summary(lex), summary(fex); a != e {
			t.Errorf("Explicit(%s): expected\n%s\nactual\n%s", tt.name, e, a)
		}
	}
}
