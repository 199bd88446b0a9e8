// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package lang

import (
	"testing"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
)

func walk() *Model {
	x := expr.IntVar("x")
	return &Model{
		Vars: []Var{{Name: "x", Kind: IntKind, Lo: 0, Hi: 4}},
		Init: expr.Eq(x, expr.Int(2)),
		Commands: []Command{{
			Label: "step",
			Guard: expr.Gt(x, expr.Int(0)),
			Alts: []Alternative{
				{Prob: 0.5, Updates: []Update{{Var: "x", Value: expr.Sub(x, expr.Int(1))}}},
				{Prob: 0.5, Updates: []Update{{Var: "x", Value: expr.Add(x, expr.Int(1))}}},
			},
		}},
	}
}

func TestValidate(t *testing.T) {
	m := walk()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: unexpected error %s", err)
	}
	x := expr.IntVar("x")
	tests := []struct {
		name   string
		mutate func(m *Model)
	}{
		{"probabilities", func(m *Model) { m.Commands[0].Alts[0].Prob = 0.4 }},
		{"negative", func(m *Model) { m.Commands[0].Alts[0].Prob = -0.5 }},
		{"undeclared", func(m *Model) { m.Init = expr.Eq(expr.IntVar("y"), expr.Int(0)) }},
		{"wrong type", func(m *Model) { m.Init = expr.BoolVar("x") }},
		{"not boolean", func(m *Model) { m.Commands[0].Guard = x }},
		{"no alternative", func(m *Model) { m.Commands[0].Alts = nil }},
		{"twice", func(m *Model) {
			u := m.Commands[0].Alts[0].Updates
			m.Commands[0].Alts[0].Updates = append(u, u[0])
		}},
		{"bad update", func(m *Model) { m.Commands[0].Alts[1].Updates[0].Value = expr.True() }},
		{"range", func(m *Model) { m.Vars[0].Lo = 5 }},
	}
	for _, tt := range tests {
		m := walk()
		tt.mutate(m)
		err := m.Validate()
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if k, ok := abserr.KindOf(err); !ok || k != abserr.Malformed {
			t.Errorf("%s: expected a malformed input error, actual %v", tt.name, err)
		}
	}
}

func TestWP(t *testing.T) {
	m := walk()
	x := expr.IntVar("x")
	p := expr.Eq(x, expr.Int(0))
	alt := m.Commands[0].Alts[0]
	expected := expr.Eq(expr.Add(x, expr.Int(-1)), expr.Int(0))
	if actual := alt.WP(p); !actual.Equal(expected) {
		t.Errorf("WP: expected %s, actual %s", expected, actual)
	}
	if !alt.Modifies(p) {
		t.Errorf("Modifies: expected true")
	}
	if alt.Modifies(expr.BoolVar("b")) {
		t.Errorf("Modifies: expected false")
	}
	if n := len(m.AllInvariants()); n != 1 {
		t.Errorf("AllInvariants: expected 1 invariant, actual %d", n)
	}
}
