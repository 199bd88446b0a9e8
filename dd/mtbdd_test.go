// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"math"
	"testing"
)

func TestArithmetic(t *testing.T) {
	bdd, _ := New(2)
	x := bdd.Ithvar(0)
	y := bdd.Ithvar(1)
	// f = 0.25 * x + 0.75 * y
	f := bdd.Plus(bdd.Times(x, bdd.Constant(0.25)), bdd.Times(y, bdd.Constant(0.75)))
	tests := []struct {
		values   []bool
		expected float64
	}{
		{[]bool{false, false}, 0},
		{[]bool{true, false}, 0.25},
		{[]bool{false, true}, 0.75},
		{[]bool{true, true}, 1},
	}
	for _, tt := range tests {
		actual, err := bdd.Eval(f, tt.values)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(actual-tt.expected) > 1e-9 {
			t.Errorf("Eval(%v): expected %g, actual %g", tt.values, tt.expected, actual)
		}
	}
	m := bdd.Max(bdd.Times(x, bdd.Constant(0.25)), bdd.Times(y, bdd.Constant(0.75)))
	if v, _ := bdd.Eval(m, []bool{true, true}); v != 0.75 {
		t.Errorf("Max: expected 0.75, actual %g", v)
	}
	if v, _ := bdd.Eval(bdd.Minus(f, f), []bool{true, true}); v != 0 {
		t.Errorf("Minus: expected 0, actual %g", v)
	}
	if !bdd.Equal(bdd.Constant(1), bdd.True()) {
		t.Errorf("Constant(1) should be True")
	}
	if v, ok := bdd.Value(bdd.Constant(0.5)); !ok || v != 0.5 {
		t.Errorf("Value: expected 0.5, actual %g", v)
	}
}

func TestBooleanOnValues(t *testing.T) {
	bdd, _ := New(1)
	bdd.Or(bdd.Constant(0.5), bdd.Constant(0.25))
	if !bdd.Errored() {
		t.Errorf("boolean operations on non boolean terminals should fail")
	}
}

func TestIsop(t *testing.T) {
	bdd, _ := New(4)
	a, b, c, d := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2), bdd.Ithvar(3)
	tests := []Node{
		bdd.True(),
		bdd.False(),
		bdd.Or(bdd.And(a, b), bdd.And(c, d)),
		bdd.Equiv(a, b),
		bdd.Or(bdd.And(a, bdd.NIthvar(1)), bdd.And(a, bdd.NIthvar(3)), bdd.And(a, b, bdd.NIthvar(2))),
	}
	for k, n := range tests {
		cubes, err := bdd.Isop(n)
		if err != nil {
			t.Fatal(err)
		}
		acc := bdd.False()
		for _, cube := range cubes {
			vars, vals := []int{}, []bool{}
			for v, lit := range cube {
				if lit >= 0 {
					vars = append(vars, v)
					vals = append(vals, lit == 1)
				}
			}
			acc = bdd.Or(acc, bdd.Cube(vars, vals))
		}
		if !bdd.Equal(acc, n) {
			t.Errorf("test %d: cover %v is not equivalent to %s", k, cubes, bdd.Print(n))
		}
	}
	cubes, _ := bdd.Isop(bdd.Or(bdd.And(a, b), bdd.And(c, d)))
	if len(cubes) != 2 {
		t.Errorf("Isop: expected 2 cubes, actual %d", len(cubes))
	}
}

func TestRestrict(t *testing.T) {
	bdd, _ := New(3)
	x := bdd.Ithvar(0)
	f := bdd.Ite(x, bdd.Constant(0.3), bdd.Times(bdd.Ithvar(2), bdd.Constant(0.7)))
	r := bdd.Restrict(f, bdd.NIthvar(0))
	expected := bdd.Times(bdd.Ithvar(2), bdd.Constant(0.7))
	if !bdd.Equal(r, expected) {
		t.Errorf("Restrict: expected %s, actual %s", bdd.Print(expected), bdd.Print(r))
	}
	r = bdd.Restrict(f, bdd.Cube([]int{0, 2}, []bool{true, false}))
	if v, ok := bdd.Value(r); !ok || v != 0.3 {
		t.Errorf("Restrict: expected 0.3, actual %s", bdd.Print(r))
	}
}

func TestCountMinterm(t *testing.T) {
	bdd, _ := New(3)
	n := bdd.Or(bdd.Ithvar(0), bdd.Ithvar(2))
	if actual := bdd.CountMinterm(n, 3); actual != 6 {
		t.Errorf("CountMinterm: expected 6, actual %g", actual)
	}
	if actual := fmt.Sprint(bdd.Terminals(bdd.Constant(0.5))); actual != "[0.5]" {
		t.Errorf("Terminals: expected [0.5], actual %s", actual)
	}
}
