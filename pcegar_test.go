// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pcegar

import (
	"math"
	"testing"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var x = expr.IntVar("x")

// ruin is the gambler's ruin on [0, 3], starting from 1. The probability to
// reach 0 is 2/3.
func ruin() *lang.Model {
	one := expr.Int(1)
	return &lang.Model{
		Vars: []lang.Var{{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 3}},
		Init: expr.Eq(x, one),
		Commands: []lang.Command{{
			Label: "bet",
			Guard: expr.And(expr.Lt(expr.Int(0), x), expr.Lt(x, expr.Int(3))),
			Alts: []lang.Alternative{
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Sub(x, one)}}},
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, one)}}},
			},
		}},
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		exact bool
	}{
		{"enum", []Option{WithSolver(smt.EnumFactory())}, false},
		{"enum blasting", []Option{WithSolver(smt.EnumFactory()), ValueBlasting(4)}, true},
		{"gini blasting", []Option{ValueBlasting(4)}, true},
	}
	p := lang.Property{Target: expr.Eq(x, expr.Int(0))}
	for _, tt := range tests {
		res, err := Check(ruin(), p, tt.opts...)
		if err != nil {
			t.Fatalf("Check(%s): %v", tt.name, err)
		}
		if res.Min > 2.0/3+1e-9 || res.Max < 2.0/3-1e-9 {
			t.Errorf("Check(%s): expected an interval containing 2/3, actual %s", tt.name, res)
		}
		if tt.exact && (math.Abs(res.Min-2.0/3) > 1e-6 || math.Abs(res.Max-2.0/3) > 1e-6) {
			t.Errorf("Check(%s): expected 2/3, actual %s", tt.name, res)
		}
	}
}

func TestCheckMetrics(t *testing.T) {
	metrics := stats.New(prometheus.NewRegistry())
	p := lang.Property{Target: expr.Eq(x, expr.Int(0)), Min: true}
	res, err := Check(ruin(), p, WithSolver(smt.EnumFactory()), WithMetrics(metrics), ValueBlasting(4))
	if err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(metrics.Predicates); v != float64(res.Predicates) {
		t.Errorf("Predicates: expected %d, actual %v", res.Predicates, v)
	}
	if v := testutil.ToFloat64(metrics.RefineRounds); v < 1 {
		t.Errorf("RefineRounds: expected at least 1, actual %v", v)
	}
}

func TestCheckMalformed(t *testing.T) {
	tests := []lang.Property{
		{Target: expr.Eq(expr.IntVar("y"), expr.Int(0))},
		{Target: x},
	}
	for _, p := range tests {
		_, err := Check(ruin(), p, WithSolver(smt.EnumFactory()))
		if k, ok := abserr.KindOf(err); !ok || k != abserr.Malformed {
			t.Errorf("Check(%s): expected a malformed error, actual %v", p, err)
		}
	}
}
