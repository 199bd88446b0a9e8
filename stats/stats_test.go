// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Inc(SolverChecks)
	m.Inc(SolverChecks)
	m.Add(Cubes, 3)
	m.Set(Predicates, 7)
	if v := testutil.ToFloat64(m.SolverChecks); v != 2 {
		t.Errorf("SolverChecks: expected 2, actual %g", v)
	}
	if v := testutil.ToFloat64(m.Cubes); v != 3 {
		t.Errorf("Cubes: expected 3, actual %g", v)
	}
	if v := testutil.ToFloat64(m.Predicates); v != 7 {
		t.Errorf("Predicates: expected 7, actual %g", v)
	}
	if n := testutil.CollectAndCount(m.SolverChecks); n != 1 {
		t.Errorf("CollectAndCount: expected 1, actual %d", n)
	}
	// a nil set of metrics is a no-op
	var none *Metrics
	none.Inc(Splits)
	none.Set(ReachableStates, 1)
}
