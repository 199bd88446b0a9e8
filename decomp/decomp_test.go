// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package decomp

import (
	"reflect"
	"testing"

	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
)

var (
	x = expr.IntVar("x")
	y = expr.IntVar("y")
)

func randomWalk() lang.Command {
	return lang.Command{
		Label: "walk",
		Guard: expr.Lt(expr.Int(0), x),
		Alts: []lang.Alternative{
			{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Sub(x, expr.Int(1))}}},
			{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, expr.Int(1))}}},
		},
	}
}

func TestSingleCluster(t *testing.T) {
	preds := []*expr.Expr{expr.Eq(x, expr.Int(0)), expr.Lt(expr.Int(0), x)}
	res, err := Decompose(FromCommand(randomWalk(), preds, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Clusters) != 1 {
		t.Fatalf("Decompose: expected 1 cluster, actual %d", len(res.Clusters))
	}
	c := res.Clusters[0]
	if !reflect.DeepEqual(c.Mod, [][]int{{0, 1}, {0, 1}}) {
		t.Errorf("Mod: expected [[0 1] [0 1]], actual %v", c.Mod)
	}
	if !reflect.DeepEqual(c.Rel, []int{0, 1}) {
		t.Errorf("Rel: expected [0 1], actual %v", c.Rel)
	}
	if !c.Guard.Equal(expr.Lt(expr.Int(0), x)) || !res.Residual.IsTrue() {
		t.Errorf("Guard: expected 0 < x and a true residual, actual %s and %s", c.Guard, res.Residual)
	}
	if !c.WP[0][1].Equal(expr.Lt(expr.Int(0), expr.Add(x, expr.Int(-1)))) {
		t.Errorf("WP: unexpected %s", c.WP[0][1])
	}
}

func TestSoundness(t *testing.T) {
	z := expr.IntVar("z")
	cmd := lang.Command{
		Label: "c",
		Guard: expr.And(expr.Lt(expr.Int(0), x), expr.Lt(y, expr.Int(3)), expr.Lt(z, expr.Int(2))),
		Alts: []lang.Alternative{
			{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Sub(x, expr.Int(1))}, {Var: "y", Value: expr.Int(0)}}},
		},
	}
	preds := []*expr.Expr{expr.Eq(x, expr.Int(0)), expr.Lt(y, expr.Int(2)), expr.Eq(z, expr.Int(1))}
	invariants := []*expr.Expr{expr.Le(x, expr.Int(10))}
	res, err := Decompose(FromCommand(cmd, preds, invariants))
	if err != nil {
		t.Fatal(err)
	}
	// y := 0 makes wp(y < 2) true, a row without support
	if len(res.Clusters) != 2 {
		t.Fatalf("Decompose: expected 2 clusters, actual %d", len(res.Clusters))
	}
	guards := []*expr.Expr{res.Residual}
	vars := map[string]int{}
	for k, c := range res.Clusters {
		guards = append(guards, c.Guard)
		for _, i := range c.Rel {
			for _, v := range expr.Vars(preds[i]) {
				if o, ok := vars[v]; ok && o != k {
					t.Errorf("variable %s occurs in clusters %d and %d", v, o, k)
				}
				vars[v] = k
			}
		}
	}
	if !expr.And(guards...).Equal(cmd.Guard) {
		t.Errorf("guards: expected %s, actual %s", cmd.Guard, expr.And(guards...))
	}
	if !res.Residual.Equal(expr.And(expr.Lt(y, expr.Int(3)), expr.Lt(z, expr.Int(2)))) {
		t.Errorf("Residual: unexpected %s", res.Residual)
	}
	if len(res.Clusters[0].Invariants) != 1 {
		t.Errorf("Invariants: expected x <= 10 in the first cluster, actual %v", res.Clusters[0].Invariants)
	}
}

func TestIdempotence(t *testing.T) {
	preds := []*expr.Expr{expr.Eq(x, expr.Int(0)), expr.Lt(expr.Int(0), x), expr.Eq(y, expr.Int(1))}
	in := FromCommand(randomWalk(), preds, nil)
	r1, _ := Decompose(in)
	r2, _ := Decompose(in)
	if !reflect.DeepEqual(keys(r1), keys(r2)) {
		t.Errorf("Decompose: expected identical results, actual %v and %v", keys(r1), keys(r2))
	}
}

func keys(r Result) []string {
	res := []string{}
	for _, c := range r.Clusters {
		res = append(res, c.Key())
	}
	return res
}

func TestIndependentCommands(t *testing.T) {
	incx := lang.Command{Label: "a", Guard: expr.Lt(x, expr.Int(5)),
		Alts: []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "x", Value: expr.Add(x, expr.Int(1))}}}}}
	incy := lang.Command{Label: "b", Guard: expr.Lt(y, expr.Int(5)),
		Alts: []lang.Alternative{{Prob: 1, Updates: []lang.Update{{Var: "y", Value: expr.Add(y, expr.Int(1))}}}}}
	preds := []*expr.Expr{expr.Lt(x, expr.Int(5)), expr.Lt(y, expr.Int(5))}

	cache := NewCache[int]()
	for _, cmd := range []lang.Command{incx, incy} {
		r, _ := Decompose(FromCommand(cmd, preds, nil))
		for _, c := range r.Clusters {
			if _, ok := cache.Get(c.Key()); !ok {
				cache.Put(c.Key(), c.Size())
			}
		}
	}
	// a new predicate over x leaves the cluster of command b unchanged
	preds = append(preds, expr.Eq(x, expr.Int(2)))
	r, _ := Decompose(FromCommand(incy, preds, nil))
	if len(r.Clusters) != 1 {
		t.Fatalf("Decompose: expected 1 cluster, actual %d", len(r.Clusters))
	}
	if _, ok := cache.Get(r.Clusters[0].Key()); !ok {
		t.Errorf("Cache: expected a hit for %s", r.Clusters[0].Key())
	}
	r, _ = Decompose(FromCommand(incx, preds, nil))
	if _, ok := cache.Get(r.Clusters[0].Key()); ok {
		t.Errorf("Cache: expected a miss for %s", r.Clusters[0].Key())
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 3 {
		t.Errorf("Stats: expected (1, 3), actual (%d, %d)", hits, misses)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		support  [][]string
		expected [][]int
	}{
		{[][]string{{"a"}, {"b"}, {"a", "b"}}, [][]int{{0, 1, 2}}},
		{[][]string{{"a"}, {"b"}, {"c", "a"}}, [][]int{{0, 2}, {1}}},
		{[][]string{{}, {"a"}, {}}, [][]int{{0}, {1}, {2}}},
		{[][]string{{"a"}, {"b"}, {"c"}, {"d", "c"}, {"b", "d"}}, [][]int{{0}, {1, 2, 3, 4}}},
		{[][]string{}, [][]int{}},
	}
	for _, tt := range tests {
		if actual := Partition(tt.support); !reflect.DeepEqual(actual, tt.expected) {
			t.Errorf("Partition(%v): expected %v, actual %v", tt.support, tt.expected, actual)
		}
	}
}

func TestCartesian(t *testing.T) {
	preds := []*expr.Expr{expr.Eq(x, expr.Int(0)), expr.Lt(expr.Int(0), x)}
	res, err := Cartesian(FromCommand(randomWalk(), preds, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("Cartesian: expected 2 clusters, actual %d", len(res.Clusters))
	}
	for k, c := range res.Clusters {
		if !reflect.DeepEqual(c.Mod, [][]int{{k}, {k}}) {
			t.Errorf("Mod: expected [[%d] [%d]], actual %v", k, k, c.Mod)
		}
	}
}
