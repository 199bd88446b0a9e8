// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package decomp splits the abstraction of a guarded command into independent
// clusters of predicates.
//
// The input of a decomposition is a list of rows: the invariants, the
// conjuncts of the guard, the relevant predicates, and the weakest
// preconditions of the modified predicates for every alternative. Two rows
// are in the same class when they share a program variable, directly or
// through other rows. The resulting partition is the coarsest one with this
// property and does not depend on the order of the rows. Each class containing
// a modified predicate gives a cluster; the guard conjuncts of the remaining
// classes are collected in a residual guard.
package decomp

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
)

// Input is the data needed to decompose the abstraction of a command.
// Predicates are designated by their index in Preds.
type Input struct {
	Guard      *expr.Expr
	Invariants []*expr.Expr
	Preds      []*expr.Expr
	// Rel lists the predicates that may be used to describe the source states.
	Rel []int
	// Mod[k] lists the predicates modified by alternative k, and WP[k][j] is
	// the weakest precondition of predicate Mod[k][j] for this alternative.
	Mod [][]int
	WP  [][]*expr.Expr
}

// FromCommand returns the decomposition input for command cmd and the
// predicates preds. Every predicate is relevant, and a predicate is modified
// by an alternative when its weakest precondition differs from itself.
func FromCommand(cmd lang.Command, preds []*expr.Expr, invariants []*expr.Expr) Input {
	in := Input{
		Guard:      cmd.Guard,
		Invariants: invariants,
		Preds:      preds,
		Rel:        make([]int, len(preds)),
		Mod:        make([][]int, len(cmd.Alts)),
		WP:         make([][]*expr.Expr, len(cmd.Alts)),
	}
	for i := range preds {
		in.Rel[i] = i
	}
	for k, alt := range cmd.Alts {
		for i, p := range preds {
			if !alt.Modifies(p) {
				continue
			}
			wp := alt.WP(p)
			if wp.Equal(p) {
				continue
			}
			in.Mod[k] = append(in.Mod[k], i)
			in.WP[k] = append(in.WP[k], wp)
		}
	}
	return in
}

// Cluster is a set of predicates whose abstraction can be computed
// independently from the other clusters of the same command.
type Cluster struct {
	Guard      *expr.Expr
	Invariants []*expr.Expr
	Rel        []int
	Mod        [][]int
	WP         [][]*expr.Expr
}

// Key returns a canonical representation of c. Two clusters with the same key
// have the same abstraction.
func (c Cluster) Key() string {
	var sb strings.Builder
	sb.WriteString(c.Guard.Key())
	sb.WriteString("|")
	writeInts(&sb, c.Rel)
	for k := range c.Mod {
		sb.WriteString("|")
		writeInts(&sb, c.Mod[k])
		for _, wp := range c.WP[k] {
			sb.WriteString(" ")
			sb.WriteString(wp.Key())
		}
	}
	return sb.String()
}

func writeInts(sb *strings.Builder, l []int) {
	for k, i := range l {
		if k > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Itoa(i))
	}
}

// Size returns the number of predicates occurring in c.
func (c Cluster) Size() int {
	n := len(c.Rel)
	for _, m := range c.Mod {
		n += len(m)
	}
	return n
}

// Result is the outcome of a decomposition.
type Result struct {
	Clusters []Cluster
	// Residual is the conjunction of the guard conjuncts that do not share
	// variables with any modified predicate.
	Residual *expr.Expr
}

const (
	rowInvariant = iota
	rowGuard
	rowRel
	rowMod
)

type row struct {
	kind int
	alt  int
	idx  int // index in the corresponding list of the input
	e    *expr.Expr
}

// Decompose computes the clusters of in.
func Decompose(in Input) (Result, error) {
	if len(in.Mod) != len(in.WP) {
		return Result{}, abserr.Errorf(abserr.Bookkeeping, "decompose", "%d modified lists for %d wp lists", len(in.Mod), len(in.WP))
	}
	rows := []row{}
	for k, e := range in.Invariants {
		rows = append(rows, row{kind: rowInvariant, idx: k, e: e})
	}
	guard := expr.Conjuncts(in.Guard)
	for k, e := range guard {
		rows = append(rows, row{kind: rowGuard, idx: k, e: e})
	}
	for _, i := range in.Rel {
		if i < 0 || i >= len(in.Preds) {
			return Result{}, abserr.Errorf(abserr.Bookkeeping, "decompose", "no predicate %d", i)
		}
		rows = append(rows, row{kind: rowRel, idx: i, e: in.Preds[i]})
	}
	for k := range in.Mod {
		if len(in.Mod[k]) != len(in.WP[k]) {
			return Result{}, abserr.Errorf(abserr.Bookkeeping, "decompose", "alternative %d: %d modified predicates for %d wp", k, len(in.Mod[k]), len(in.WP[k]))
		}
		for j, i := range in.Mod[k] {
			if i < 0 || i >= len(in.Preds) {
				return Result{}, abserr.Errorf(abserr.Bookkeeping, "decompose", "no predicate %d", i)
			}
			rows = append(rows, row{kind: rowMod, alt: k, idx: j, e: in.WP[k][j]})
		}
	}

	support := make([][]string, len(rows))
	for k, r := range rows {
		support[k] = expr.Vars(r.e)
	}

	res := Result{}
	residual := []*expr.Expr{}
	for _, class := range Partition(support) {
		c := Cluster{Mod: make([][]int, len(in.Mod)), WP: make([][]*expr.Expr, len(in.Mod))}
		conj := []*expr.Expr{}
		hasMod := false
		for _, k := range class {
			r := rows[k]
			switch r.kind {
			case rowInvariant:
				c.Invariants = append(c.Invariants, r.e)
			case rowGuard:
				conj = append(conj, r.e)
			case rowRel:
				c.Rel = append(c.Rel, r.idx)
			case rowMod:
				hasMod = true
				c.Mod[r.alt] = append(c.Mod[r.alt], in.Mod[r.alt][r.idx])
				c.WP[r.alt] = append(c.WP[r.alt], r.e)
			}
		}
		if !hasMod {
			residual = append(residual, conj...)
			continue
		}
		c.Guard = expr.And(conj...)
		c.normalize()
		res.Clusters = append(res.Clusters, c)
	}
	res.Residual = expr.And(residual...)
	return res, nil
}

// normalize sorts the predicate indices of c, keeping the wp lists aligned.
func (c *Cluster) normalize() {
	sort.Ints(c.Rel)
	for k := range c.Mod {
		mod, wp := c.Mod[k], c.WP[k]
		perm := make([]int, len(mod))
		for i := range perm {
			perm[i] = i
		}
		sort.Slice(perm, func(i, j int) bool { return mod[perm[i]] < mod[perm[j]] })
		nmod := make([]int, len(mod))
		nwp := make([]*expr.Expr, len(wp))
		for i, p := range perm {
			nmod[i], nwp[i] = mod[p], wp[p]
		}
		c.Mod[k], c.WP[k] = nmod, nwp
	}
}

// Cartesian computes one decomposition for each modified predicate, taken
// alone, and returns the union of the clusters. The residual is the
// conjunction of all the residuals. This gives smaller clusters at the price
// of a coarser abstraction.
func Cartesian(in Input) (Result, error) {
	seen := map[int]bool{}
	order := []int{}
	for _, mod := range in.Mod {
		for _, i := range mod {
			if !seen[i] {
				seen[i] = true
				order = append(order, i)
			}
		}
	}
	if len(order) == 0 {
		return Decompose(in)
	}
	res := Result{}
	residual := []*expr.Expr{}
	keys := map[string]bool{}
	for _, p := range order {
		single := in
		single.Mod = make([][]int, len(in.Mod))
		single.WP = make([][]*expr.Expr, len(in.Mod))
		for k := range in.Mod {
			for j, i := range in.Mod[k] {
				if i == p {
					single.Mod[k] = []int{i}
					single.WP[k] = []*expr.Expr{in.WP[k][j]}
				}
			}
		}
		r, err := Decompose(single)
		if err != nil {
			return Result{}, err
		}
		for _, c := range r.Clusters {
			if key := c.Key(); !keys[key] {
				keys[key] = true
				res.Clusters = append(res.Clusters, c)
			}
		}
		residual = append(residual, r.Residual)
	}
	res.Residual = expr.And(residual...)
	return res, nil
}
