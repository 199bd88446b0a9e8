// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/encoding"
	"github.com/dalzilio/pcegar/smt"
)

// SymbolicCluster accumulates the transitions enumerated for one cluster of a
// command. Transitions are grouped by source cube; the transitions of a group
// are the distinct successor choices offered by the cluster from this source.
type SymbolicCluster struct {
	m     *encoding.Manager
	enc   *encoding.CubeEncoder
	nalts int
	order []int             // source cubes, in order of discovery
	src   map[int]dd.Node   // source cube by node id
	trans map[int][]dd.Node // distinct transitions by source
	seen  map[int]map[int]bool
	top   bool
}

// NewSymbolicCluster returns an empty cluster for a command with nalts
// alternatives.
func NewSymbolicCluster(m *encoding.Manager, enc *encoding.CubeEncoder, nalts int) *SymbolicCluster {
	return &SymbolicCluster{
		m:     m,
		enc:   enc,
		nalts: nalts,
		src:   make(map[int]dd.Node),
		trans: make(map[int][]dd.Node),
		seen:  make(map[int]map[int]bool),
	}
}

// Encoder returns the cube encoder of c.
func (c *SymbolicCluster) Encoder() *encoding.CubeEncoder { return c.enc }

// AddTransition records the transition described by an enumerated cube.
func (c *SymbolicCluster) AddTransition(cube []smt.Value) error {
	present, trans, err := c.enc.EncodeTransition(cube)
	if err != nil {
		return err
	}
	k := *present
	if _, ok := c.src[k]; !ok {
		c.src[k] = present
		c.seen[k] = make(map[int]bool)
		c.order = append(c.order, k)
	}
	if c.seen[k][*trans] {
		return nil
	}
	c.seen[k][*trans] = true
	c.trans[k] = append(c.trans[k], trans)
	return nil
}

// MakeTop marks c as unresolved: any successor is possible.
func (c *SymbolicCluster) MakeTop() { c.top = true }

// IsTop reports whether c is unresolved.
func (c *SymbolicCluster) IsTop() bool { return c.top }

// Len returns the number of distinct transitions of c.
func (c *SymbolicCluster) Len() int {
	n := 0
	for _, t := range c.trans {
		n += len(t)
	}
	return n
}

// MaximalSetSize returns the largest number of transitions from a single
// source cube, that is the number of nondeterministic choices needed by c.
func (c *SymbolicCluster) MaximalSetSize() int {
	if c.top {
		return 1
	}
	res := 1
	for _, t := range c.trans {
		if len(t) > res {
			res = len(t)
		}
	}
	return res
}

func (c *SymbolicCluster) validChoices() dd.Node {
	b := c.m.BDD()
	res := b.False()
	for k := 0; k < c.nalts; k++ {
		res = b.Or(res, c.m.ProbChoice(k))
	}
	return res
}

// Trans01 returns the transition relation of c, without nondeterministic
// choice variables.
func (c *SymbolicCluster) Trans01() dd.Node {
	if c.top {
		return c.validChoices()
	}
	b := c.m.BDD()
	res := b.False()
	for _, k := range c.order {
		res = b.Or(res, b.Or(c.trans[k]...))
	}
	return res
}

// CombineTransitions returns the transition relation of c where the i'th
// transition from each source cube is selected by value i of r.
func (c *SymbolicCluster) CombineTransitions(r *encoding.ChoiceRange) dd.Node {
	if c.top {
		return c.validChoices()
	}
	b := c.m.BDD()
	res := b.False()
	for _, k := range c.order {
		for i, t := range c.trans[k] {
			res = b.Or(res, b.And(r.Value(i), t))
		}
	}
	return res
}

// Simplify abstracts from f every variable that is neither tracked by c nor a
// probabilistic choice variable.
func (c *SymbolicCluster) Simplify(f dd.Node) dd.Node {
	b := c.m.BDD()
	keep := make(map[int]bool)
	for _, v := range c.enc.Support() {
		keep[v] = true
	}
	for _, v := range b.Scanset(c.m.ProbSet()) {
		keep[v] = true
	}
	drop := []int{}
	for _, v := range b.Support(f) {
		if !keep[v] {
			drop = append(drop, v)
		}
	}
	if len(drop) == 0 {
		return f
	}
	return b.Exist(f, b.Makeset(drop))
}
