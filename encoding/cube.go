// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package encoding

import (
	"sort"

	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/smt"
)

// CubeEncoder translates the cubes enumerated for a cluster into transitions.
// Each tracked expression is attached to a slot: the value of the expression
// in a cube gives the value of the state variable in that slot.
type CubeEncoder struct {
	m     *Manager
	nalts int
	slots []Slot
	exprs []*expr.Expr
	dmap  DecodingMap
}

// NewCubeEncoder returns an empty encoder for a command with nalts
// alternatives.
func (m *Manager) NewCubeEncoder(nalts int) *CubeEncoder {
	return &CubeEncoder{m: m, nalts: nalts, dmap: make(DecodingMap)}
}

// Push tracks expression e for state variable sv at the given instance: 0 for
// the present state, k+1 for the successor by alternative k.
func (c *CubeEncoder) Push(sv, instance int, e *expr.Expr) error {
	if sv < 0 || sv >= c.m.NumStateVars() {
		return abserr.Errorf(abserr.Bookkeeping, "cube encoder", "unknown state variable %d", sv)
	}
	if instance < 0 || instance > c.nalts {
		return abserr.Errorf(abserr.Bookkeeping, "cube encoder", "instance %d out of range", instance)
	}
	s := Slot{Instance: instance, Var: sv}
	if _, ok := c.dmap[s]; ok {
		return abserr.Errorf(abserr.Bookkeeping, "cube encoder", "slot (%d, %d) already used", instance, sv)
	}
	c.slots = append(c.slots, s)
	c.exprs = append(c.exprs, e)
	c.dmap[s] = e
	return nil
}

// Exprs returns the tracked expressions, in the order of the calls to Push.
func (c *CubeEncoder) Exprs() []*expr.Expr { return c.exprs }

// DecodingMap returns the association between slots and tracked expressions.
func (c *CubeEncoder) DecodingMap() DecodingMap { return c.dmap }

// Tracks reports whether a slot of the encoder is associated with state
// variable sv at the given instance.
func (c *CubeEncoder) Tracks(sv, instance int) bool {
	_, ok := c.dmap[Slot{Instance: instance, Var: sv}]
	return ok
}

// Support returns the sorted list of diagram variables used by the encoder.
func (c *CubeEncoder) Support() []int {
	seen := make(map[int]bool)
	for _, s := range c.slots {
		v := c.m.Present(s.Var)
		if s.Instance > 0 {
			v = c.m.Next(s.Var)
		}
		seen[v] = true
	}
	res := make([]int, 0, len(seen))
	for v := range seen {
		res = append(res, v)
	}
	sort.Ints(res)
	return res
}

// EncodeTransition returns the diagrams of the source state and of the
// transition described by cube, where cube[j] is the value of the j'th tracked
// expression. The transition is the source state together with, for each
// alternative k, the probabilistic choice k and the successor values of
// instance k+1. Expressions with a DontCare value are left unconstrained.
func (c *CubeEncoder) EncodeTransition(cube []smt.Value) (present, trans dd.Node, err error) {
	if len(cube) != len(c.slots) {
		return nil, nil, abserr.Errorf(abserr.Bookkeeping, "encode transition", "cube of size %d for %d expressions", len(cube), len(c.slots))
	}
	b := c.m.b
	lits := make([][]dd.Node, c.nalts+1)
	for j, s := range c.slots {
		var v int
		switch cube[j] {
		case smt.DontCare:
			continue
		case smt.True, smt.False:
			v = c.m.Present(s.Var)
			if s.Instance > 0 {
				v = c.m.Next(s.Var)
			}
		default:
			return nil, nil, abserr.Errorf(abserr.Bookkeeping, "encode transition", "bad value %d", cube[j])
		}
		lit := b.Ithvar(v)
		if cube[j] == smt.False {
			lit = b.NIthvar(v)
		}
		lits[s.Instance] = append(lits[s.Instance], lit)
	}
	present = b.And(lits[0]...)
	alts := make([]dd.Node, c.nalts)
	for k := 0; k < c.nalts; k++ {
		alts[k] = b.And(append([]dd.Node{c.m.ProbChoice(k)}, lits[k+1]...)...)
	}
	trans = b.And(present, b.Or(alts...))
	if err := c.m.Err(); err != nil {
		return nil, nil, err
	}
	return present, trans, nil
}
