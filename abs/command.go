// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/decomp"
	"github.com/dalzilio/pcegar/encoding"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/pkg/errors"
)

// cluster is the state of the enumeration for one cluster of a command.
type cluster struct {
	dc     decomp.Cluster
	key    string
	sym    *SymbolicCluster
	solver smt.Solver
	en     smt.Enumerator
	done   bool
}

func (c *cluster) close() {
	if c.en != nil {
		c.en.Close()
		c.en = nil
	}
	c.solver = nil
}

// Command is the abstraction of a guarded command over the current
// predicates.
type Command struct {
	m        *Model
	index    int
	cmd      lang.Command
	guard    dd.Node
	clusters []*cluster
	old      dd.Node // relation of the previous round, with choice variables
	bdd      dd.Node
	mtbdd    dd.Node
	upper    int // first nondeterministic variable not used by the command
}

func newCommand(m *Model, index int, cmd lang.Command) *Command {
	return &Command{m: m, index: index, cmd: cmd}
}

// Label returns the label of the concrete command.
func (c *Command) Label() string { return c.cmd.Label }

// Concrete returns the concrete command.
func (c *Command) Concrete() lang.Command { return c.cmd }

// Done reports whether the enumeration of every cluster of c is complete.
func (c *Command) Done() bool {
	for _, cl := range c.clusters {
		if !cl.done {
			return false
		}
	}
	return true
}

// Clusters returns the symbolic clusters of c.
func (c *Command) Clusters() []*SymbolicCluster {
	res := make([]*SymbolicCluster, len(c.clusters))
	for k, cl := range c.clusters {
		res[k] = cl.sym
	}
	return res
}

// BDD returns the 0/1 transition relation of c, including the frame
// condition, computed by the last call to Finalize.
func (c *Command) BDD() dd.Node { return c.bdd }

// MTBDD returns the transition relation of c weighted by the probability of
// each alternative.
func (c *Command) MTBDD() dd.Node { return c.mtbdd }

// Update recomputes the clusters of c for the current predicates. Clusters
// whose key did not change keep their enumeration state, and clusters already
// completed by another command are taken from the cache of the model. For a
// new cluster, the relation of the previous round, restricted to care, is used
// as a learned constraint to prune the enumeration.
func (c *Command) Update(care dd.Node) error {
	m := c.m
	b := m.b
	var err error
	if c.guard, err = m.Cover(c.cmd.Guard, b.True()); err != nil {
		return errors.Wrapf(err, "abstracting guard of %s", c.cmd.Label)
	}
	in := decomp.FromCommand(c.cmd, m.preds.Exprs(), m.invariants)
	var res decomp.Result
	if m.cartesian {
		res, err = decomp.Cartesian(in)
	} else {
		res, err = decomp.Decompose(in)
	}
	if err != nil {
		return errors.Wrapf(err, "decomposing %s", c.cmd.Label)
	}

	current := make(map[string]*cluster, len(c.clusters))
	for _, cl := range c.clusters {
		current[cl.key] = cl
	}
	clusters := make([]*cluster, 0, len(res.Clusters))
	for _, dc := range res.Clusters {
		key := dc.Key()
		if cl, ok := current[key]; ok {
			delete(current, key)
			clusters = append(clusters, cl)
			continue
		}
		if cl, ok := m.cache.Get(key); ok {
			m.metrics.Inc(stats.ClusterHits)
			m.logger.Debug("cluster cache hit", "command", c.cmd.Label, "size", dc.Size())
			clusters = append(clusters, cl)
			continue
		}
		m.metrics.Inc(stats.ClusterMisses)
		cl, err := c.newCluster(dc, key, care)
		if err != nil {
			return errors.Wrapf(err, "command %s", c.cmd.Label)
		}
		clusters = append(clusters, cl)
	}
	for _, cl := range current {
		if !cl.done {
			cl.close()
		}
	}
	if len(clusters) == 0 {
		enc := m.enc.NewCubeEncoder(len(c.cmd.Alts))
		sym := NewSymbolicCluster(m.enc, enc, len(c.cmd.Alts))
		sym.MakeTop()
		clusters = append(clusters, &cluster{sym: sym, done: true})
	}
	c.clusters = clusters
	return m.enc.Err()
}

func (c *Command) newCluster(dc decomp.Cluster, key string, care dd.Node) (*cluster, error) {
	m := c.m
	enc := m.enc.NewCubeEncoder(len(c.cmd.Alts))
	for k := range dc.Mod {
		for j, i := range dc.Mod[k] {
			if err := enc.Push(i, k+1, dc.WP[k][j]); err != nil {
				return nil, err
			}
		}
	}
	for _, i := range dc.Rel {
		if err := enc.Push(i, 0, m.preds.At(i).Expr()); err != nil {
			return nil, err
		}
	}
	cl := &cluster{
		dc:  dc,
		key: key,
		sym: NewSymbolicCluster(m.enc, enc, len(c.cmd.Alts)),
	}
	solver, err := m.factory(m.model.Vars)
	if err != nil {
		return nil, errors.Wrap(err, "creating solver")
	}
	for _, e := range append(append([]*expr.Expr{}, dc.Invariants...), dc.Guard) {
		if err := solver.Assert(e); err != nil {
			return nil, err
		}
	}
	if c.old != nil {
		b := m.b
		learned, err := m.enc.GetExprMap(cl.sym.Simplify(b.And(c.old, care)), enc.DecodingMap())
		if err != nil {
			return nil, errors.Wrap(err, "decoding learned constraint")
		}
		if err := solver.Assert(learned); err != nil {
			return nil, err
		}
	}
	if cl.en, err = solver.Enumerate(enc.Exprs()); err != nil {
		return nil, err
	}
	cl.solver = solver
	return cl, nil
}

// ComputeAbstractPost enumerates the transitions of the unfinished clusters of
// c from the states in from, with at most limit cubes per cluster (no limit if
// limit <= 0). When global is true, from is the whole set of states of
// interest, and a cluster whose enumeration completes is done. An
// inconclusive solver answer makes the cluster top. The result is the
// relation found so far.
func (c *Command) ComputeAbstractPost(from dd.Node, limit int, global bool) (dd.Node, error) {
	m := c.m
	b := m.b
	gf := b.And(from, c.guard)
	if b.IsFalse(gf) {
		if global {
			for _, cl := range c.clusters {
				c.finish(cl)
			}
		}
		return c.Trans01(), nil
	}
	for _, cl := range c.clusters {
		if cl.done {
			continue
		}
		var restriction *expr.Expr
		if !b.IsTrue(gf) {
			r, err := m.enc.GetExprIte(cl.sym.Simplify(gf))
			if err != nil {
				return nil, err
			}
			restriction = r
		}
		n, complete, err := cl.en.Run(restriction, limit, cl.sym.AddTransition)
		switch {
		case abserr.IsInconclusive(err):
			m.logger.Warn("enumeration inconclusive, cluster set to top", "command", c.cmd.Label, "error", err.Error())
			m.metrics.Inc(stats.SolverUnknown)
			cl.sym.MakeTop()
			c.finish(cl)
			continue
		case err != nil:
			return nil, errors.Wrapf(err, "enumerating %s", c.cmd.Label)
		}
		m.logger.Debug("cluster enumerated", "command", c.cmd.Label, "cubes", n, "complete", complete)
		if complete && global {
			c.finish(cl)
		}
	}
	return c.Trans01(), m.enc.Err()
}

func (c *Command) finish(cl *cluster) {
	cl.done = true
	cl.close()
	if cl.key != "" {
		c.m.cache.Put(cl.key, cl)
	}
}

// Trans01 returns the relation of c computed so far, without
// nondeterministic choice variables.
func (c *Command) Trans01() dd.Node {
	b := c.m.b
	res := b.And(c.guard, c.identity())
	for _, cl := range c.clusters {
		res = b.And(res, cl.sym.Trans01())
	}
	return res
}

// identity returns the frame condition of c: for each alternative k, the
// predicates not tracked by any cluster at instance k+1 keep their value.
func (c *Command) identity() dd.Node {
	m := c.m
	b := m.b
	res := b.True()
	for k := range c.cmd.Alts {
		frame := b.True()
		for i := 0; i < m.enc.NumStateVars(); i++ {
			tracked := false
			for _, cl := range c.clusters {
				if cl.sym.Encoder().Tracks(i, k+1) {
					tracked = true
					break
				}
			}
			if !tracked {
				frame = b.And(frame, b.Equiv(b.Ithvar(m.enc.Present(i)), b.Ithvar(m.enc.Next(i))))
			}
		}
		res = b.And(res, b.Imp(m.enc.ProbChoice(k), frame))
	}
	return res
}

// Finalize assembles the relation of c. The transitions of each cluster are
// numbered with a fresh range of nondeterministic variables; the ranges are
// released, in reverse order, once the relation is built.
func (c *Command) Finalize() error {
	m := c.m
	b := m.b
	ranges := make([]*encoding.ChoiceRange, 0, len(c.clusters))
	res := b.And(c.guard, c.identity())
	var err error
	for _, cl := range c.clusters {
		var r *encoding.ChoiceRange
		if r, err = m.enc.PushNondet(cl.sym.MaximalSetSize()); err != nil {
			break
		}
		ranges = append(ranges, r)
		res = b.And(res, cl.sym.CombineTransitions(r))
	}
	c.upper = m.enc.NondetTop()
	for k := len(ranges) - 1; k >= 0; k-- {
		if rerr := ranges[k].Release(); rerr != nil && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return errors.Wrapf(err, "finalizing %s", c.cmd.Label)
	}
	// unused choice variables are set to false
	for v := c.upper; v < m.enc.NumNondet(); v++ {
		res = b.And(res, b.NIthvar(v))
	}
	c.old = c.Trans01()
	c.bdd = res
	weights := b.False()
	for k, alt := range c.cmd.Alts {
		weights = b.Plus(weights, b.Times(m.enc.ProbChoice(k), b.Constant(alt.Prob)))
	}
	c.mtbdd = b.Times(res, weights)
	if err := m.enc.Err(); err != nil {
		return errors.Wrapf(err, "finalizing %s", c.cmd.Label)
	}
	return nil
}
