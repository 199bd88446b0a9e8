// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pcegar

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dalzilio/pcegar/abs"
	"github.com/dalzilio/pcegar/abserr"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/game"
	"github.com/dalzilio/pcegar/lang"
	"github.com/dalzilio/pcegar/pred"
	"github.com/dalzilio/pcegar/smt"
	"github.com/dalzilio/pcegar/stats"
	"github.com/pkg/errors"
)

// maxChoiceSets bounds the number of choice sets built for a single abstract
// state before falling back to one choice set per distribution.
const maxChoiceSets = 64

type configs struct {
	logger     *slog.Logger
	metrics    *stats.Metrics
	factory    smt.Factory
	valueBlast int64
	expensive  bool
	absopts    []abs.Option
	gameopts   []game.Option
}

// Option is a configuration option for Check.
type Option func(*configs)

// WithLogger sets the logger used by every layer of the engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *configs) {
		c.logger = l
	}
}

// WithMetrics sets the counters updated by every layer of the engine.
func WithMetrics(m *stats.Metrics) Option {
	return func(c *configs) {
		c.metrics = m
	}
}

// WithSolver selects the solver back end. The default is smt.GiniFactory.
func WithSolver(f smt.Factory) Option {
	return func(c *configs) {
		c.factory = f
	}
}

// ValueBlasting adds one predicate per value for integer variables with at
// most max values.
func ValueBlasting(max int64) Option {
	return func(c *configs) {
		c.valueBlast = max
	}
}

// Expensive enables prover based redundancy checks for new predicates.
func Expensive() Option {
	return func(c *configs) {
		c.expensive = true
	}
}

// AbstractionOptions forwards options to the abstraction (package abs).
func AbstractionOptions(opts ...abs.Option) Option {
	return func(c *configs) {
		c.absopts = append(c.absopts, opts...)
	}
}

// GameOptions forwards options to the refinement loop (package game).
func GameOptions(opts ...game.Option) Option {
	return func(c *configs) {
		c.gameopts = append(c.gameopts, opts...)
	}
}

// Result gives the bounds found for a property, with some statistics.
type Result struct {
	Min        float64
	Max        float64
	Iterations int // rounds of the refinement loop
	Rounds     int // abstractions computed
	Splits     int
	Paths      int // paths to the goal analyzed
	Predicates int
	States     int // reachable abstract states of the last abstraction
}

func (r Result) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

func checkProperty(m *lang.Model, p lang.Property) error {
	if p.Target == nil || p.Target.Type() != expr.BoolType {
		return abserr.Errorf(abserr.Malformed, "property", "target is not a boolean expression")
	}
	for _, v := range expr.Vars(p.Target) {
		if _, ok := m.Lookup(v); !ok {
			return abserr.Errorf(abserr.Malformed, "property", "undeclared variable %s", v)
		}
	}
	return nil
}

// Check computes bounds on the probability of property p for model m.
func Check(m *lang.Model, p lang.Property, opts ...Option) (Result, error) {
	cfg := &configs{}
	for _, f := range opts {
		f(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.factory == nil {
		cfg.factory = smt.GiniFactory(smt.WithMetrics(cfg.metrics))
	}
	if err := m.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "invalid model")
	}
	if err := checkProperty(m, p); err != nil {
		return Result{}, err
	}
	cfg.logger.Info("checking property", "property", p.String())

	popts := []pred.Option{pred.WithLogger(cfg.logger), pred.WithMetrics(cfg.metrics), pred.ValueBlasting(cfg.valueBlast)}
	preds, err := pred.Extract(m, p, popts...)
	if err != nil {
		return Result{}, err
	}
	aopts := []abs.Option{abs.WithLogger(cfg.logger), abs.WithMetrics(cfg.metrics)}
	if cfg.expensive {
		aopts = append(aopts, abs.Expensive())
	}
	am, err := abs.New(m, cfg.factory, append(aopts, cfg.absopts...)...)
	if err != nil {
		return Result{}, err
	}
	if err := am.Refine(preds.Exprs()); err != nil {
		return Result{}, errors.Wrap(err, "computing abstraction")
	}
	g, states, err := export(am, p.Target)
	if err != nil {
		return Result{}, err
	}

	hook := func(es []*expr.Expr) (*game.Graph, error) {
		n := am.Predicates().Len()
		if err := am.Refine(es); err != nil {
			return nil, err
		}
		if am.Predicates().Len() == n {
			return nil, nil
		}
		ng, ns, err := export(am, p.Target)
		if err != nil {
			return nil, err
		}
		states = ns
		return ng, nil
	}
	gopts := []game.Option{game.WithLogger(cfg.logger), game.WithMetrics(cfg.metrics)}
	gopts = append(append(gopts, cfg.gameopts...), game.OnPredicates(hook))
	gr, err := game.NewLazy(g, m, cfg.factory, gopts...).Run(p.Min)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Min:        gr.Min,
		Max:        gr.Max,
		Iterations: gr.Iterations,
		Rounds:     am.Rounds(),
		Splits:     gr.Splits,
		Paths:      gr.Paths,
		Predicates: am.Predicates().Len(),
		States:     states,
	}
	cfg.metrics.Set(stats.Predicates, float64(res.Predicates))
	cfg.logger.Info("property checked", "property", p.String(), "result", res.String(), "predicates", res.Predicates)
	return res, nil
}

// export builds the game graph of the current abstraction of am.
func export(am *abs.Model, target *expr.Expr) (*game.Graph, int, error) {
	ex, err := am.Explicit(target)
	if err != nil {
		return nil, 0, errors.Wrap(err, "exporting abstraction")
	}
	return buildGraph(ex), len(ex.States), nil
}

// buildGraph returns the game graph of ex. The choice sets of a state are all
// the combinations of one distribution per command, where a command whose
// guard may not hold on the whole region can also be missing.
func buildGraph(ex *abs.Explicit) *game.Graph {
	g := game.New()
	for _, st := range ex.States {
		s := g.AddState(st.Region)
		if st.Init {
			g.AddInit(s)
		}
		if st.Goal {
			g.AddGoal(s)
		}
	}
	for k, st := range ex.States {
		if st.Goal {
			continue
		}
		addChoiceSets(g, game.State(k), st.Choices)
	}
	return g
}

func addChoiceSets(g *game.Graph, s game.State, choices []abs.Choice) {
	opts := make([][]game.Distribution, len(choices))
	all := []game.Distribution{}
	n := 1
	for k, ch := range choices {
		for _, d := range ch.Distributions {
			gd := g.CreateDistribution(ch.Command)
			for j, t := range d.Succ {
				g.AddProbChoice(gd, game.State(t), d.Prob[j])
			}
			opts[k] = append(opts[k], gd)
			all = append(all, gd)
		}
		if !ch.Must {
			opts[k] = append(opts[k], -1)
		}
		if n <= maxChoiceSets {
			n *= len(opts[k])
		}
	}
	if n > maxChoiceSets {
		for _, d := range all {
			c := g.CreateChoiceSet()
			g.AddChoiceSet(s, c)
			g.AddDistribution(c, d)
		}
		return
	}
	loop := game.Distribution(-1)
	for i := 0; i < n; i++ {
		c := g.CreateChoiceSet()
		j := i
		for k := range opts {
			if d := opts[k][j%len(opts[k])]; d >= 0 {
				g.AddDistribution(c, d)
			}
			j /= len(opts[k])
		}
		if len(g.Distributions(c)) == 0 {
			// no command enabled
			if loop < 0 {
				loop = g.CreateDistribution(-1)
				g.AddProbChoice(loop, s, 1)
			}
			g.AddDistribution(c, loop)
		}
		g.AddChoiceSet(s, c)
	}
}
