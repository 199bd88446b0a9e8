// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package abs

import (
	"io"
	"log/slog"

	"github.com/dalzilio/pcegar/dd"
	"github.com/dalzilio/pcegar/stats"
)

type configs struct {
	limit       int  // enumeration limit of the global phase
	incremental bool // switch to on-the-fly exploration when the limit is hit
	cartesian   bool
	nondetBits  int
	expensive   bool
	deadlocks   bool
	ddopts      []dd.Option
	logger      *slog.Logger
	metrics     *stats.Metrics
}

func makeconfigs() *configs {
	return &configs{
		limit:       500,
		incremental: true,
		nondetBits:  20,
		deadlocks:   true,
		ddopts:      []dd.Option{dd.Nodesize(10000), dd.Cachesize(10000)},
	}
}

// Option is a configuration option for abstract models.
type Option func(*configs)

// EnumerationLimit sets the maximal number of cubes enumerated for a cluster
// over the whole abstract state space before switching to on-the-fly
// exploration. The default is 500.
func EnumerationLimit(n int) Option {
	return func(c *configs) {
		c.limit = n
	}
}

// Incremental enables (the default) or disables on-the-fly exploration. When
// disabled, the enumeration of every cluster always runs to completion.
func Incremental(on bool) Option {
	return func(c *configs) {
		c.incremental = on
	}
}

// Cartesian computes one cluster per modified predicate.
func Cartesian() Option {
	return func(c *configs) {
		c.cartesian = true
	}
}

// NondetBits sets the number of decision diagram variables reserved for the
// nondeterministic choices of the commands. The default is 20.
func NondetBits(n int) Option {
	return func(c *configs) {
		c.nondetBits = n
	}
}

// Expensive enables prover based redundancy checks for new predicates.
func Expensive() Option {
	return func(c *configs) {
		c.expensive = true
	}
}

// FixDeadlocks enables (the default) or disables the addition of self-loops on
// reachable states without successors.
func FixDeadlocks(on bool) Option {
	return func(c *configs) {
		c.deadlocks = on
	}
}

// Diagrams passes sizing options to the decision diagrams of the model. They
// apply after the defaults, a node table and caches of 10000 entries.
func Diagrams(opts ...dd.Option) Option {
	return func(c *configs) {
		c.ddopts = append(c.ddopts, opts...)
	}
}

// WithLogger sets the logger of the model.
func WithLogger(l *slog.Logger) Option {
	return func(c *configs) {
		c.logger = l
	}
}

// WithMetrics sets the counters updated by the model.
func WithMetrics(m *stats.Metrics) Option {
	return func(c *configs) {
		c.metrics = m
	}
}

func (c *configs) setdefaults() {
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
