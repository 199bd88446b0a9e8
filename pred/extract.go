// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pred

import (
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
	"github.com/pkg/errors"
)

// Extract returns the initial set of predicates for checking property p on
// model m. It collects the atoms of the user hints, of the property target, of
// the initial condition and of every guard, in this order. With the
// ValueBlasting option, integer variables with a small range also contribute
// one predicate per value.
func Extract(m *lang.Model, p lang.Property, opts ...Option) (*Set, error) {
	s := NewSet(opts...)
	add := func(where string, es ...*expr.Expr) error {
		for _, a := range expr.Atoms(es...) {
			if _, _, err := s.Add(a); err != nil {
				return errors.Wrapf(err, "extracting predicates from %s", where)
			}
		}
		return nil
	}
	if err := add("hints", m.Predicates...); err != nil {
		return nil, err
	}
	if s.valueBlast > 0 {
		for _, v := range m.Vars {
			if v.Kind != lang.IntKind || v.Hi-v.Lo+1 > s.valueBlast {
				continue
			}
			x := v.Expr()
			for k := v.Lo; k <= v.Hi; k++ {
				if _, _, err := s.Add(expr.Eq(x, expr.Int(k))); err != nil {
					return nil, errors.Wrapf(err, "value blasting %s", v.Name)
				}
			}
		}
	}
	if err := add("property", p.Target); err != nil {
		return nil, err
	}
	if err := add("initial condition", m.Init); err != nil {
		return nil, err
	}
	for _, c := range m.Commands {
		if err := add("command "+c.Label, c.Guard); err != nil {
			return nil, err
		}
	}
	s.logger.Info("predicates extracted", "count", s.Len())
	return s, nil
}
