// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

// Constant returns the terminal node with value v. Constant(0) and Constant(1)
// are the same nodes as False and True.
func (b *BDD) Constant(v float64) Node {
	return b.retnode(b.maketerminal(v))
}

// IsTerminal reports whether n is a terminal node.
func (b *BDD) IsTerminal(n Node) bool {
	if b.checkptr(n) != nil {
		return false
	}
	return b.isterminal(*n)
}

// Value returns the value of terminal node n. The boolean is false if n is not
// a terminal.
func (b *BDD) Value(n Node) (float64, bool) {
	if b.checkptr(n) != nil || !b.isterminal(*n) {
		return 0, false
	}
	return b.nodes[*n].value, true
}

// Plus returns the pointwise sum of a sequence of diagrams.
func (b *BDD) Plus(n ...Node) Node {
	res := b.False()
	for _, v := range n {
		res = b.Apply(res, v, OPplus)
	}
	return res
}

// Times returns the pointwise product of two diagrams. When n1 is a boolean
// diagram, this is the restriction of n2 to the support of n1.
func (b *BDD) Times(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPtimes)
}

// Minus returns the pointwise difference of two diagrams.
func (b *BDD) Minus(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPminus)
}

// Max returns the pointwise maximum of two diagrams.
func (b *BDD) Max(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPmax)
}

// Min returns the pointwise minimum of two diagrams.
func (b *BDD) Min(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPmin)
}

// Eval returns the value of n for the assignment values, indexed by variable.
// Variables above len(values) are considered false.
func (b *BDD) Eval(n Node, values []bool) (float64, error) {
	if err := b.checkptr(n); err != nil {
		return 0, err
	}
	k := *n
	for !b.isterminal(k) {
		lvl := int(b.level(k))
		if lvl < len(values) && values[lvl] {
			k = b.high(k)
		} else {
			k = b.low(k)
		}
	}
	return b.nodes[k].value, nil
}

// Terminals returns the values of the terminal nodes reachable from n.
func (b *BDD) Terminals(n Node) []float64 {
	if b.checkptr(n) != nil {
		return nil
	}
	seen := make(map[int]bool)
	res := []float64{}
	var rec func(int)
	rec = func(k int) {
		if seen[k] {
			return
		}
		seen[k] = true
		if b.isterminal(k) {
			res = append(res, b.nodes[k].value)
			return
		}
		rec(b.low(k))
		rec(b.high(k))
	}
	rec(*n)
	return res
}
