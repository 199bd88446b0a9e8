// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import "fmt"

// Isop returns an irredundant sum-of-products cover of the boolean diagram n.
// Each cube is a slice of length Varnum where an entry is 0 for a negative
// literal, 1 for a positive literal, and -1 if the variable does not occur in
// the cube. The disjunction of the cubes is equivalent to n.
func (b *BDD) Isop(n Node) ([][]int, error) {
	if err := b.checkptr(n); err != nil {
		return nil, err
	}
	if b.isterminal(*n) && *n > 1 {
		return nil, fmt.Errorf("cover of a non boolean diagram")
	}
	memo := make(map[[2]int]isopResult)
	res, err := b.isop(n, n, memo)
	if err != nil {
		return nil, err
	}
	cubes := make([][]int, len(res.cubes))
	for k, c := range res.cubes {
		cube := make([]int, b.varnum)
		for v := range cube {
			cube[v] = -1
		}
		for _, lit := range c {
			if lit < 0 {
				cube[-lit-1] = 0
			} else {
				cube[lit-1] = 1
			}
		}
		cubes[k] = cube
	}
	return cubes, nil
}

// isopResult is a cover as a list of cubes, where a cube is a list of literals
// (v+1 for variable v and -(v+1) for its negation), together with the
// diagram of the cover.
type isopResult struct {
	cubes        [][]int
	cover        Node
	lower, upper Node // keep the memo keys alive
}

func (b *BDD) cofactors(n Node, v int) (Node, Node) {
	if b.isterminal(*n) || int(b.level(*n)) != v {
		return n, n
	}
	return b.Low(n), b.High(n)
}

// isop computes a cover c such that lower => c => upper.
func (b *BDD) isop(lower, upper Node, memo map[[2]int]isopResult) (isopResult, error) {
	if lower == nil || upper == nil {
		return isopResult{}, b.error
	}
	if *lower == 0 {
		return isopResult{cover: bddzero}, nil
	}
	if *upper == 1 {
		return isopResult{cubes: [][]int{{}}, cover: bddone}, nil
	}
	if res, ok := memo[[2]int{*lower, *upper}]; ok {
		return res, nil
	}
	v := int(b.vlevel(*lower))
	if w := int(b.vlevel(*upper)); w < v {
		v = w
	}
	l0, l1 := b.cofactors(lower, v)
	u0, u1 := b.cofactors(upper, v)
	r0, err := b.isop(b.Diff(l0, u1), u0, memo)
	if err != nil {
		return isopResult{}, err
	}
	r1, err := b.isop(b.Diff(l1, u0), u1, memo)
	if err != nil {
		return isopResult{}, err
	}
	lstar := b.Or(b.Diff(l0, r0.cover), b.Diff(l1, r1.cover))
	rstar, err := b.isop(lstar, b.And(u0, u1), memo)
	if err != nil {
		return isopResult{}, err
	}
	res := isopResult{}
	for _, c := range r0.cubes {
		res.cubes = append(res.cubes, append([]int{-(v + 1)}, c...))
	}
	for _, c := range r1.cubes {
		res.cubes = append(res.cubes, append([]int{v + 1}, c...))
	}
	res.cubes = append(res.cubes, rstar.cubes...)
	res.cover = b.Or(
		b.And(b.NIthvar(v), r0.cover),
		b.And(b.Ithvar(v), r1.cover),
		rstar.cover)
	if res.cover == nil {
		return isopResult{}, b.error
	}
	res.lower, res.upper = lower, upper
	memo[[2]int{*lower, *upper}] = res
	return res, nil
}

// Restrict returns the cofactor of n with respect to cube, meaning the diagram
// obtained by fixing the value of the variables in cube. Parameter cube must be
// a conjunction of literals, such as the result of Cube or Makeset. Diagram n
// may have arbitrary terminals.
func (b *BDD) Restrict(n, cube Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror("wrong operand in call to Restrict")
	}
	if b.checkptr(cube) != nil {
		return b.seterror("wrong cube in call to Restrict")
	}
	if *cube == 0 {
		return b.seterror("empty cube in call to Restrict")
	}
	assign := make(map[int32]bool)
	for k := *cube; !b.isterminal(k); {
		switch {
		case b.low(k) == 0:
			assign[b.level(k)] = true
			k = b.high(k)
		case b.high(k) == 0:
			assign[b.level(k)] = false
			k = b.low(k)
		default:
			return b.seterror("argument of Restrict is not a cube")
		}
	}
	b.initref()
	b.pushref(*n)
	b.pushref(*cube)
	memo := make(map[int]int)
	res := b.restrict(*n, assign, memo)
	b.initref()
	return b.retnode(res)
}

func (b *BDD) restrict(n int, assign map[int32]bool, memo map[int]int) int {
	if n < 0 {
		return -1
	}
	if b.isterminal(n) {
		return n
	}
	if v, ok := assign[b.level(n)]; ok {
		if v {
			return b.restrict(b.high(n), assign, memo)
		}
		return b.restrict(b.low(n), assign, memo)
	}
	if res, ok := memo[n]; ok {
		return res
	}
	low := b.pushref(b.restrict(b.low(n), assign, memo))
	high := b.pushref(b.restrict(b.high(n), assign, memo))
	res := b.makenode(b.level(n), low, high)
	b.popref(2)
	if res >= 0 {
		// memoized results must survive garbage collections
		b.pushref(res)
		memo[n] = res
	}
	return res
}
