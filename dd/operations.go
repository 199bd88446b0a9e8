// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"log"
	"math/big"
	"sort"
)

// Scanset returns the set of variables (levels) found when following the high
// branch of node n. This is the dual of function Makeset. The result may be nil
// if there is an error. The result follows the level order.
func (b *BDD) Scanset(n Node) []int {
	if b.checkptr(n) != nil {
		return nil
	}
	if *n < 2 {
		return nil
	}
	res := []int{}
	for i := *n; !b.isterminal(i); i = b.high(i) {
		res = append(res, int(b.level(i)))
	}
	return res
}

// Makeset returns a node corresponding to the conjunction (the cube) of all the
// variable in varset, in their positive form. It is such that
// scanset(Makeset(a)) == a. It returns nil and sets the error condition in b
// if one of the variables is outside the scope of the BDD (see documentation
// for function *Ithvar*).
func (b *BDD) Makeset(varset []int) Node {
	vars := append([]int(nil), varset...)
	sort.Sort(sort.Reverse(sort.IntSlice(vars)))
	for _, v := range vars {
		if v < 0 || int32(v) >= b.varnum {
			return b.seterror("unknown variable (%d) in call to Makeset", v)
		}
	}
	b.initref()
	res := 1
	for _, v := range vars {
		if res > 1 && int(b.level(res)) == v {
			continue
		}
		res = b.pushref(b.makenode(int32(v), 0, res))
	}
	b.initref()
	return b.retnode(res)
}

// Cube returns the conjunction of the literals in vars, where variable vars[k]
// appears positively if values[k] is true.
func (b *BDD) Cube(vars []int, values []bool) Node {
	if len(vars) != len(values) {
		return b.seterror("unmatched length of slices in call to Cube")
	}
	idx := make([]int, len(vars))
	for k := range idx {
		idx[k] = k
	}
	sort.Slice(idx, func(i, j int) bool { return vars[idx[i]] > vars[idx[j]] })
	b.initref()
	res := 1
	for _, k := range idx {
		v := vars[k]
		if v < 0 || int32(v) >= b.varnum {
			return b.seterror("unknown variable (%d) in call to Cube", v)
		}
		if values[k] {
			res = b.pushref(b.makenode(int32(v), 0, res))
		} else {
			res = b.pushref(b.makenode(int32(v), res, 0))
		}
	}
	b.initref()
	return b.retnode(res)
}

// Not returns the negation of the expression corresponding to node n. It
// negates a BDD by exchanging all references to the zero-terminal with
// references to the one-terminal and vice versa.
func (b *BDD) Not(n Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror("wrong operand in call to Not")
	}
	b.initref()
	b.pushref(*n)
	res := b.not(*n)
	b.popref(1)
	return b.retnode(res)
}

func (b *BDD) not(n int) int {
	if n == 0 {
		return 1
	}
	if n == 1 {
		return 0
	}
	if n < 0 {
		return -1
	}
	if b.isterminal(n) {
		b.seterror("negation of a non boolean terminal (%g)", b.nodes[n].value)
		return -1
	}
	// The hash for a not operation is simply n
	if res := b.matchnot(n); res >= 0 {
		return res
	}
	low := b.pushref(b.not(b.low(n)))
	high := b.pushref(b.not(b.high(n)))
	res := b.makenode(b.level(n), low, high)
	b.popref(2)
	return b.setnot(n, res)
}

// Apply performs all of the basic bdd operations with two operands, such as
// AND, OR etc. Left and right are the operand and opr is the requested
// operation and must be one of the following:
//
//  Identifier    Description             Truth table
//
//  OPand         logical and             [0,0,0,1]
//  OPxor         logical xor             [0,1,1,0]
//  OPor          logical or              [0,1,1,1]
//  OPnand        logical not-and         [1,1,1,0]
//  OPnor         logical not-or          [1,0,0,0]
//  OPimp         implication             [1,1,0,1]
//  OPbiimp       equivalence             [1,0,0,1]
//  OPdiff        set difference          [0,0,1,0]
//  OPless        less than               [0,1,0,0]
//  OPinvimp      reverse implication     [1,0,1,1]
//
// and the arithmetic operators OPplus, OPminus, OPtimes, OPmax and OPmin that
// combine the values of terminal nodes.
func (b *BDD) Apply(left Node, right Node, op Operator) Node {
	if b.checkptr(left) != nil {
		return b.seterror("wrong operand in call to Apply %s(left, right)", op)
	}
	if b.checkptr(right) != nil {
		return b.seterror("wrong operand in call to Apply %s(left, right)", op)
	}
	if op < OPand || op > OPmin {
		return b.seterror("unauthorized operation (%s) in apply", op)
	}
	b.initref()
	b.pushref(*left)
	b.pushref(*right)
	res := b.apply(op, *left, *right)
	b.popref(2)
	return b.retnode(res)
}

func (b *BDD) apply(op Operator, left int, right int) int {
	// we check for errors
	if left < 0 || right < 0 {
		if _DEBUG {
			log.Panicf("panic in apply(%d,%d,%s)\n", left, right, op)
		}
		return -1
	}
	switch op {
	case OPand:
		if left == right {
			return left
		}
		if (left == 0) || (right == 0) {
			return 0
		}
		if left == 1 {
			return right
		}
		if right == 1 {
			return left
		}
	case OPor:
		if left == right {
			return left
		}
		if (left == 1) || (right == 1) {
			return 1
		}
		if left == 0 {
			return right
		}
		if right == 0 {
			return left
		}
	case OPxor:
		if left == right {
			return 0
		}
		if left == 0 {
			return right
		}
		if right == 0 {
			return left
		}
	case OPnand:
		if (left == 0) || (right == 0) {
			return 1
		}
	case OPnor:
		if (left == 1) || (right == 1) {
			return 0
		}
	case OPimp:
		if left == 0 {
			return 1
		}
		if left == 1 {
			return right
		}
		if right == 1 {
			return 1
		}
		if left == right {
			return 1
		}
	case OPbiimp:
		if left == right {
			return 1
		}
		if left == 1 {
			return right
		}
		if right == 1 {
			return left
		}
	case OPdiff:
		if left == right {
			return 0
		}
		if (left == 0) || (right == 1) {
			return 0
		}
		if right == 0 {
			return left
		}
	case OPless:
		if (left == right) || (left == 1) || (right == 0) {
			return 0
		}
		if left == 0 {
			return right
		}
	case OPinvimp:
		if right == 0 {
			return 1
		}
		if right == 1 {
			return left
		}
		if left == 1 {
			return 1
		}
		if left == right {
			return 1
		}
	case OPplus:
		if left == 0 {
			return right
		}
		if right == 0 {
			return left
		}
	case OPminus:
		if right == 0 {
			return left
		}
		if left == right {
			return 0
		}
	case OPtimes:
		if (left == 0) || (right == 0) {
			return 0
		}
		if left == 1 {
			return right
		}
		if right == 1 {
			return left
		}
	case OPmax, OPmin:
		if left == right {
			return left
		}
	default:
		b.seterror("unauthorized operation (%s) in apply", op)
		return -1
	}
	// we deal with the other cases where the two operands are constants
	if b.isterminal(left) && b.isterminal(right) {
		if op.arithmetic() {
			return b.maketerminal(arith(op, b.nodes[left].value, b.nodes[right].value))
		}
		if left > 1 || right > 1 {
			b.seterror("boolean operation (%s) on non boolean terminals", op)
			return -1
		}
		return opres[op][left][right]
	}
	if res := b.matchapply(op, left, right); res >= 0 {
		return res
	}
	leftlvl := b.level(left)
	rightlvl := b.level(right)
	var res int
	if leftlvl == rightlvl {
		low := b.pushref(b.apply(op, b.low(left), b.low(right)))
		high := b.pushref(b.apply(op, b.high(left), b.high(right)))
		res = b.makenode(leftlvl, low, high)
	} else {
		if leftlvl < rightlvl {
			low := b.pushref(b.apply(op, b.low(left), right))
			high := b.pushref(b.apply(op, b.high(left), right))
			res = b.makenode(leftlvl, low, high)
		} else {
			low := b.pushref(b.apply(op, left, b.low(right)))
			high := b.pushref(b.apply(op, left, b.high(right)))
			res = b.makenode(rightlvl, low, high)
		}
	}
	b.popref(2)
	return b.setapply(op, left, right, res)
}

// Ite, short for if-then-else operator, computes the BDD for the expression [(f
// /\ g) \/ (not f /\ h)] more efficiently than doing the three operations
// separately. Operand f must be a boolean diagram, but g and h may have
// arbitrary terminal values.
func (b *BDD) Ite(f, g, h Node) Node {
	if b.checkptr(f) != nil {
		return b.seterror("wrong operand in call to Ite (f)")
	}
	if b.checkptr(g) != nil {
		return b.seterror("wrong operand in call to Ite (g)")
	}
	if b.checkptr(h) != nil {
		return b.seterror("wrong operand in call to Ite (h)")
	}
	b.initref()
	b.pushref(*f)
	b.pushref(*g)
	b.pushref(*h)
	res := b.ite(*f, *g, *h)
	b.popref(3)
	return b.retnode(res)
}

// iteLow returns p if p is strictly higher than q or r, otherwise it returns
// p.low. This is used in function ite to know which node to follow: we always
// follow the smallest(s) nodes.
func (b *BDD) iteLow(p, q, r int32, n int) int {
	if (p > q) || (p > r) {
		return n
	}
	return b.low(n)
}

func (b *BDD) iteHigh(p, q, r int32, n int) int {
	if (p > q) || (p > r) {
		return n
	}
	return b.high(n)
}

// min3 returns the smallest value between p, q and r. This is used in function
// ite to compute the smallest level.
func min3(p, q, r int32) int32 {
	if p <= q {
		if p <= r { // p <= q && p <= r
			return p
		}
		return r // r < p <= q
	}
	if q <= r { // q < p && q <= r
		return q
	}
	return r // r < q < p
}

func (b *BDD) ite(f, g, h int) int {
	// we check for possible errors
	if f < 0 || g < 0 || h < 0 {
		return -1
	}
	switch {
	case f == 1:
		return g
	case f == 0:
		return h
	case g == h:
		return g
	case (g == 1) && (h == 0):
		return f
	case (g == 0) && (h == 1):
		return b.not(f)
	}
	if b.isterminal(f) {
		b.seterror("non boolean condition (%g) in ite", b.nodes[f].value)
		return -1
	}
	if res := b.matchite(f, g, h); res >= 0 {
		return res
	}
	p := b.level(f)
	q := b.level(g)
	r := b.level(h)
	low := b.pushref(b.ite(b.iteLow(p, q, r, f), b.iteLow(q, p, r, g), b.iteLow(r, p, q, h)))
	high := b.pushref(b.ite(b.iteHigh(p, q, r, f), b.iteHigh(q, p, r, g), b.iteHigh(r, p, q, h)))
	res := b.makenode(min3(p, q, r), low, high)
	b.popref(2)
	return b.setite(f, g, h, res)
}

// Exist returns the existential quantification of n for the variables in
// varset, where varset is a node built with a method such as Makeset. We return
// nil and set the error flag in b if there is an error.
func (b *BDD) Exist(n, varset Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror("wrong node in call to Exist")
	}
	if b.checkptr(varset) != nil {
		return b.seterror("wrong varset in call to Exist")
	}
	if *varset < 2 { // we have an empty set or a constant
		return n
	}
	if err := b.quantset2cache(*varset); err != nil {
		return nil
	}
	b.quantid = (*varset << 3) | cacheid_EXIST
	b.initref()
	b.pushref(*n)
	b.pushref(*varset)
	res := b.quant(*n, *varset)
	b.popref(2)
	return b.retnode(res)
}

func (b *BDD) quant(n, varset int) int {
	if n < 0 {
		return -1
	}
	if b.isterminal(n) || (b.level(n) > b.quantlast) {
		return n
	}
	if res := b.matchquant(n, varset); res >= 0 {
		return res
	}
	low := b.pushref(b.quant(b.low(n), varset))
	high := b.pushref(b.quant(b.high(n), varset))
	var res int
	if b.quantset[b.level(n)] == b.quantsetID {
		res = b.apply(OPor, low, high)
	} else {
		res = b.makenode(b.level(n), low, high)
	}
	b.popref(2)
	return b.setquant(n, varset, res)
}

// AppEx applies the binary operator *op* on the two operands left and right
// then performs an existential quantification over the variables in varset.
// This is done in a bottom up manner such that both the apply and
// quantification is done on the lower nodes before stepping up to the higher
// nodes. This makes AppEx much more efficient than an apply operation followed
// by a quantification. Note that, when *op* is a conjunction, this operation
// returns the relational product of two BDDs.
func (b *BDD) AppEx(left Node, right Node, op Operator, varset Node) Node {
	if op > OPnor {
		return b.seterror("operator %s not supported in call to AppEx", op)
	}
	if b.checkptr(varset) != nil {
		return b.seterror("wrong varset in call to AppEx")
	}
	if *varset < 2 { // we have an empty set
		return b.Apply(left, right, op)
	}
	if b.checkptr(left) != nil {
		return b.seterror("wrong operand in call to AppEx %s(left)", op)
	}
	if b.checkptr(right) != nil {
		return b.seterror("wrong operand in call to AppEx %s(right)", op)
	}
	if err := b.quantset2cache(*varset); err != nil {
		return nil
	}
	b.appexop = op
	b.appexid = (*varset << 3) | int(op)
	b.quantid = (b.appexid << 3) | cacheid_APPEX
	b.initref()
	b.pushref(*left)
	b.pushref(*right)
	b.pushref(*varset)
	res := b.appquant(*left, *right, *varset)
	b.popref(3)
	return b.retnode(res)
}

func (b *BDD) appquant(left, right, varset int) int {
	// we check for errors
	if left < 0 || right < 0 {
		return -1
	}
	switch b.appexop {
	case OPand:
		if left == 0 || right == 0 {
			return 0
		}
		if left == right {
			return b.quant(left, varset)
		}
		if left == 1 {
			return b.quant(right, varset)
		}
		if right == 1 {
			return b.quant(left, varset)
		}
	case OPor:
		if left == 1 || right == 1 {
			return 1
		}
		if left == right {
			return b.quant(left, varset)
		}
		if left == 0 {
			return b.quant(right, varset)
		}
		if right == 0 {
			return b.quant(left, varset)
		}
	case OPxor:
		if left == right {
			return 0
		}
		if left == 0 {
			return b.quant(right, varset)
		}
		if right == 0 {
			return b.quant(left, varset)
		}
	case OPnand:
		if left == 0 || right == 0 {
			return 1
		}
	case OPnor:
		if left == 1 || right == 1 {
			return 0
		}
	}
	// we deal with the other cases when the two operands are constants
	if b.isterminal(left) && b.isterminal(right) {
		return opres[b.appexop][left][right]
	}
	// and the case where we have no more variables to quantify
	if (b.level(left) > b.quantlast) && (b.level(right) > b.quantlast) {
		return b.apply(b.appexop, left, right)
	}
	// next we check if the operation is already in our cache
	if res := b.matchappex(left, right); res >= 0 {
		return res
	}
	leftlvl := b.level(left)
	rightlvl := b.level(right)
	var lvl int32
	var low, high int
	switch {
	case leftlvl == rightlvl:
		lvl = leftlvl
		low = b.pushref(b.appquant(b.low(left), b.low(right), varset))
		high = b.pushref(b.appquant(b.high(left), b.high(right), varset))
	case leftlvl < rightlvl:
		lvl = leftlvl
		low = b.pushref(b.appquant(b.low(left), right, varset))
		high = b.pushref(b.appquant(b.high(left), right, varset))
	default:
		lvl = rightlvl
		low = b.pushref(b.appquant(left, b.low(right), varset))
		high = b.pushref(b.appquant(left, b.high(right), varset))
	}
	var res int
	if b.quantset[lvl] == b.quantsetID {
		res = b.apply(OPor, low, high)
	} else {
		res = b.makenode(lvl, low, high)
	}
	b.popref(2)
	return b.setappex(left, right, res)
}

// Satcount computes the number of satisfying variable assignments for the
// function denoted by n, over all the Varnum variables. We return a result
// using arbitrary-precision arithmetic to avoid possible overflows. The result
// is zero (and we set the error flag of b) if there is an error.
func (b *BDD) Satcount(n Node) *big.Int {
	res := big.NewInt(0)
	if b.checkptr(n) != nil {
		b.seterror("wrong operand in call to Satcount")
		return res
	}
	// We compute 2^level with a bit shift 1 << level
	res.SetBit(res, int(b.vlevel(*n)), 1)
	satc := make(map[int]*big.Int)
	return res.Mul(res, b.satcount(*n, satc))
}

func (b *BDD) satcount(n int, satc map[int]*big.Int) *big.Int {
	if n == 0 {
		return big.NewInt(0)
	}
	if b.isterminal(n) {
		return big.NewInt(1)
	}
	// we use satc to memoize the value of satcount for each nodes
	res, ok := satc[n]
	if ok {
		return res
	}
	level := b.level(n)
	low := b.low(n)
	high := b.high(n)
	res = big.NewInt(0)
	two := big.NewInt(0)
	two.SetBit(two, int(b.vlevel(low)-level-1), 1)
	res.Add(res, two.Mul(two, b.satcount(low, satc)))
	two = big.NewInt(0)
	two.SetBit(two, int(b.vlevel(high)-level-1), 1)
	res.Add(res, two.Mul(two, b.satcount(high, satc)))
	satc[n] = res
	return res
}

// CountMinterm returns the number of assignments of nvars variables that lead
// to a non-zero terminal, assuming the support of n is included in the first
// nvars variables.
func (b *BDD) CountMinterm(n Node, nvars int) float64 {
	if b.checkptr(n) != nil {
		b.seterror("wrong operand in call to CountMinterm")
		return 0
	}
	memo := make(map[int]float64)
	var frac func(int) float64
	frac = func(n int) float64 {
		if n == 0 {
			return 0
		}
		if b.isterminal(n) {
			return 1
		}
		if res, ok := memo[n]; ok {
			return res
		}
		res := 0.5*frac(b.low(n)) + 0.5*frac(b.high(n))
		memo[n] = res
		return res
	}
	res := frac(*n)
	for i := 0; i < nvars; i++ {
		res *= 2
	}
	return res
}

// Allsat Iterates through all legal variable assignments for n and calls the
// function f on each of them. We pass an int slice of length varnum to f where
// each entry is either  0 if the variable is false, 1 if it is true, and -1 if
// it is a don't care. We stop and return an error if f returns an error at some
// point. For MTBDD, we enumerate the paths leading to non-zero terminals.
//
// The following is an example of a callback handler that counts the number of
// possible assignments (such that we do not count don't care twice):
//
//	acc := new(int)
//	b.Allsat(n, func(varset []int) error {
//	  *acc++
//	  return nil
//	})
func (b *BDD) Allsat(n Node, f func([]int) error) error {
	if b.checkptr(n) != nil {
		return fmt.Errorf("wrong node in call to Allsat")
	}
	prof := make([]int, b.varnum)
	for k := range prof {
		prof[k] = -1
	}
	// the function does not create new nodes, so we do not need to take care of
	// possible resizing
	return b.allsat(*n, prof, f)
}

func (b *BDD) allsat(n int, prof []int, f func([]int) error) error {
	if n == 0 {
		return nil
	}
	if b.isterminal(n) {
		return f(prof)
	}
	if low := b.low(n); low != 0 {
		prof[b.level(n)] = 0
		for v := b.vlevel(low) - 1; v > b.level(n); v-- {
			prof[v] = -1
		}
		if err := b.allsat(low, prof, f); err != nil {
			return err
		}
	}
	if high := b.high(n); high != 0 {
		prof[b.level(n)] = 1
		for v := b.vlevel(high) - 1; v > b.level(n); v-- {
			prof[v] = -1
		}
		if err := b.allsat(high, prof, f); err != nil {
			return err
		}
	}
	prof[b.level(n)] = -1
	return nil
}

// Allnodes applies function f over all the nodes accessible from the nodes in
// the sequence n..., or all the active nodes if n is absent. The parameters to
// function f are the id, level, and id's of the low and high successors of each
// node. Terminal nodes have a level of -1 and are their own successors. The two
// constant nodes (True and False) have always the id 1 and 0, respectively.
func (b *BDD) Allnodes(f func(id, level, low, high int) error, n ...Node) error {
	for _, v := range n {
		if b.checkptr(v) != nil {
			return fmt.Errorf("wrong node in call to Allnodes")
		}
	}
	visit := func(k int) error {
		lvl := int(b.nodes[k].level)
		if b.isterminal(k) {
			lvl = -1
		}
		return f(k, lvl, b.nodes[k].low, b.nodes[k].high)
	}
	if err := visit(0); err != nil {
		return err
	}
	if err := visit(1); err != nil {
		return err
	}
	if len(n) == 0 {
		for k := 2; k < len(b.nodes); k++ {
			if b.nodes[k].low != -1 {
				if err := visit(k); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, v := range n {
		b.markrec(*v)
	}
	for k := 2; k < len(b.nodes); k++ {
		if b.ismarked(k) {
			b.unmarknode(k)
			if err := visit(k); err != nil {
				b.unmarkall()
				return err
			}
		}
	}
	return nil
}

// Support returns the sorted list of variables occurring in n.
func (b *BDD) Support(n Node) []int {
	if b.checkptr(n) != nil {
		return nil
	}
	seen := make(map[int]bool)
	levels := make(map[int]bool)
	var rec func(int)
	rec = func(n int) {
		if b.isterminal(n) || seen[n] {
			return
		}
		seen[n] = true
		levels[int(b.level(n))] = true
		rec(b.low(n))
		rec(b.high(n))
	}
	rec(*n)
	res := make([]int, 0, len(levels))
	for v := range levels {
		res = append(res, v)
	}
	sort.Ints(res)
	return res
}

// Nodecount returns the number of internal and terminal nodes reachable from n,
// constants excluded.
func (b *BDD) Nodecount(n Node) int {
	if b.checkptr(n) != nil {
		return 0
	}
	res := b.markcount(*n)
	b.unmarkall()
	return res
}
