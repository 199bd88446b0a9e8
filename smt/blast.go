// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package smt

import (
	"math"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// maxWidth is the largest bit-vector width used for integer expressions.
const maxWidth = 62

// bv is a two's complement bit-vector, least significant bit first, together
// with an interval containing all the values it can take.
type bv struct {
	bits   []z.Lit
	lo, hi int64
}

// signedWidth returns the smallest width w such that [lo, hi] is included in
// [-2^(w-1), 2^(w-1)-1].
func signedWidth(lo, hi int64) int {
	for w := 1; w < 64; w++ {
		min := -(int64(1) << (w - 1))
		max := (int64(1) << (w - 1)) - 1
		if lo >= min && hi <= max {
			return w
		}
	}
	return 64
}

// blaster translates integer terms into circuits.
type blaster struct {
	c *logic.C
}

func (b *blaster) constant(v int64) bv {
	w := signedWidth(v, v)
	bits := make([]z.Lit, w)
	for k := range bits {
		if (v>>k)&1 == 1 {
			bits[k] = b.c.T
		} else {
			bits[k] = b.c.F
		}
	}
	return bv{bits: bits, lo: v, hi: v}
}

// input returns fresh inputs for a variable in [lo, hi], together with the
// constraint that the value stays in range.
func (b *blaster) input(lo, hi int64) (bv, z.Lit) {
	w := signedWidth(lo, hi)
	bits := make([]z.Lit, w)
	for k := range bits {
		bits[k] = b.c.Lit()
	}
	x := bv{bits: bits, lo: lo, hi: hi}
	inrange := b.c.And(b.le(b.constant(lo), x), b.le(x, b.constant(hi)))
	return x, inrange
}

// extend returns the sign extension of x to width w.
func (b *blaster) extend(x bv, w int) []z.Lit {
	if len(x.bits) >= w {
		return x.bits[:w]
	}
	res := make([]z.Lit, w)
	copy(res, x.bits)
	sign := x.bits[len(x.bits)-1]
	for k := len(x.bits); k < w; k++ {
		res[k] = sign
	}
	return res
}

func checkRange(lo, hi int64) error {
	if lo < -(int64(1)<<maxWidth) || hi > (int64(1)<<maxWidth) {
		return errors.Errorf("integer overflow: interval [%d, %d] too large", lo, hi)
	}
	return nil
}

func (b *blaster) add(x, y bv) (bv, error) {
	lo, hi := x.lo+y.lo, x.hi+y.hi
	if err := checkRange(lo, hi); err != nil {
		return bv{}, err
	}
	w := signedWidth(lo, hi)
	if lx := len(x.bits); lx > w {
		w = lx
	}
	if ly := len(y.bits); ly > w {
		w = ly
	}
	xs, ys := b.extend(x, w), b.extend(y, w)
	res := make([]z.Lit, w)
	carry := b.c.F
	for k := 0; k < w; k++ {
		s := b.c.Xor(xs[k], ys[k])
		res[k] = b.c.Xor(s, carry)
		carry = b.c.Or(b.c.And(xs[k], ys[k]), b.c.And(s, carry))
	}
	return b.trim(bv{bits: res, lo: lo, hi: hi}), nil
}

func (b *blaster) neg(x bv) (bv, error) {
	lo, hi := -x.hi, -x.lo
	w := signedWidth(lo, hi)
	if len(x.bits) > w {
		w = len(x.bits)
	}
	xs := b.extend(x, w)
	res := make([]z.Lit, w)
	carry := b.c.T
	for k := 0; k < w; k++ {
		nb := xs[k].Not()
		res[k] = b.c.Xor(nb, carry)
		carry = b.c.And(nb, carry)
	}
	return b.trim(bv{bits: res, lo: lo, hi: hi}), nil
}

func (b *blaster) sub(x, y bv) (bv, error) {
	ny, err := b.neg(y)
	if err != nil {
		return bv{}, err
	}
	return b.add(x, ny)
}

func (b *blaster) mul(x, y bv) (bv, error) {
	cands := []float64{
		float64(x.lo) * float64(y.lo), float64(x.lo) * float64(y.hi),
		float64(x.hi) * float64(y.lo), float64(x.hi) * float64(y.hi),
	}
	flo, fhi := math.Inf(1), math.Inf(-1)
	for _, v := range cands {
		flo, fhi = math.Min(flo, v), math.Max(fhi, v)
	}
	if flo < -math.Ldexp(1, maxWidth) || fhi > math.Ldexp(1, maxWidth) {
		return bv{}, errors.Errorf("integer overflow in product")
	}
	lo, hi := int64(flo), int64(fhi)
	w := signedWidth(lo, hi)
	if len(x.bits) > w {
		w = len(x.bits)
	}
	if len(y.bits) > w {
		w = len(y.bits)
	}
	xs, ys := b.extend(x, w), b.extend(y, w)
	acc := make([]z.Lit, w)
	for k := range acc {
		acc[k] = b.c.F
	}
	// shift-and-add, modulo 2^w
	for i := 0; i < w; i++ {
		carry := b.c.F
		for k := i; k < w; k++ {
			p := b.c.And(xs[k-i], ys[i])
			s := b.c.Xor(acc[k], p)
			nacc := b.c.Xor(s, carry)
			carry = b.c.Or(b.c.And(acc[k], p), b.c.And(s, carry))
			acc[k] = nacc
		}
	}
	return b.trim(bv{bits: acc, lo: lo, hi: hi}), nil
}

func (b *blaster) ite(c z.Lit, x, y bv) bv {
	lo, hi := x.lo, x.hi
	if y.lo < lo {
		lo = y.lo
	}
	if y.hi > hi {
		hi = y.hi
	}
	w := len(x.bits)
	if len(y.bits) > w {
		w = len(y.bits)
	}
	xs, ys := b.extend(x, w), b.extend(y, w)
	res := make([]z.Lit, w)
	for k := range res {
		res[k] = b.c.Choice(c, xs[k], ys[k])
	}
	return b.trim(bv{bits: res, lo: lo, hi: hi})
}

// trim drops the high bits that are not needed to represent [lo, hi].
func (b *blaster) trim(x bv) bv {
	w := signedWidth(x.lo, x.hi)
	if w < len(x.bits) {
		x.bits = x.bits[:w]
	}
	return x
}

func (b *blaster) eq(x, y bv) z.Lit {
	w := len(x.bits)
	if len(y.bits) > w {
		w = len(y.bits)
	}
	xs, ys := b.extend(x, w), b.extend(y, w)
	res := b.c.T
	for k := 0; k < w; k++ {
		res = b.c.And(res, b.c.Xor(xs[k], ys[k]).Not())
	}
	return res
}

// lt compares x and y by computing the sign of x - y on a width large enough
// to avoid overflows.
func (b *blaster) lt(x, y bv) z.Lit {
	w := len(x.bits)
	if len(y.bits) > w {
		w = len(y.bits)
	}
	w++
	xs, ys := b.extend(x, w), b.extend(y, w)
	// x - y = x + ~y + 1
	carry := b.c.T
	var diff z.Lit
	for k := 0; k < w; k++ {
		ny := ys[k].Not()
		s := b.c.Xor(xs[k], ny)
		diff = b.c.Xor(s, carry)
		carry = b.c.Or(b.c.And(xs[k], ny), b.c.And(s, carry))
	}
	return diff
}

func (b *blaster) le(x, y bv) z.Lit {
	return b.lt(y, x).Not()
}
