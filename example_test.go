// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pcegar_test

import (
	"fmt"

	"github.com/dalzilio/pcegar"
	"github.com/dalzilio/pcegar/expr"
	"github.com/dalzilio/pcegar/lang"
)

// This example shows the basic usage of the package: describe a program with
// guarded commands, and compute the maximal probability to reach a state.
func Example_basic() {
	x := expr.IntVar("x")
	// A coin is flipped once: x becomes 1 or 2 with equal probabilities.
	model := &lang.Model{
		Vars: []lang.Var{{Name: "x", Kind: lang.IntKind, Lo: 0, Hi: 2}},
		Init: expr.Eq(x, expr.Int(0)),
		Commands: []lang.Command{{
			Label: "flip",
			Guard: expr.Eq(x, expr.Int(0)),
			Alts: []lang.Alternative{
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Int(1)}}},
				{Prob: 0.5, Updates: []lang.Update{{Var: "x", Value: expr.Int(2)}}},
			},
		}},
	}
	res, err := pcegar.Check(model, lang.Property{Target: expr.Eq(x, expr.Int(1))})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res)
	// Output:
	// [0.5, 0.5]
}
