// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import "math"

// Operator describe the potential (binary) operations available on an Apply.
// Only operators OPand to OPnor can be used in AppEx. Operators OPplus to OPmin
// are arithmetic operations over the values of terminal nodes.
type Operator int

const (
	OPand    Operator = iota // Boolean conjunction
	OPxor                    // Exclusive or
	OPor                     // Disjunction
	OPnand                   // Negation of and
	OPnor                    // Negation of or
	OPimp                    // Implication
	OPbiimp                  // Equivalence
	OPdiff                   // Difference
	OPless                   // Set difference
	OPinvimp                 // Reverse implication
	OPplus                   // Sum of terminal values
	OPminus                  // Difference of terminal values
	OPtimes                  // Product of terminal values
	OPmax                    // Maximum of terminal values
	OPmin                    // Minimum of terminal values
	op_not                   // Negation. Should not be used in apply, but used in caches
)

var opnames = [...]string{
	OPand:    "and",
	OPxor:    "xor",
	OPor:     "or",
	OPnand:   "nand",
	OPnor:    "nor",
	OPimp:    "imp",
	OPbiimp:  "biimp",
	OPdiff:   "diff",
	OPless:   "less",
	OPinvimp: "invimp",
	OPplus:   "plus",
	OPminus:  "minus",
	OPtimes:  "times",
	OPmax:    "max",
	OPmin:    "min",
	op_not:   "not",
}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(opnames) {
		return "unknown"
	}
	return opnames[op]
}

func (op Operator) arithmetic() bool {
	return op >= OPplus && op <= OPmin
}

var opres = [10][2][2]int{
	//                      00    01               10    11
	OPand:    {0: [2]int{0: 0, 1: 0}, 1: [2]int{0: 0, 1: 1}}, // 0001
	OPxor:    {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 1, 1: 0}}, // 0110
	OPor:     {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 1, 1: 1}}, // 0111
	OPnand:   {0: [2]int{0: 1, 1: 1}, 1: [2]int{0: 1, 1: 0}}, // 1110
	OPnor:    {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 0, 1: 0}}, // 1000
	OPimp:    {0: [2]int{0: 1, 1: 1}, 1: [2]int{0: 0, 1: 1}}, // 1101
	OPbiimp:  {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 0, 1: 1}}, // 1001
	OPdiff:   {0: [2]int{0: 0, 1: 0}, 1: [2]int{0: 1, 1: 0}}, // 0010
	OPless:   {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 0, 1: 0}}, // 0100
	OPinvimp: {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 1, 1: 1}}, // 1011
}

// arith computes the result of an arithmetic operator on terminal values.
func arith(op Operator, x, y float64) float64 {
	switch op {
	case OPplus:
		return x + y
	case OPminus:
		return x - y
	case OPtimes:
		return x * y
	case OPmax:
		return math.Max(x, y)
	case OPmin:
		return math.Min(x, y)
	}
	return math.NaN()
}
