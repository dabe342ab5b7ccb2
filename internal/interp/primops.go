package interp

import (
	"fmt"

	"github.com/evalnet/machined/pkg/value"
)

// primops is the fixed table of builtin procedures, resolved by symbol
// name when a list's head is not a special form. Each entry receives its
// already-evaluated arguments.
var primops = map[string]func([]value.Value) (value.Value, error){
	"+": numFold(0, func(acc, v float64) float64 { return acc + v }),
	"*": numFold(1, func(acc, v float64) float64 { return acc * v }),
	"-": func(args []value.Value) (value.Value, error) {
		nums, err := numbers(args)
		if err != nil {
			return value.Nil(), err
		}
		switch len(nums) {
		case 0:
			return value.Nil(), fmt.Errorf("- expects at least 1 argument")
		case 1:
			return value.Number(-nums[0]), nil
		default:
			acc := nums[0]
			for _, n := range nums[1:] {
				acc -= n
			}
			return value.Number(acc), nil
		}
	},
	"/": func(args []value.Value) (value.Value, error) {
		nums, err := numbers(args)
		if err != nil {
			return value.Nil(), err
		}
		if len(nums) < 2 {
			return value.Nil(), fmt.Errorf("/ expects at least 2 arguments")
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			if n == 0 {
				return value.Nil(), fmt.Errorf("division by zero")
			}
			acc /= n
		}
		return value.Number(acc), nil
	},
	"=": func(args []value.Value) (value.Value, error) {
		for i := 1; i < len(args); i++ {
			if !value.Equal(args[0], args[i]) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	},
	"<":  numCompare(func(a, b float64) bool { return a < b }),
	">":  numCompare(func(a, b float64) bool { return a > b }),
	"<=": numCompare(func(a, b float64) bool { return a <= b }),
	">=": numCompare(func(a, b float64) bool { return a >= b }),
	"cons": func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Nil(), fmt.Errorf("cons expects exactly 2 arguments")
		}
		if args[1].Kind() != value.KindList {
			return value.Nil(), fmt.Errorf("cons expects a list as its second argument")
		}
		return value.ListOf(append([]value.Value{args[0]}, args[1].List()...)), nil
	},
	"car": func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind() != value.KindList {
			return value.Nil(), fmt.Errorf("car expects exactly 1 list argument")
		}
		items := args[0].List()
		if len(items) == 0 {
			return value.Nil(), fmt.Errorf("car of empty list")
		}
		return items[0], nil
	},
	"cdr": func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind() != value.KindList {
			return value.Nil(), fmt.Errorf("cdr expects exactly 1 list argument")
		}
		items := args[0].List()
		if len(items) == 0 {
			return value.Nil(), fmt.Errorf("cdr of empty list")
		}
		return value.ListOf(items[1:]), nil
	},
	"count": func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind() != value.KindList {
			return value.Nil(), fmt.Errorf("count expects exactly 1 list argument")
		}
		return value.Number(float64(len(args[0].List()))), nil
	},
	"not": func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Nil(), fmt.Errorf("not expects exactly 1 argument")
		}
		falsy := args[0].Kind() == value.KindNil || (args[0].Kind() == value.KindBool && !args[0].Bool())
		return value.Bool(falsy), nil
	},
}

func numbers(args []value.Value) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		if a.Kind() != value.KindNumber {
			return nil, fmt.Errorf("expected a number, got %s", a)
		}
		nums[i] = a.Number()
	}
	return nums, nil
}

func numFold(seed float64, step func(acc, v float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		nums, err := numbers(args)
		if err != nil {
			return value.Nil(), err
		}
		acc := seed
		for _, n := range nums {
			acc = step(acc, n)
		}
		return value.Number(acc), nil
	}
}

func numCompare(cmp func(a, b float64) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		nums, err := numbers(args)
		if err != nil {
			return value.Nil(), err
		}
		for i := 1; i < len(nums); i++ {
			if !cmp(nums[i-1], nums[i]) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	}
}
