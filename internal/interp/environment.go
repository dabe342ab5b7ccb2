package interp

import (
	"fmt"

	"github.com/evalnet/machined/pkg/value"
)

// environment is the interpreter's private representation of State. It is
// never shared between two States: fork() always copies the variable
// table, so two States can diverge without aliasing.
type environment struct {
	vars       map[string]value.Value
	historyLen int
}

func newRootEnvironment() *environment {
	return &environment{vars: map[string]value.Value{}}
}

// fork returns a shallow copy suitable for a single Eval call: mutations
// (define) land in the copy, leaving the original state's map untouched
// until the copy is installed as the new State.
func (e *environment) fork() *environment {
	cp := make(map[string]value.Value, len(e.vars))
	for k, v := range e.vars {
		cp[k] = v
	}
	return &environment{vars: cp, historyLen: e.historyLen}
}

// eval is the pure fold at the heart of the Interpreter collaborator.
// Numbers, strings, booleans and nil autoquote (scenario 1: eval on an
// integer returns the integer). Symbols resolve against the variable
// table. Lists are either a special form (quote, if, define) or a
// primop application.
func (e *environment) eval(expr value.Value) (value.Value, error) {
	switch expr.Kind() {
	case value.KindNil, value.KindBool, value.KindNumber, value.KindString:
		return expr, nil
	case value.KindSymbol:
		return e.evalSymbol(expr)
	case value.KindList:
		return e.evalList(expr)
	default:
		return value.Nil(), fmt.Errorf("unrecognized value kind")
	}
}

func (e *environment) evalSymbol(expr value.Value) (value.Value, error) {
	name := expr.Symbol2()
	if name == "history" {
		// history resolves to a placeholder list of the machine's own
		// input count, so `(count history)` reads the log length
		// without the interpreter needing access to the actual log.
		placeholders := make([]value.Value, e.historyLen)
		for i := range placeholders {
			placeholders[i] = value.Nil()
		}
		return value.ListOf(placeholders), nil
	}
	if v, ok := e.vars[name]; ok {
		return v, nil
	}
	return value.Nil(), fmt.Errorf("unbound symbol %q", name)
}

func (e *environment) evalList(expr value.Value) (value.Value, error) {
	items := expr.List()
	if len(items) == 0 {
		return value.Nil(), fmt.Errorf("cannot evaluate empty list")
	}

	head := items[0]
	if head.Kind() == value.KindSymbol {
		switch head.Symbol2() {
		case "quote":
			if len(items) != 2 {
				return value.Nil(), fmt.Errorf("quote expects exactly 1 argument")
			}
			return items[1], nil
		case "if":
			return e.evalIf(items[1:])
		case "define":
			return e.evalDefine(items[1:])
		case "list":
			return e.evalApplyArgs(items[1:], func(args []value.Value) (value.Value, error) {
				return value.ListOf(args), nil
			})
		}
		if fn, ok := primops[head.Symbol2()]; ok {
			return e.evalApplyArgs(items[1:], fn)
		}
	}

	return value.Nil(), fmt.Errorf("not a function: %s", head)
}

func (e *environment) evalApplyArgs(rawArgs []value.Value, fn func([]value.Value) (value.Value, error)) (value.Value, error) {
	args := make([]value.Value, len(rawArgs))
	for i, a := range rawArgs {
		v, err := e.eval(a)
		if err != nil {
			return value.Nil(), err
		}
		args[i] = v
	}
	return fn(args)
}

func (e *environment) evalIf(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Nil(), fmt.Errorf("if expects exactly 3 arguments")
	}
	cond, err := e.eval(args[0])
	if err != nil {
		return value.Nil(), err
	}
	truthy := !(cond.Kind() == value.KindBool && !cond.Bool()) && cond.Kind() != value.KindNil
	if truthy {
		return e.eval(args[1])
	}
	return e.eval(args[2])
}

func (e *environment) evalDefine(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil(), fmt.Errorf("define expects exactly 2 arguments")
	}
	if args[0].Kind() != value.KindSymbol {
		return value.Nil(), fmt.Errorf("define expects a symbol as its first argument")
	}
	v, err := e.eval(args[1])
	if err != nil {
		return value.Nil(), err
	}
	e.vars[args[0].Symbol2()] = v
	return v, nil
}
