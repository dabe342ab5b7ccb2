// Package interp is the Interpreter external collaborator: a pure fold from (state, input) to (result, state'). It owns the
// value model's evaluation rules; the core treats State as opaque.
package interp

import (
	"fmt"

	"github.com/evalnet/machined/pkg/value"
)

// State is the opaque evaluator state the core threads through Advance.
// It is never mutated in place: every transition returns a new State,
// which keeps "query against a read-only copy" free.
type State struct {
	env *environment
}

// Empty returns the initial evaluator state for a freshly created machine.
func Empty() State {
	return State{env: newRootEnvironment()}
}

// HistoryLen is provided by the role engine so `(count history)` can
// resolve against the machine's own input count.
// It is passed in on every Eval call; the count a State carries from an
// earlier call is always overwritten, so the caller's value is the one
// that counts.
type HistoryLen = int

// Error is returned for any expression the interpreter rejects; the core
// wraps it as errs.InvalidInput verbatim.
type Error struct {
	Expr  value.Value
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid expression %s: %s", e.Expr, e.Cause)
}
func (e *Error) Unwrap() error { return e.Cause }

// Eval folds one input expression over state, producing the result Value
// and the successor state. On error, state is returned unchanged by
// convention; callers (Advance) must discard it rather than rely on that.
func Eval(state State, historyLen HistoryLen, input value.Value) (value.Value, State, error) {
	env := state.env.fork()
	env.historyLen = historyLen
	result, err := env.eval(input)
	if err != nil {
		return value.Nil(), state, &Error{Expr: input, Cause: err}
	}
	return result, State{env: env}, nil
}
