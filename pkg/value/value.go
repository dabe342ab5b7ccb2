// Package value defines the wire/value model shared by the interpreter,
// the storage log and the HTTP surface. A Value is the JSON-shaped data
// every machine exchanges: inputs and results are Values, as are the
// bindings the evaluator state holds.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the underlying shape of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindSymbol
	KindList
)

// Value is an immutable, content-comparable tree, the only data the
// interpreter and the storage log ever see.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string // string payload for KindString, name for KindSymbol
	list []Value
}

func Nil() Value                 { return Value{kind: KindNil} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Symbol(name string) Value   { return Value{kind: KindSymbol, s: name} }
func List(items ...Value) Value  { return Value{kind: KindList, list: append([]Value(nil), items...)} }
func ListOf(items []Value) Value { return Value{kind: KindList, list: append([]Value(nil), items...)} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }
func (v Value) Bool() bool      { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) Str() string     { return v.s }
func (v Value) Symbol2() string { return v.s }
func (v Value) List() []Value   { return v.list }

// Equal reports deep, content-based equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString, KindSymbol:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindSymbol:
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return "#<invalid>"
	}
}

// ---------- JSON wire encoding ----------
//
// Values round-trip through JSON the way the daemon's HTTP surface and
// storage log expect: numbers/strings/bools/null map directly, symbols are
// carried as {"sym": "name"} so they survive the query/send boundary
// distinctly from plain strings, and lists map to JSON arrays.

type wireSymbol struct {
	Sym string `json:"sym"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNil:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindSymbol:
		return json.Marshal(wireSymbol{Sym: v.s})
	case KindList:
		return json.Marshal(v.list)
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null":
		*v = Nil()
		return nil
	case trimmed == "true":
		*v = Bool(true)
		return nil
	case trimmed == "false":
		*v = Bool(false)
		return nil
	case len(trimmed) > 0 && (trimmed[0] == '"'):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		items := make([]Value, len(raw))
		for i, r := range raw {
			if err := items[i].UnmarshalJSON(r); err != nil {
				return err
			}
		}
		*v = ListOf(items)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var sym wireSymbol
		if err := json.Unmarshal(b, &sym); err != nil {
			return err
		}
		*v = Symbol(sym.Sym)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("value: cannot decode %q: %w", trimmed, err)
		}
		*v = Number(n)
		return nil
	}
}

// SortList returns a copy of vs sorted by each element's rendered form;
// nested lists are not reordered. Used only by tests that compare sets
// without caring about order.
func SortList(vs []Value) []Value {
	out := append([]Value(nil), vs...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
