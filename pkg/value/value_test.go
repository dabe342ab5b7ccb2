package value

import "testing"

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil equal", Nil(), Nil(), true},
		{"bool equal", Bool(true), Bool(true), true},
		{"bool differ", Bool(true), Bool(false), false},
		{"number equal", Number(3), Number(3), true},
		{"number differ", Number(3), Number(4), false},
		{"string vs symbol same text", String("x"), Symbol("x"), false},
		{"symbol equal", Symbol("foo"), Symbol("foo"), true},
		{"list equal", List(Number(1), Number(2)), List(Number(1), Number(2)), true},
		{"list differ length", List(Number(1)), List(Number(1), Number(2)), false},
		{"nested list equal", List(List(Number(1)), Symbol("a")), List(List(Number(1)), Symbol("a")), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	values := []Value{
		Nil(),
		Bool(true),
		Bool(false),
		Number(42),
		Number(-3.5),
		String("hello"),
		Symbol("history"),
		List(Number(1), Symbol("x"), List(String("nested"), Nil())),
	}
	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			raw, err := v.MarshalJSON()
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Value
			if err := got.UnmarshalJSON(raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !Equal(v, got) {
				t.Errorf("round trip mismatch: got %s, want %s", got, v)
			}
		})
	}
}

func TestUnmarshalSymbolDistinctFromString(t *testing.T) {
	var v Value
	if err := v.UnmarshalJSON([]byte(`{"sym":"x"}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Kind() != KindSymbol || v.Symbol2() != "x" {
		t.Fatalf("got kind=%v value=%q, want symbol x", v.Kind(), v.Symbol2())
	}

	var s Value
	if err := s.UnmarshalJSON([]byte(`"x"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Kind() != KindString {
		t.Fatalf("got kind=%v, want string", s.Kind())
	}
	if Equal(v, s) {
		t.Errorf("symbol x should not equal string x")
	}
}

func TestSortList(t *testing.T) {
	in := []Value{Number(3), Number(1), Number(2)}
	out := SortList(in)
	want := []string{"1", "2", "3"}
	for i, v := range out {
		if v.String() != want[i] {
			t.Errorf("SortList[%d] = %s, want %s", i, v.String(), want[i])
		}
	}
	if in[0].String() != "3" {
		t.Errorf("SortList must not mutate its input")
	}
}
