package errs

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidInput(errors.New("bad")), http.StatusBadRequest},
		{IpfsError(errors.New("boom")), http.StatusInternalServerError},
		{AckTimeout(), http.StatusGatewayTimeout},
		{DaemonError(errors.New("bug")), http.StatusInternalServerError},
		{MachineAlreadyCached("id"), http.StatusInternalServerError},
		{MachineNotCached("id"), http.StatusInternalServerError},
		{errors.New("not ours"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := InvalidInput(errors.New("bad"))
	kind, ok := KindOf(err)
	if !ok || kind != KindInvalidInput {
		t.Fatalf("KindOf = %v, %v, want KindInvalidInput, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf on a non-taxonomy error should report false")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := DaemonError(cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}
