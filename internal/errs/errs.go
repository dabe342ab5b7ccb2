// Package errs defines the closed error taxonomy at the core boundary
// and its translation to HTTP status codes.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error kinds the core ever produces.
type Kind int

const (
	// KindInvalidInput: the interpreter rejected an expression; client-recoverable.
	KindInvalidInput Kind = iota
	// KindIpfsError: a storage or pub/sub operation failed.
	KindIpfsError
	// KindAckTimeout: a reader did not observe a matching NewInputs within T_ack.
	KindAckTimeout
	// KindDaemonError: an internal invariant was violated.
	KindDaemonError
	// KindMachineAlreadyCached: registry invariant violation (bug if surfaced).
	KindMachineAlreadyCached
	// KindMachineNotCached: registry invariant violation (bug if surfaced).
	KindMachineNotCached
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindIpfsError:
		return "IpfsError"
	case KindAckTimeout:
		return "AckTimeout"
	case KindDaemonError:
		return "DaemonError"
	case KindMachineAlreadyCached:
		return "MachineAlreadyCached"
	case KindMachineNotCached:
		return "MachineNotCached"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with its taxonomy Kind.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause under kind. cause may be nil.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Newf is a convenience constructor mirroring fmt.Errorf.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// InvalidInput, IpfsError, AckTimeout, DaemonError, MachineAlreadyCached,
// MachineNotCached are constructors for each kind in the taxonomy.
func InvalidInput(cause error) *Error         { return New(KindInvalidInput, cause) }
func IpfsError(cause error) *Error            { return New(KindIpfsError, cause) }
func AckTimeout() *Error                      { return New(KindAckTimeout, errors.New("ack wait timed out")) }
func DaemonError(cause error) *Error          { return New(KindDaemonError, cause) }
func MachineAlreadyCached(id string) *Error   { return Newf(KindMachineAlreadyCached, "machine %q already cached", id) }
func MachineNotCached(id string) *Error       { return Newf(KindMachineNotCached, "machine %q not cached", id) }

// KindOf extracts the taxonomy Kind from err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// HTTPStatus maps an error to its HTTP status code. Errors outside the
// taxonomy map to 500.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindIpfsError, KindDaemonError, KindMachineAlreadyCached, KindMachineNotCached:
		return http.StatusInternalServerError
	case KindAckTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
