package errs

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// DumpChain walks an error chain, printing each layer's taxonomy Kind
// (where applicable) and a spew dump of its fields. Intended for
// interactive debugging of a failed roleengine operation, not for
// production logging.
func DumpChain(err error) {
	if err == nil {
		fmt.Println("<nil>")
		return
	}

	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Printf("[%d] %T: %v\n", i, e, e)
		if kind, ok := KindOf(e); ok {
			fmt.Printf("    kind: %s\n", kind)
		}
		spew.Dump(e)
	}
}
