package errs

import "testing"

func TestDumpChainDoesNotPanic(t *testing.T) {
	DumpChain(nil)
	DumpChain(DaemonError(IpfsError(nil)))
}
