package rcux

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/llxisdsh/rcux/internal/opt"
)

// CacheLineSize is used in structure padding to prevent false sharing.
const CacheLineSize = opt.CacheLineSize_

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

func delay(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	// time.Sleep with non-zero duration (≈Millisecond level) works
	// effectively as backoff under high concurrency.
	// The 500µs duration is derived from Facebook/folly's implementation:
	// https://github.com/facebook/folly/blob/main/folly/synchronization/detail/Sleeper.h
	time.Sleep(500 * time.Microsecond)
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()

// isTSO_ detects TSO architectures; on TSO, plain reads/writes are safe for
// pointers and native word-sized integers
const isTSO_ = !opt.Race_ &&
	(runtime.GOARCH == "amd64" ||
		runtime.GOARCH == "386" ||
		runtime.GOARCH == "s390x")

// loadPtr loads a pointer atomically on non-TSO architectures.
// On TSO architectures, it performs a plain pointer load.
//
//go:nosplit
func loadPtr(addr *unsafe.Pointer) unsafe.Pointer {
	if isTSO_ {
		return *addr
	}
	return atomic.LoadPointer(addr)
}

// storePtr stores a pointer atomically on non-TSO architectures.
// On TSO architectures, it performs a plain pointer store.
//
//go:nosplit
func storePtr(addr *unsafe.Pointer, val unsafe.Pointer) {
	if isTSO_ {
		*addr = val
	} else {
		atomic.StorePointer(addr, val)
	}
}
