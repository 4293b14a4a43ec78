// Package rcux provides a read-copy-update style single-slot container.
//
// A [Cell] holds one live allocation of a value. Any number of readers may
// borrow it concurrently through scoped [Guard]s without blocking each
// other; a writer installs a new allocation and blocks until every guard
// registered against the displaced one has been released, at which point
// the old allocation is unreachable and the garbage collector reclaims it.
//
// All coordination happens on a single packed atomic word (see state.go);
// no OS lock is taken and the read path does not allocate. Readers only
// ever wait during the window an in-progress write is draining; a guard
// that is already open is never affected by a concurrent write.
package rcux

import (
	"sync/atomic"
	"unsafe"
)

// Cell is a concurrent single-slot container with RCU semantics.
// The zero Cell is not usable; construct with [NewCell].
type Cell[T any] struct {
	_ noCopy
	// state packs write flag, generation and reader count; see state.go.
	state atomic.Uint64
	// ptr is the live *T. It is replaced only while the write flag is
	// held and the reader count is zero, so the pointer a guard captured
	// stays valid until that guard is released.
	ptr unsafe.Pointer
}

// NewCell returns a cell holding value in a fresh allocation, with the
// state word at generation zero, no writer and no readers.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{ptr: unsafe.Pointer(&value)}
}

// Guard is a scoped borrow of a cell's value, registered against the
// allocation that was live when [Cell.Read] succeeded.
//
// A Guard is a plain value and does not allocate. Release must be called
// exactly once on every exit path; releasing twice or copying a guard and
// releasing both copies corrupts the reader count.
type Guard[T any] struct {
	cell *Cell[T]
	p    *T
	gen  uint64
}

// Value returns the borrowed value. The reference stays valid for the
// guard's whole lifetime, even across concurrent writes.
//
//go:nosplit
func (g *Guard[T]) Value() *T {
	return g.p
}

// Gen reports the generation the guard registered against.
//
//go:nosplit
func (g *Guard[T]) Gen() uint64 {
	return g.gen
}

// Release ends the borrow. Once every guard registered against a displaced
// allocation is released, the writer draining it proceeds.
//
// A single fetch-add suffices: a live guard guarantees the count field is
// non-zero, so subtracting one cannot borrow into the generation bits, and
// the word it lands on is always the word the guard was counted in (a
// writer cannot publish a new generation until this count drains).
//
//go:nosplit
func (g *Guard[T]) Release() {
	g.cell.state.Add(^uint64(0))
}

// Read registers the caller as a reader of the live allocation and returns
// a guard for it. The registering increment and the identity it registers
// against are covered by one CAS on the packed word, so a reader can never
// be counted against a different allocation than the one it observes.
//
// Read waits only while a write is draining (the flag check below); it
// never waits for other readers beyond CAS retries. It does not allocate.
// Each cell supports up to [MaxReaders] concurrently held guards.
func (c *Cell[T]) Read() Guard[T] {
	var spins int
	for {
		s := c.state.Load()
		if !stateWriting(s) && c.state.CompareAndSwap(s, s+cellOneReader) {
			// The flag was clear when the CAS took effect, so no
			// writer can replace ptr until this guard releases.
			return Guard[T]{cell: c, p: (*T)(loadPtr(&c.ptr)), gen: stateGen(s)}
		}
		delay(&spins)
	}
}

// TryRead is like [Cell.Read] but fails instead of waiting when a write is
// in progress.
func (c *Cell[T]) TryRead() (Guard[T], bool) {
	for {
		s := c.state.Load()
		if stateWriting(s) {
			return Guard[T]{}, false
		}
		if c.state.CompareAndSwap(s, s+cellOneReader) {
			return Guard[T]{cell: c, p: (*T)(loadPtr(&c.ptr)), gen: stateGen(s)}, true
		}
	}
}

// Load returns a copy of the current value. It is shorthand for taking a
// guard, copying, and releasing.
func (c *Cell[T]) Load() T {
	g := c.Read()
	v := *g.p
	g.Release()
	return v
}

// Write installs value as the cell's new live allocation. It blocks until
// every guard registered against the displaced allocation has been
// released; on return the old allocation is unreachable and guards taken
// afterwards observe the new value.
//
// Competing writers race on a CAS with no fairness or ordering guarantee,
// and a guard held forever stalls Write forever; both are liveness
// caveats, not errors. Calling Write while holding a guard on the same
// cell deadlocks.
func (c *Cell[T]) Write(value T) {
	c.publish(&value)
}

// Replace is [Cell.Write] returning the displaced value.
func (c *Cell[T]) Replace(value T) T {
	return *c.publish(&value)
}

// publish runs the writer protocol and returns the displaced allocation,
// which at that point only the caller can still reference.
//
// The new storage is allocated by the caller before exclusion is taken, so
// an aborting allocation can never strand the write flag.
func (c *Cell[T]) publish(newp *T) *T {
	// Exclusion: blocks new readers and serializes writers. Readers keep
	// CASing the count field underneath until the flag lands.
	lockBit(&c.state, cellWriteBit)
	old := c.drain()
	storePtr(&c.ptr, unsafe.Pointer(newp))
	// One store publishes the next generation: count zero, flag clear.
	// Readers parked on the flag and writers spinning on the bit-lock
	// resume from here and observe the new allocation.
	c.state.Store(stateNext(c.state.Load()))
	return old
}

// drain waits until no guard registered against the current allocation
// remains, then returns that allocation. The write flag must be held: it
// keeps new readers out, so the count is monotonically non-increasing and
// reaches zero once every pre-existing guard is released.
func (c *Cell[T]) drain() *T {
	var spins int
	for stateReaders(c.state.Load()) != 0 {
		delay(&spins)
	}
	return (*T)(loadPtr(&c.ptr))
}

// Update atomically replaces the value with fn(current). fn runs inside
// the writer critical section: readers arriving while it runs block, its
// input is the fully drained current value, and its result is published
// exactly like a Write. fn must not call back into the cell.
//
// If fn panics the old value stays live and exclusion is released before
// the panic propagates.
func (c *Cell[T]) Update(fn func(old T) T) {
	lockBit(&c.state, cellWriteBit)
	old := c.drain()
	published := false
	defer func() {
		if !published {
			c.state.Store(stateUnlocked(c.state.Load()))
		}
	}()
	value := fn(*old)
	storePtr(&c.ptr, unsafe.Pointer(&value))
	c.state.Store(stateNext(c.state.Load()))
	published = true
}
