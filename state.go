package rcux

import "sync/atomic"

// Cell state is one 64-bit word packing three fields:
//
//	bit  63:    write flag, set while a writer holds exclusive access
//	bits 32-62: generation of the live allocation (31 bits)
//	bits 0-31:  readers registered against that generation (32 bits)
//
// The word is the moral equivalent of the classic double-width RCU layout
// (pointer | flag | count in one 128-bit unit). Go's sync/atomic has no
// 128-bit primitive, so the pointer's identity is carried by a generation
// tag instead: the actual *T lives in a separate GC-visible slot that is
// only replaced while the write flag is held and the count is zero. Within
// the window any reader can observe, a generation therefore maps to exactly
// one allocation, and a reader's registering CAS covers both its count
// increment and the identity it registered against in one indivisible step.
//
// Field arithmetic never crosses field boundaries:
//   - count increments are +1 on a word whose low field is below
//     cellMaxReaders, so they cannot carry into the generation;
//   - count decrements are -1 on a word whose low field is non-zero (a live
//     guard guarantees that), so they cannot borrow out of it;
//   - publishing a new generation is a single store that also zeroes the
//     count and clears the flag.
//
// The generation wraps after 2^31 writes. Identity only has to distinguish
// allocations that can be concurrently observed (at most two: live and
// draining), so wraparound is harmless.
const (
	cellWriteBit  = 1 << 63
	cellGenShift  = 32
	cellGenMask   = 1<<31 - 1
	cellOneReader = 1

	// cellMaxReaders is the capacity of the count field. Holding more
	// guards concurrently than this on one cell corrupts the word.
	cellMaxReaders = 1<<32 - 1
)

// MaxReaders is the largest number of guards that may be held concurrently
// on a single cell, fixed by the width of the reader-count field.
const MaxReaders = cellMaxReaders

// packState assembles a state word from its three fields.
//
//go:nosplit
func packState(writing bool, gen, readers uint64) uint64 {
	s := (gen&cellGenMask)<<cellGenShift | readers
	if writing {
		s |= cellWriteBit
	}
	return s
}

// stateWriting reports whether the write flag is set.
//
//go:nosplit
func stateWriting(s uint64) bool {
	return s&cellWriteBit != 0
}

// stateGen extracts the generation field.
//
//go:nosplit
func stateGen(s uint64) uint64 {
	return s >> cellGenShift & cellGenMask
}

// stateReaders extracts the reader-count field.
//
//go:nosplit
func stateReaders(s uint64) uint64 {
	return s & cellMaxReaders
}

// stateNext returns the word that publishes the next generation:
// generation+1, count zero, write flag clear.
//
//go:nosplit
func stateNext(s uint64) uint64 {
	return ((stateGen(s) + 1) & cellGenMask) << cellGenShift
}

// stateUnlocked returns the word with the write flag cleared and the
// current generation kept live. Used to back out of an aborted write.
//
//go:nosplit
func stateUnlocked(s uint64) uint64 {
	return stateGen(s) << cellGenShift
}

// lockBit acquires a bit-lock on the word using the given mask.
// The lock is held while (word & mask) != 0; other bits are preserved,
// so readers may keep mutating the count field underneath.
// Competing lockers race on the CAS with no ordering guarantee.
func lockBit(w *atomic.Uint64, mask uint64) {
	cur := w.Load()
	if w.CompareAndSwap(cur&^mask, cur|mask) {
		return
	}
	slowLockBit(w, mask)
}

func slowLockBit(w *atomic.Uint64, mask uint64) {
	var spins int
	for !tryLockBit(w, mask) {
		delay(&spins)
	}
}

//go:nosplit
func tryLockBit(w *atomic.Uint64, mask uint64) bool {
	for {
		cur := w.Load()
		if cur&mask != 0 {
			return false
		}
		if w.CompareAndSwap(cur, cur|mask) {
			return true
		}
	}
}
