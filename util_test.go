package rcux

import (
	"testing"
	"unsafe"
)

func TestCacheLineSize(t *testing.T) {
	cl := uintptr(CacheLineSize)
	if cl < 32 || cl > 256 {
		t.Fatalf("CacheLineSize=%d out of range", cl)
	}
	if cl&(cl-1) != 0 {
		t.Fatalf("CacheLineSize=%d not a power of two", cl)
	}
}

func TestCellWordSize(t *testing.T) {
	// The packed word plus the pointer slot; a cell should stay well
	// within a single cache line.
	if s := unsafe.Sizeof(Cell[uint64]{}); s > uintptr(CacheLineSize) {
		t.Fatalf("Cell size %d exceeds a cache line (%d)", s, CacheLineSize)
	}
}

func TestDelayResetsSpins(t *testing.T) {
	spins := 0
	for range 100 {
		delay(&spins)
	}
	// After exhausting the active-spin budget delay falls back to
	// sleeping and resets the counter.
	if spins > 100 {
		t.Fatalf("spins=%d never reset", spins)
	}
}
