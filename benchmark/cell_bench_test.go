package benchmark

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/llxisdsh/rcux"
	"github.com/puzpuzpuz/xsync/v4"
)

// A payload wide enough that torn publication would matter; all subjects
// hand out or copy the same type.
type payload struct {
	a, b, c, d uint64
}

var sink atomic.Uint64

// ----------------------------------------------------------------------------
// Read-only
// ----------------------------------------------------------------------------

func BenchmarkRead_RcuCell(b *testing.B) {
	c := rcux.NewCell(payload{1, 2, 3, 4})
	b.RunParallel(func(pb *testing.PB) {
		var local uint64
		for pb.Next() {
			g := c.Read()
			local ^= g.Value().a
			g.Release()
		}
		sink.Add(local)
	})
}

func BenchmarkRead_RWMutex(b *testing.B) {
	var mu sync.RWMutex
	v := payload{1, 2, 3, 4}
	b.RunParallel(func(pb *testing.PB) {
		var local uint64
		for pb.Next() {
			mu.RLock()
			local ^= v.a
			mu.RUnlock()
		}
		sink.Add(local)
	})
}

func BenchmarkRead_RBMutex(b *testing.B) {
	mu := xsync.NewRBMutex()
	v := payload{1, 2, 3, 4}
	b.RunParallel(func(pb *testing.PB) {
		var local uint64
		for pb.Next() {
			tk := mu.RLock()
			local ^= v.a
			mu.RUnlock(tk)
		}
		sink.Add(local)
	})
}

func BenchmarkRead_AtomicPointer(b *testing.B) {
	var p atomic.Pointer[payload]
	p.Store(&payload{1, 2, 3, 4})
	b.RunParallel(func(pb *testing.PB) {
		var local uint64
		for pb.Next() {
			local ^= p.Load().a
		}
		sink.Add(local)
	})
}

// ----------------------------------------------------------------------------
// Read-mostly: one write per readsPerWrite reads
// ----------------------------------------------------------------------------

const readsPerWrite = 1024

func BenchmarkMixed_RcuCell(b *testing.B) {
	c := rcux.NewCell(payload{1, 2, 3, 4})
	b.RunParallel(func(pb *testing.PB) {
		var local, i uint64
		for pb.Next() {
			i++
			if i%readsPerWrite == 0 {
				c.Write(payload{i, i, i, i})
				continue
			}
			g := c.Read()
			local ^= g.Value().a
			g.Release()
		}
		sink.Add(local)
	})
}

func BenchmarkMixed_RWMutex(b *testing.B) {
	var mu sync.RWMutex
	v := payload{1, 2, 3, 4}
	b.RunParallel(func(pb *testing.PB) {
		var local, i uint64
		for pb.Next() {
			i++
			if i%readsPerWrite == 0 {
				mu.Lock()
				v = payload{i, i, i, i}
				mu.Unlock()
				continue
			}
			mu.RLock()
			local ^= v.a
			mu.RUnlock()
		}
		sink.Add(local)
	})
}

func BenchmarkMixed_RBMutex(b *testing.B) {
	mu := xsync.NewRBMutex()
	v := payload{1, 2, 3, 4}
	b.RunParallel(func(pb *testing.PB) {
		var local, i uint64
		for pb.Next() {
			i++
			if i%readsPerWrite == 0 {
				mu.Lock()
				v = payload{i, i, i, i}
				mu.Unlock()
				continue
			}
			tk := mu.RLock()
			local ^= v.a
			mu.RUnlock(tk)
		}
		sink.Add(local)
	})
}

func BenchmarkMixed_AtomicPointer(b *testing.B) {
	var p atomic.Pointer[payload]
	p.Store(&payload{1, 2, 3, 4})
	b.RunParallel(func(pb *testing.PB) {
		var local, i uint64
		for pb.Next() {
			i++
			if i%readsPerWrite == 0 {
				p.Store(&payload{i, i, i, i})
				continue
			}
			local ^= p.Load().a
		}
		sink.Add(local)
	})
}

// ----------------------------------------------------------------------------
// Guard overhead with long-held borrows outstanding
// ----------------------------------------------------------------------------

func BenchmarkRead_RcuCell_WithPinnedGuards(b *testing.B) {
	c := rcux.NewCell(payload{1, 2, 3, 4})
	pinned := make([]rcux.Guard[payload], 4)
	for i := range pinned {
		pinned[i] = c.Read()
	}
	b.RunParallel(func(pb *testing.PB) {
		var local uint64
		for pb.Next() {
			g := c.Read()
			local ^= g.Value().a
			g.Release()
		}
		sink.Add(local)
	})
	b.StopTimer()
	for i := range pinned {
		pinned[i].Release()
	}
}
