package rcux

import (
	"github.com/llxisdsh/pb"
)

// CellMap is a keyed collection of cells: read-mostly values indexed by an
// arbitrary comparable key, each with independent RCU semantics.
//
// Cells are created on first Write and removed by Delete. A guard taken
// from a key stays valid after the key is deleted or overwritten, exactly
// like a plain [Cell] guard.
//
// Usage:
//
//	var m CellMap[string, Config]
//	m.Write("svc", cfg)
//
//	g, ok := m.Read("svc")
//	if ok {
//		use(g.Value())
//		g.Release()
//	}
type CellMap[K comparable, V any] struct {
	_ noCopy
	m pb.MapOf[K, *Cell[V]]
}

// Write installs value under key, creating the cell on first use. When the
// cell already exists this is a [Cell.Write] and blocks until the displaced
// value drains.
func (m *CellMap[K, V]) Write(key K, value V) {
	var c *Cell[V]
	_, loaded := m.m.ProcessEntry(
		key,
		func(e *pb.EntryOf[K, *Cell[V]]) (*pb.EntryOf[K, *Cell[V]], *Cell[V], bool) {
			if e != nil {
				c = e.Value
				return e, c, true
			}
			c = NewCell(value)
			return &pb.EntryOf[K, *Cell[V]]{Value: c}, c, false
		},
	)
	if loaded {
		c.Write(value)
	}
}

// Read returns a guard for key's current value, or ok=false when the key
// is absent.
func (m *CellMap[K, V]) Read(key K) (Guard[V], bool) {
	c, ok := m.m.Load(key)
	if !ok {
		return Guard[V]{}, false
	}
	return c.Read(), true
}

// TryRead is like Read but also fails when a write on key's cell is in
// progress.
func (m *CellMap[K, V]) TryRead(key K) (Guard[V], bool) {
	c, ok := m.m.Load(key)
	if !ok {
		return Guard[V]{}, false
	}
	return c.TryRead()
}

// Load returns a copy of key's current value.
func (m *CellMap[K, V]) Load(key K) (V, bool) {
	c, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return c.Load(), true
}

// Delete removes key. Outstanding guards on the removed cell stay valid
// until released; a concurrent writer draining it finishes normally.
func (m *CellMap[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Range calls fn with a copy of each key's current value until fn returns
// false. It observes a weakly consistent snapshot of the key set.
func (m *CellMap[K, V]) Range(fn func(key K, value V) bool) {
	m.m.Range(func(key K, c *Cell[V]) bool {
		return fn(key, c.Load())
	})
}
