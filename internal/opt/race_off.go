//go:build !race

package opt

// Race_ reports whether the race detector is enabled.
// Hot paths use it to fall back from plain TSO loads/stores to
// conservative atomics the detector can model.
const Race_ = false
