//go:build rcux_cachelinesize_32

package opt

// CacheLineSize_ forced to 32 via the rcux_cachelinesize_32 build tag.
const CacheLineSize_ = 32
