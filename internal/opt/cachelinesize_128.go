//go:build rcux_cachelinesize_128

package opt

// CacheLineSize_ forced to 128 via the rcux_cachelinesize_128 build tag.
const CacheLineSize_ = 128
