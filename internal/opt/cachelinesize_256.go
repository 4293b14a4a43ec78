//go:build rcux_cachelinesize_256

package opt

// CacheLineSize_ forced to 256 via the rcux_cachelinesize_256 build tag.
const CacheLineSize_ = 256
