// Package cache keeps recently used values in memory.
package cache

// Cache is the read/write surface of a cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Len() int
}

var _ Cache[int] = (*LRU[int])(nil)
