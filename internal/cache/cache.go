// Package cache provides a small generic TTL cache.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a fresh value from the cache
	Get(key string) (T, bool)

	// GetStale retrieves a value even after its TTL has passed, reporting
	// whether it is still fresh
	GetStale(key string) (data T, fresh bool, ok bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}
