package cache

import "github.com/gitforge/forge/plumbing"

const (
	Byte FileSize = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// FileSize represents a file size in bytes.
type FileSize int64

// Object is a LRU cache of plumbing.EncodedObject keyed by its Hash.
type Object interface {
	// Put puts the given object into the cache. If the object is
	// already in the cache, it is updated.
	Put(o plumbing.EncodedObject)
	// Get returns an object by hash. The second return value is false
	// if the object is not found.
	Get(k plumbing.Hash) (plumbing.EncodedObject, bool)
	// Clear clears every object from the cache.
	Clear()
}
