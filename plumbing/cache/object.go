package cache

import (
	"container/list"
	"sync"

	"github.com/gitforge/forge/plumbing"
)

// DefaultMaxSize is the default size for a cache instance.
const DefaultMaxSize = 96 * MiByte

type ObjectLRU struct {
	MaxSize FileSize

	actualSize FileSize
	ll         *list.List
	cache      map[interface{}]*list.Element
	mu         sync.Mutex
}

// NewObjectLRU creates a new ObjectLRU with the given maximum size. The
// size is calculated summing the size of each object stored, as reported
// by (plumbing.EncodedObject).Size.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{MaxSize: maxSize}
}

// NewObjectLRUDefault creates a new ObjectLRU with the DefaultMaxSize.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

// Put puts an object into the cache. If the object is already in the cache
// it is moved to the front and its size is updated.
func (c *ObjectLRU) Put(obj plumbing.EncodedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		c.actualSize = 0
		c.cache = make(map[interface{}]*list.Element, 1000)
		c.ll = list.New()
	}

	key := obj.Hash()
	if ee, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ee)
		oldObj := ee.Value.(plumbing.EncodedObject)
		c.actualSize -= FileSize(oldObj.Size())
		c.actualSize += FileSize(obj.Size())
		ee.Value = obj
		return
	}

	ee := c.ll.PushFront(obj)
	c.cache[key] = ee
	c.actualSize += FileSize(obj.Size())

	for c.actualSize > c.MaxSize {
		last := c.ll.Back()
		if last == nil {
			c.actualSize = 0
			break
		}

		lastObj := last.Value.(plumbing.EncodedObject)
		c.ll.Remove(last)
		delete(c.cache, lastObj.Hash())
		c.actualSize -= FileSize(lastObj.Size())
	}
}

// Get returns an object by hash. The bool return value reports whether it
// was found.
func (c *ObjectLRU) Get(k plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ee, ok := c.cache[k]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(ee)
	return ee.Value.(plumbing.EncodedObject), true
}

// Clear clears every object in the cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = nil
	c.cache = nil
	c.actualSize = 0
}
