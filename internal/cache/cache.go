// Package cache keeps data parsed from a file until the file changes.
package cache

import (
	"os"
	"sync"
	"time"
)

// Loader parses the file at path.
type Loader[T any] func(path string) (T, error)

// FileData caches the result of loading one file. The cached value is
// reused until the file's size or modification time changes. All access
// happens under the supplied lock, which may be shared with other caches or
// with the caller's own critical sections.
type FileData[T any] struct {
	path string
	lock sync.Locker
	load Loader[T]

	loaded  bool
	size    int64
	modTime time.Time
	value   T
}

// NewFileData returns a cache for path. A nil lock gets a private mutex.
func NewFileData[T any](path string, lock sync.Locker, load Loader[T]) *FileData[T] {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &FileData[T]{path: path, lock: lock, load: load}
}

// Get returns the cached value, reloading it if the file changed.
func (c *FileData[T]) Get() (T, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.GetLocked()
}

// GetLocked is Get for callers that already hold the cache's lock.
func (c *FileData[T]) GetLocked() (T, error) {
	if c.path == "" {
		return c.load(c.path)
	}
	info, err := os.Stat(c.path)
	if err != nil {
		// Let the loader report the problem; nothing is cached.
		c.loaded = false
		return c.load(c.path)
	}
	if c.loaded && info.Size() == c.size && info.ModTime().Equal(c.modTime) {
		return c.value, nil
	}

	value, err := c.load(c.path)
	if err != nil {
		c.loaded = false
		var zero T
		return zero, err
	}
	c.value = value
	c.size = info.Size()
	c.modTime = info.ModTime()
	c.loaded = true
	return value, nil
}

// Invalidate drops the cached value so the next Get reloads.
func (c *FileData[T]) Invalidate() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.InvalidateLocked()
}

// InvalidateLocked is Invalidate for callers that already hold the lock.
func (c *FileData[T]) InvalidateLocked() {
	c.loaded = false
	var zero T
	c.value = zero
}
