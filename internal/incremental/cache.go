// Package incremental provides the content-hash keyed cache that lets
// unchanged inputs skip re-materialization between passes.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
)

// Entry is one cached unit of work: a signature of the inputs that produced
// it plus the resulting documents. Documents are immutable, so sharing them
// across passes is safe.
type Entry struct {
	Signature string
	Documents []*docmodel.Document
}

// Cache is a concurrent map of cache entries. Updates are atomic per key:
// readers during a pass never observe a partially-written entry, because the
// whole Entry value is swapped under the lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for key if present.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Lookup returns the entry only when its signature matches.
func (c *Cache) Lookup(key, signature string) (Entry, bool) {
	entry, ok := c.Get(key)
	if !ok || entry.Signature != signature {
		return Entry{}, false
	}
	return entry, true
}

// Put stores an entry, replacing any prior value for key.
func (c *Cache) Put(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// Reset discards all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ContentSignature returns the hex SHA-256 of data.
func ContentSignature(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileSignature derives a cheap change signature from file metadata. It is
// not content-exact: a same-size same-mtime rewrite goes undetected, which is
// the usual trade for avoiding a full read on every pass.
func FileSignature(info os.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
