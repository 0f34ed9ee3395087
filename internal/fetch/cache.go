package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores fetched documents by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
}

// CacheKey derives a file-safe key from a request method and URL
func CacheKey(method, rawURL string) string {
	sum := sha256.Sum256([]byte(method + " " + rawURL))
	return "v1-" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process cache with expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, 10*time.Minute)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if v, ok := c.cache.Get(key); ok {
		return v.([]byte), true
	}
	return nil, false
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
	return nil
}

// DiskCache keeps entries as JSON files under a directory
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type diskEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewDiskCache creates the cache directory if needed
func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return entry.Data, true
}

func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(diskEntry{Data: value, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// LayeredCache checks memory first and falls back to disk, promoting disk hits
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache combines a memory and a disk cache
func NewLayeredCache(memory, disk Cache) *LayeredCache {
	return &LayeredCache{memory: memory, disk: disk}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	if v, ok := c.disk.Get(key); ok {
		_ = c.memory.Set(key, v, 0)
		return v, true
	}
	return nil, false
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}
