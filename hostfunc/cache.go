package hostfunc

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheEntries = 64

// ResourceCache keeps fetched resources in memory and, when a directory is
// configured, persists them as files keyed by name.
type ResourceCache struct {
	mem *lru.Cache[string, string]
	dir string
}

func NewResourceCache(entries int, dir string) (*ResourceCache, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	mem, err := lru.New[string, string](entries)
	if err != nil {
		return nil, fmt.Errorf("create resource cache: %w", err)
	}
	return &ResourceCache{mem: mem, dir: dir}, nil
}

// Get returns the cached content for key. file, when non-empty, names the
// on-disk copy consulted after a memory miss.
func (c *ResourceCache) Get(key, file string) (string, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}
	if c.dir == "" || file == "" {
		return "", false
	}

	data, err := os.ReadFile(filepath.Join(c.dir, filepath.Base(file)))
	if err != nil {
		return "", false
	}
	c.mem.Add(key, string(data))
	return string(data), true
}

// Put stores content under key and, when file is set, on disk.
func (c *ResourceCache) Put(key, file, content string) error {
	c.mem.Add(key, content)
	if c.dir == "" || file == "" {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, filepath.Base(file)), []byte(content), 0644); err != nil {
		return fmt.Errorf("persist cached resource: %w", err)
	}
	return nil
}

func (c *ResourceCache) Len() int {
	return c.mem.Len()
}
