// Package rolecache persists each user's role list independently of the
// token. The profile endpoint omits roles on some responses; the cache
// papers over that by replaying the last non-empty list the server sent.
package rolecache

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Cache is a per-user-id role list persisted as a single TOML file.
type Cache struct {
	path string
}

type file struct {
	Roles map[string][]string `toml:"roles"`
}

// New builds a Cache stored at path.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Put records the roles for a user. Empty lists are ignored so a cached list
// is never clobbered by a response that omitted roles.
func (c *Cache) Put(userID string, roles []string) {
	if userID == "" || len(roles) == 0 {
		return
	}
	f := c.load()
	f.Roles[userID] = append([]string(nil), roles...)
	c.save(f)
}

// Get returns the cached roles for a user, or nil.
func (c *Cache) Get(userID string) []string {
	f := c.load()
	roles, ok := f.Roles[userID]
	if !ok || len(roles) == 0 {
		return nil
	}
	return append([]string(nil), roles...)
}

// Merge resolves the roles to use for a profile response. Server-provided
// roles win and refresh the cache; an omitted list falls back to the cache;
// with no cache available the result is nil.
func (c *Cache) Merge(userID string, serverRoles []string) []string {
	if len(serverRoles) > 0 {
		c.Put(userID, serverRoles)
		return append([]string(nil), serverRoles...)
	}
	return c.Get(userID)
}

// Forget drops the cached roles for a user.
func (c *Cache) Forget(userID string) {
	if userID == "" {
		return
	}
	f := c.load()
	if _, ok := f.Roles[userID]; !ok {
		return
	}
	delete(f.Roles, userID)
	c.save(f)
}

func (c *Cache) load() file {
	f := file{Roles: make(map[string][]string)}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return f
	}
	if err := toml.Unmarshal(data, &f); err != nil || f.Roles == nil {
		// Corrupt cache files are treated as empty.
		f.Roles = make(map[string][]string)
	}
	return f
}

func (c *Cache) save(f file) {
	data, err := toml.Marshal(f)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(c.path, data, 0o600)
}
