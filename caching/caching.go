// Package caching keeps one user directory per browser console.
package caching

import (
	"time"

	"github.com/authpanel/authpanel/web/console"

	"github.com/patrickmn/go-cache"
)

type Cache struct {
	memoryCache *cache.Cache
	ttl         time.Duration
}

// NewCache creates a cache whose entries live for ttl after their last use.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

func (s *Cache) Init() (err error) {
	defer func() {
		if err != nil {
			s.Flush()
		}
	}()

	s.memoryCache = cache.New(s.ttl, s.ttl)

	return nil
}

func (s *Cache) Flush() error {
	if s.memoryCache != nil {
		s.memoryCache.Flush()
	}

	return nil
}

// DirectoryFor returns the directory of one console, creating it on first use.
// Every lookup extends the entry's lifetime.
func (s *Cache) DirectoryFor(consoleID string) *console.Directory {
	if v, ok := s.memoryCache.Get(consoleID); ok {
		dir := v.(*console.Directory)
		s.memoryCache.Set(consoleID, dir, cache.DefaultExpiration)
		return dir
	}
	dir := console.NewDirectory()
	if err := s.memoryCache.Add(consoleID, dir, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent request for the same console
		if v, ok := s.memoryCache.Get(consoleID); ok {
			return v.(*console.Directory)
		}
	}
	return dir
}

// Forget drops the directory of one console.
func (s *Cache) Forget(consoleID string) {
	s.memoryCache.Delete(consoleID)
}

// Len returns the number of live consoles.
func (s *Cache) Len() int {
	return s.memoryCache.ItemCount()
}
