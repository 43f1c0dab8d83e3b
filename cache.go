package inkwell

import (
	"sync"
	"time"
)

// PostCache is an in-memory cache of the post list and tag catalog with a
// TTL, serving the feed, sitemap, and API listing endpoints. The API key
// registry is deliberately never cached; authorization always reads the
// settings table.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	tags    []Tag
	fetched time.Time
	loaded  bool
	ttl     time.Duration
	store   *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.loaded && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.loaded = false
	c.mu.Unlock()
}

// ensureLoaded returns cached posts and tags after ensuring the cache is
// fresh. It tries a read lock first; only takes a write lock to reload.
func (c *PostCache) ensureLoaded() ([]Post, []Tag) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid() {
		c.posts = c.store.ListPosts()
		c.tags = c.store.ListTags()
		c.fetched = time.Now()
		c.loaded = true
	}
	return c.posts, c.tags
}

// Posts returns all posts ordered by date descending.
func (c *PostCache) Posts() []Post {
	posts, _ := c.ensureLoaded()
	return posts
}

// Tags returns the tag catalog ordered by name.
func (c *PostCache) Tags() []Tag {
	_, tags := c.ensureLoaded()
	return tags
}

// Get returns a single post by slug from the cache.
func (c *PostCache) Get(slug string) (Post, bool) {
	posts, _ := c.ensureLoaded()
	for _, p := range posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return Post{}, false
}
