package utils

import (
	"html/template"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	HTML      template.HTML
	ExpiresAt time.Time
}

// RenderCache keeps rendered markdown keyed by content identity, so an article body
// is converted and sanitized once per revision.
type RenderCache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
}

func NewRenderCache(size int, ttl time.Duration) (*RenderCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &RenderCache{lruCache: l, ttl: ttl}, nil
}

// Render returns the cached HTML for key or renders source and stores it.
func (c *RenderCache) Render(key, source string) template.HTML {
	if val, ok := c.lruCache.Get(key); ok {
		if time.Now().Before(val.ExpiresAt) {
			return val.HTML
		}
		c.lruCache.Remove(key)
	}

	html := RenderMarkdown(source)
	c.lruCache.Add(key, CacheItem{HTML: html, ExpiresAt: time.Now().Add(c.ttl)})
	return html
}

// Delete 删除指定缓存
func (c *RenderCache) Delete(key string) {
	c.lruCache.Remove(key)
}

func (c *RenderCache) Len() int {
	return c.lruCache.Len()
}
