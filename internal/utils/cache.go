package utils

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry 包装缓存数据和过期时间
type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache 进程内 TTL + LRU 缓存，目前只用于链接预览结果，
// 避免同一帖子的外链被反复抓取
type Cache struct {
	lru *lru.Cache[string, cacheEntry]
}

var cacheInstance *Cache

// GetCache 获取单例缓存实例
func GetCache() *Cache {
	if cacheInstance == nil {
		l, err := lru.New[string, cacheEntry](1024)
		if err != nil {
			log.Fatalf("Failed to create LRU cache: %v", err)
		}
		cacheInstance = &Cache{lru: l}
	}
	return cacheInstance
}

// Set 写入缓存，ttl 过后视为不存在
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.lru.Add(key, cacheEntry{data: data, expiresAt: time.Now().Add(ttl)})
}

// Get 读取缓存，不存在或已过期返回 nil
func (c *Cache) Get(key string) interface{} {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil
	}
	return entry.data
}

// Delete 删除指定缓存
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}
