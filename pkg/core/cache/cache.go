package cache

import (
	"sync"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
)

// ReportCache 校验报告缓存（对外导出）
// 以路线图ID和更新时间作为键，路线图更新后旧报告自然失效
type ReportCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// cacheEntry 缓存条目（内部使用）
type cacheEntry struct {
	report     *roadmap.Report
	expireTime time.Time
}

// NewReportCache 创建报告缓存实例（对外导出）
// ttl: 缓存有效期；cleanInterval: 过期清理周期
func NewReportCache(ttl, cleanInterval time.Duration) *ReportCache {
	c := &ReportCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go c.cleanupExpired(cleanInterval)
	return c
}

// Key 生成缓存键
func Key(roadmapID string, updatedAt time.Time) string {
	return roadmapID + "@" + updatedAt.UTC().Format(time.RFC3339Nano)
}

// Set 设置缓存值
func (c *ReportCache) Set(key string, report *roadmap.Report) {
	if key == "" || report == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{report: report, expireTime: time.Now().Add(c.ttl)}
}

// Get 获取缓存值，过期条目视为不存在
func (c *ReportCache) Get(key string) (*roadmap.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expireTime) {
		return nil, false
	}
	return entry.report, true
}

// Invalidate 删除某个路线图的全部缓存
func (c *ReportCache) Invalidate(roadmapID string) {
	prefix := roadmapID + "@"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// Len 返回当前条目数（包含尚未清理的过期条目）
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close 停止清理协程，可重复调用
func (c *ReportCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
}

// cleanupExpired 定期清理过期缓存（内部方法）
func (c *ReportCache) cleanupExpired(interval time.Duration) {
	defer close(c.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purge(time.Now())
		}
	}
}

func (c *ReportCache) purge(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expireTime) {
			delete(c.entries, key)
		}
	}
}
