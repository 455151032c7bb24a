package limiter

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// Domain 提取URL的host[:port]，作为限速分组的key
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// DomainLimiter 按域名限速
// 同一域名的两次请求之间至少间隔delay，不同域名互不阻塞
type DomainLimiter struct {
	mu      sync.Mutex
	domains map[string]*domainEntry
}

type domainEntry struct {
	mu   sync.Mutex
	last time.Time
}

func NewDomainLimiter() *DomainLimiter {
	return &DomainLimiter{
		domains: map[string]*domainEntry{},
	}
}

func (d *DomainLimiter) entry(domain string) *domainEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.domains[domain]
	if !ok {
		e = &domainEntry{}
		d.domains[domain] = e
	}
	return e
}

// Acquire 阻塞到距离该域名上次请求至少delay后，记录本次请求时间
// 检查和更新对同一域名串行，锁不跨越网络请求
func (d *DomainLimiter) Acquire(ctx context.Context, domain string, delay time.Duration) error {
	e := d.entry(domain)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.last.IsZero() {
		wait := delay - time.Since(e.last)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	e.last = time.Now()
	return nil
}

// LastRequest 该域名最近一次请求时间，没有请求过返回零值
func (d *DomainLimiter) LastRequest(domain string) time.Time {
	e := d.entry(domain)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
