package policy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsChecker 基于robots.txt的权限检查，按host缓存解析结果
type RobotsChecker struct {
	client *http.Client
	mu     sync.Mutex
	cache  map[string]*robotstxt.RobotsData
	options
}

func NewRobotsChecker(opts ...Option) *RobotsChecker {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	c := &RobotsChecker{
		cache: map[string]*robotstxt.RobotsData{},
	}
	c.options = options
	c.client = &http.Client{Timeout: c.Timeout}
	return c
}

func (c *RobotsChecker) IsPermitted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data := c.robotsData(u)
	if data == nil {
		// robots.txt获取不到时放行
		return true
	}
	return data.FindGroup(c.UserAgent).Test(u.Path)
}

func (c *RobotsChecker) PreferredDelay(rawURL string) (time.Duration, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	data := c.robotsData(u)
	if data == nil {
		return 0, false
	}
	delay := data.FindGroup(c.UserAgent).CrawlDelay
	if delay <= 0 {
		return 0, false
	}
	return delay, true
}

func (c *RobotsChecker) robotsData(u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host
	c.mu.Lock()
	data, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return data
	}

	data = c.fetchRobots(key)
	c.mu.Lock()
	c.cache[key] = data
	c.mu.Unlock()
	return data
}

func (c *RobotsChecker) fetchRobots(base string) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s/robots.txt", base)
	resp, err := c.client.Get(robotsURL)
	if err != nil {
		c.Logger.Warn("fetch robots.txt failed, assuming access is allowed",
			zap.String("url", robotsURL),
			zap.Error(err),
		)
		return nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Logger.Warn("read robots.txt failed", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		c.Logger.Warn("parse robots.txt failed", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	return data
}

// ClearCache 清空robots.txt缓存，下一次检查会重新抓取
func (c *RobotsChecker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = map[string]*robotstxt.RobotsData{}
}
