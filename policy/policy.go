package policy

import "time"

// Checker robots.txt权限能力
// IsPermitted 判断URL是否允许抓取，robots.txt缺失时视为允许
// PreferredDelay robots.txt声明的crawl-delay，没有声明时第二个返回值为false
type Checker interface {
	IsPermitted(url string) bool
	PreferredDelay(url string) (time.Duration, bool)
}

// AllowAll 不做任何检查，测试和关闭策略检查时用
type AllowAll struct{}

func (AllowAll) IsPermitted(string) bool { return true }

func (AllowAll) PreferredDelay(string) (time.Duration, bool) { return 0, false }
