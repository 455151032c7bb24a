package fetch

import (
	"time"

	"politefetch/policy"
	"politefetch/proxy"

	"go.uber.org/zap"
)

type options struct {
	Timeout   time.Duration
	UserAgent string
	Cookie    string
	Proxy     proxy.ProxyFunc
	Checker   policy.Checker
	Logger    *zap.Logger
}

var defaultOptions = options{
	Timeout:   30 * time.Second,
	UserAgent: "PoliteFetch/1.0 (Ethical Web Scraper)",
	Logger:    zap.NewNop(),
}

type Option func(opts *options)

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.Timeout = timeout
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.UserAgent = ua
	}
}

func WithCookie(cookie string) Option {
	return func(opts *options) {
		opts.Cookie = cookie
	}
}

func WithProxy(p proxy.ProxyFunc) Option {
	return func(opts *options) {
		opts.Proxy = p
	}
}

// WithChecker 抓取前检查robots.txt权限，拒绝时返回Denied
func WithChecker(checker policy.Checker) Option {
	return func(opts *options) {
		opts.Checker = checker
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}
