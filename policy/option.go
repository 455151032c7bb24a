package policy

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

var defaultOptions = options{
	UserAgent: "PoliteFetch/1.0 (Ethical Web Scraper)",
	Timeout:   30 * time.Second,
	Logger:    zap.NewNop(),
}

type Option func(opts *options)

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.UserAgent = ua
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.Timeout = timeout
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}
