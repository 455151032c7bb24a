package analyzer

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

var defaultOptions = options{
	Timeout: 30 * time.Second,
	Logger:  zap.NewNop(),
}

type Option func(opts *options)

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
