package batch

import (
	"time"

	"politefetch/analyzer"
	"politefetch/fetch"
	"politefetch/limiter"
	"politefetch/policy"

	"go.uber.org/zap"
)

// StateStore 状态持久化能力，batch只依赖这两个操作
type StateStore interface {
	Checkpoint(state *JobState) (string, error)
	// Load 没有对应快照时返回(nil, nil)
	Load(jobID string) (*JobState, error)
}

// Analyzer 补充分析能力，尽力而为，失败不影响任务结果
type Analyzer interface {
	Analyze(url string) (*analyzer.Report, error)
}

type Option func(opt *options)

type options struct {
	Workers         int
	Fetcher         fetch.Fetcher
	Checker         policy.Checker
	Analyzer        Analyzer
	Store           StateStore
	Limit           limiter.RateLimiter
	Logger          *zap.Logger
	DefaultDelay    time.Duration
	Timeout         time.Duration
	AnalyzeRobots   bool
	CheckpointEvery int
	Progress        func(total int) ProgressSink
}

var defaultOptions = options{
	Workers:         5,
	Logger:          zap.NewNop(),
	DefaultDelay:    time.Second,
	Timeout:         30 * time.Second,
	AnalyzeRobots:   true,
	CheckpointEvery: 10,
}

func WithWorkers(workers int) Option {
	return func(opt *options) {
		opt.Workers = workers
	}
}

func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(opt *options) {
		opt.Fetcher = fetcher
	}
}

func WithChecker(checker policy.Checker) Option {
	return func(opt *options) {
		opt.Checker = checker
	}
}

func WithAnalyzer(analyzer Analyzer) Option {
	return func(opt *options) {
		opt.Analyzer = analyzer
	}
}

func WithStore(store StateStore) Option {
	return func(opt *options) {
		opt.Store = store
	}
}

// WithLimit 整体限速，和按域名的delay叠加
func WithLimit(limit limiter.RateLimiter) Option {
	return func(opt *options) {
		opt.Limit = limit
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opt *options) {
		opt.Logger = logger
	}
}

// WithDefaultDelay 同一域名两次请求的最小间隔，最低100ms
func WithDefaultDelay(delay time.Duration) Option {
	return func(opt *options) {
		if delay < 100*time.Millisecond {
			delay = 100 * time.Millisecond
		}
		opt.DefaultDelay = delay
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opt *options) {
		opt.Timeout = timeout
	}
}

func WithAnalyzeRobots(analyze bool) Option {
	return func(opt *options) {
		opt.AnalyzeRobots = analyze
	}
}

// WithCheckpointInterval 每处理完N个URL保存一次状态，0表示只在结束时保存
func WithCheckpointInterval(n int) Option {
	return func(opt *options) {
		opt.CheckpointEvery = n
	}
}

func WithProgress(factory func(total int) ProgressSink) Option {
	return func(opt *options) {
		opt.Progress = factory
	}
}
