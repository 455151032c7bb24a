package common

import (
	"fmt"
	"time"

	"politefetch/analyzer"
	"politefetch/batch"
	"politefetch/config"
	"politefetch/fetch"
	"politefetch/limiter"
	"politefetch/policy"
	"politefetch/proxy"
	"politefetch/store"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps 一次批处理需要的全部组件
type Deps struct {
	Runner *batch.Runner
	Store  *store.FileStore
	Config config.BatchConfig
}

// Overrides 命令行参数对配置文件的覆盖，nil表示不覆盖
type Overrides struct {
	Workers       *int
	DelaySeconds  *float64
	AnalyzeRobots *bool
	ShowProgress  *bool
	StateDir      *string
}

// Build 按配置文件和命令行覆盖组装runner
func Build(logger *zap.Logger, ov Overrides) (*Deps, error) {
	cfg, err := config.LoadBatchConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ov.Workers != nil {
		cfg.Workers = *ov.Workers
	}
	if ov.DelaySeconds != nil {
		cfg.DelaySeconds = *ov.DelaySeconds
	}
	if ov.AnalyzeRobots != nil {
		cfg.AnalyzeRobots = *ov.AnalyzeRobots
	}
	if ov.ShowProgress != nil {
		cfg.ShowProgress = *ov.ShowProgress
	}
	if ov.StateDir != nil {
		cfg.StateDir = *ov.StateDir
	}

	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	delay := time.Duration(cfg.DelaySeconds * float64(time.Second))

	checker := policy.NewRobotsChecker(
		policy.WithUserAgent(cfg.UserAgent),
		policy.WithTimeout(timeout),
		policy.WithLogger(logger),
	)
	fetchOpts := []fetch.Option{
		fetch.WithTimeout(timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithChecker(checker),
		fetch.WithLogger(logger),
	}
	if len(cfg.ProxyURLs) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(cfg.ProxyURLs...)
		if err != nil {
			return nil, fmt.Errorf("build proxy switcher: %w", err)
		}
		fetchOpts = append(fetchOpts, fetch.WithProxy(p))
	}
	fetcher := fetch.NewHTTPFetcher(fetchOpts...)

	fileStore, err := store.NewFileStore(cfg.StateDir, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	runnerOpts := []batch.Option{
		batch.WithWorkers(cfg.Workers),
		batch.WithFetcher(fetcher),
		batch.WithChecker(checker),
		batch.WithStore(fileStore),
		batch.WithLogger(logger),
		batch.WithDefaultDelay(delay),
		batch.WithTimeout(timeout),
		batch.WithAnalyzeRobots(cfg.AnalyzeRobots),
		batch.WithCheckpointInterval(cfg.CheckpointInterval),
	}
	if limit := rateLimit(cfg.Limits); limit != nil {
		runnerOpts = append(runnerOpts, batch.WithLimit(limit))
	}
	if cfg.AnalyzeRobots {
		runnerOpts = append(runnerOpts, batch.WithAnalyzer(analyzer.NewAnalyzer(
			analyzer.WithTimeout(timeout),
			analyzer.WithLogger(logger),
		)))
	}
	if cfg.ShowProgress {
		runnerOpts = append(runnerOpts, batch.WithProgress(func(total int) batch.ProgressSink {
			return batch.NewTrackerSink("Processing", total)
		}))
	}

	return &Deps{
		Runner: batch.NewRunner(runnerOpts...),
		Store:  fileStore,
		Config: cfg,
	}, nil
}

// rateLimit 按配置组装整体限速器，多条配置叠加
func rateLimit(cfgs []config.LimitConfig) limiter.RateLimiter {
	limiters := make([]limiter.RateLimiter, 0, len(cfgs))
	for _, c := range cfgs {
		if c.EventCount <= 0 || c.EventDur <= 0 {
			continue
		}
		bucket := c.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		limiters = append(limiters, rate.NewLimiter(
			limiter.Per(c.EventCount, time.Duration(c.EventDur)*time.Second),
			bucket,
		))
	}
	switch len(limiters) {
	case 0:
		return nil
	case 1:
		return limiters[0]
	default:
		return limiter.NewMultiLimiter(limiters...)
	}
}
