package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"politefetch/limiter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidWorkers = errors.New("worker count must be at least 1")
	ErrNoFetcher      = errors.New("fetcher is required")
	ErrJobNotFound    = errors.New("job state not found")
)

// Runner 批处理引擎
// 固定数量的worker并发处理URL列表，按域名限速，定期保存状态
type Runner struct {
	domains *limiter.DomainLimiter
	options
}

func NewRunner(opts ...Option) *Runner {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	r := &Runner{
		domains: limiter.NewDomainLimiter(),
	}
	r.options = options
	return r
}

// NewJobID 生成任务标识
func NewJobID() string {
	return "batch_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Run 处理一批URL，所有任务结束后返回
// 单个URL的失败不会中断批次，只有启动前的配置错误会返回error
// ctx取消后停止投递新任务，在途任务完成后做最终保存
func (r *Runner) Run(ctx context.Context, urls []string, jobID string) (*JobState, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if jobID == "" {
		jobID = NewJobID()
	}
	state := NewJobState(jobID, urls, RunConfig{
		Workers:        r.Workers,
		DelaySeconds:   r.DefaultDelay.Seconds(),
		AnalyzeRobots:  r.AnalyzeRobots,
		TimeoutSeconds: r.Timeout.Seconds(),
	})
	r.Logger.Info("starting batch job",
		zap.String("job_id", jobID),
		zap.Int("urls", len(urls)),
		zap.Int("workers", r.Workers),
		zap.Bool("analyze_robots", r.AnalyzeRobots),
	)

	r.process(ctx, state, urls)

	r.Logger.Info("batch job completed",
		zap.String("job_id", jobID),
		zap.Int("successful", len(state.Completed)),
		zap.Int("failed", len(state.Failed)),
		zap.Duration("elapsed", time.Since(state.StartTime)),
	)
	return state, nil
}

// Resume 加载之前保存的任务状态，只处理剩余的URL并合并结果
// 剩余为空时原样返回
func (r *Runner) Resume(ctx context.Context, jobID string) (*JobState, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if r.Store == nil {
		return nil, errors.New("resume requires a state store")
	}
	state, err := r.Store.Load(jobID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	remaining := state.RemainingURLs()
	if len(remaining) == 0 {
		r.Logger.Info("job already complete", zap.String("job_id", jobID))
		return state, nil
	}
	r.Logger.Info("resuming batch job",
		zap.String("job_id", jobID),
		zap.Int("remaining", len(remaining)),
	)

	r.process(ctx, state, remaining)
	return state, nil
}

func (r *Runner) validate() error {
	if r.Workers < 1 {
		return ErrInvalidWorkers
	}
	if r.Fetcher == nil {
		return ErrNoFetcher
	}
	return nil
}

// process 核心循环：worker池消费URL，单goroutine收集结果保持单写者
func (r *Runner) process(ctx context.Context, state *JobState, urls []string) {
	sink := ProgressSink(nopProgress{})
	if r.Progress != nil && len(urls) > 0 {
		sink = r.Progress(len(urls))
	}
	defer sink.Close()

	tasks := make(chan string)
	results := make(chan ResultRecord)

	var wg sync.WaitGroup
	for i := 1; i <= r.Workers; i++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for u := range tasks {
				if rec, ok := r.processURL(ctx, u, workerID); ok {
					results <- rec
				}
			}
		}(fmt.Sprintf("worker-%d", i))
	}

	go func() {
		defer close(tasks)
		for _, u := range urls {
			select {
			case <-ctx.Done():
				// 中断：不再投递，在途任务自然结束
				r.Logger.Warn("submission stopped", zap.Error(ctx.Err()))
				return
			case tasks <- u:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for rec := range results {
		state.MarkResult(rec)
		sink.Update(1)
		if r.CheckpointEvery > 0 && state.ProcessedCount%r.CheckpointEvery == 0 {
			r.checkpoint(state)
		}
	}

	r.checkpoint(state)
}

// processURL 单个URL的完整处理，panic在这里兜底转成失败记录
// 还在等限速时被取消的任务不算处理过，ok为false，resume时重试
func (r *Runner) processURL(ctx context.Context, url, workerID string) (rec ResultRecord, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Error("task panicked",
				zap.String("url", url),
				zap.Any("panic", p),
			)
			rec = ResultRecord{
				URL:          url,
				Domain:       limiter.Domain(url),
				Timestamp:    time.Now(),
				ErrorKind:    "panic",
				ErrorMessage: fmt.Sprint(p),
				Worker:       workerID,
			}
			ok = true
		}
	}()

	domain := limiter.Domain(url)
	rec = ResultRecord{
		URL:       url,
		Domain:    domain,
		Timestamp: time.Now(),
		Worker:    workerID,
	}

	delay := r.DefaultDelay
	if r.AnalyzeRobots && r.Checker != nil {
		if preferred, ok := r.Checker.PreferredDelay(url); ok {
			rec.CrawlDelay = preferred.Seconds()
			if preferred > delay {
				delay = preferred
			}
		}
	}

	if r.Limit != nil {
		if err := r.Limit.Wait(ctx); err != nil {
			r.Logger.Debug("task not started", zap.String("url", url), zap.Error(err))
			return ResultRecord{}, false
		}
	}
	if err := r.domains.Acquire(ctx, domain, delay); err != nil {
		r.Logger.Debug("task not started", zap.String("url", url), zap.Error(err))
		return ResultRecord{}, false
	}

	// 过了限速关口就算在途，取消不打断，让请求自然做完
	out := r.Fetcher.Get(context.WithoutCancel(ctx), url)
	switch {
	case out.Denied:
		allowed := false
		rec.RobotsAllowed = &allowed
		rec.ErrorKind = out.ErrorKind
		rec.ErrorMessage = out.ErrorMessage
		r.Logger.Warn("failed to process url",
			zap.String("url", url),
			zap.String("reason", out.ErrorMessage),
		)
	case !out.Success():
		rec.ErrorKind = out.ErrorKind
		rec.ErrorMessage = out.ErrorMessage
		if out.Elapsed > 0 {
			rec.ResponseTime = out.Elapsed.Seconds()
		}
		r.Logger.Warn("failed to process url",
			zap.String("url", url),
			zap.String("error_kind", out.ErrorKind),
			zap.String("error", out.ErrorMessage),
		)
	default:
		allowed := true
		rec.RobotsAllowed = &allowed
		rec.Success = true
		rec.StatusCode = out.StatusCode
		rec.ResponseSize = out.Size
		rec.ResponseTime = out.Elapsed.Seconds()
		r.Logger.Info("successfully processed url",
			zap.String("url", url),
			zap.Int("status", out.StatusCode),
			zap.Int("size", out.Size),
			zap.Duration("elapsed", out.Elapsed),
		)
	}

	if r.AnalyzeRobots && r.Analyzer != nil {
		report, err := r.Analyzer.Analyze(url)
		if err != nil {
			// 补充分析失败不影响任务结果
			r.Logger.Warn("robots.txt analysis failed",
				zap.String("url", url),
				zap.Error(err),
			)
		} else {
			rec.Enrichment = report
		}
	}

	return rec, true
}

// checkpoint 保存失败只记日志，不中断批次
func (r *Runner) checkpoint(state *JobState) {
	if r.Store == nil {
		return
	}
	location, err := r.Store.Checkpoint(state)
	if err != nil {
		r.Logger.Error("checkpoint failed",
			zap.String("job_id", state.JobID),
			zap.Error(err),
		)
		return
	}
	r.Logger.Debug("saved job state", zap.String("location", location))
}
