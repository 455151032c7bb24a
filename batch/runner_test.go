package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"politefetch/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher 按URL返回预设结果
type fakeFetcher struct {
	mu       sync.Mutex
	outcomes map[string]fetch.Outcome
	calls    []string
	panicOn  string
}

func (f *fakeFetcher) Get(_ context.Context, url string) fetch.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if url == f.panicOn {
		panic("boom: " + url)
	}
	if out, ok := f.outcomes[url]; ok {
		return out
	}
	return fetch.Succeeded(200, 1024, 50*time.Millisecond)
}

// memStore 内存版StateStore，记录checkpoint次数
type memStore struct {
	mu          sync.Mutex
	states      map[string]*JobState
	checkpoints int
	failNext    bool
}

func newMemStore() *memStore {
	return &memStore{states: map[string]*JobState{}}
}

func (m *memStore) Checkpoint(state *JobState) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return "", fmt.Errorf("disk full")
	}
	m.checkpoints++
	state.LastSaveTime = time.Now()
	snapshot := *state
	snapshot.Completed = copySet(state.Completed)
	snapshot.Failed = copySet(state.Failed)
	snapshot.Results = append([]ResultRecord(nil), state.Results...)
	m.states[state.JobID] = &snapshot
	return "mem:" + state.JobID, nil
}

func (m *memStore) Load(jobID string) (*JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[jobID]
	if !ok {
		return nil, nil
	}
	return state, nil
}

func copySet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		out[k] = true
	}
	return out
}

// fixedDelayChecker 总是返回同一个crawl-delay
type fixedDelayChecker struct {
	delay time.Duration
}

func (c fixedDelayChecker) IsPermitted(string) bool { return true }

func (c fixedDelayChecker) PreferredDelay(string) (time.Duration, bool) {
	return c.delay, c.delay > 0
}

func newTestRunner(fetcher fetch.Fetcher, opts ...Option) *Runner {
	base := []Option{
		WithFetcher(fetcher),
		WithDefaultDelay(100 * time.Millisecond),
		WithAnalyzeRobots(false),
	}
	return NewRunner(append(base, opts...)...)
}

func TestRunInvalidWorkerCount(t *testing.T) {
	r := newTestRunner(&fakeFetcher{}, WithWorkers(0))
	_, err := r.Run(context.Background(), []string{"https://a.com/1"}, "")
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	r = newTestRunner(&fakeFetcher{}, WithWorkers(-3))
	_, err = r.Run(context.Background(), []string{"https://a.com/1"}, "")
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestRunRequiresFetcher(t *testing.T) {
	r := NewRunner(WithWorkers(1))
	_, err := r.Run(context.Background(), []string{"https://a.com/1"}, "")
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestRunEmptyURLList(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(&fakeFetcher{}, WithWorkers(2), WithStore(store))
	state, err := r.Run(context.Background(), nil, "empty-job")
	require.NoError(t, err)
	assert.Equal(t, 0, state.TotalURLs)
	assert.Equal(t, 0, state.ProcessedCount)
	assert.Zero(t, state.CompletionPercentage())
	// 空批次也要有最终保存
	assert.Equal(t, 1, store.checkpoints)
}

func TestRunAllSucceed(t *testing.T) {
	// 3个URL全部成功，单worker
	urls := []string{
		"https://a.com/1",
		"https://a.com/2",
		"https://b.com/1",
	}
	r := newTestRunner(&fakeFetcher{}, WithWorkers(1))
	state, err := r.Run(context.Background(), urls, "job-a")
	require.NoError(t, err)

	assert.Equal(t, 3, state.ProcessedCount)
	assert.Len(t, state.Completed, 3)
	assert.Empty(t, state.Failed)
	assert.Len(t, state.Results, 3)
	assert.Equal(t, float64(100), state.CompletionPercentage())
	for _, rec := range state.Results {
		assert.True(t, rec.Success)
		assert.Equal(t, 200, rec.StatusCode)
		assert.Equal(t, "worker-1", rec.Worker)
		require.NotNil(t, rec.RobotsAllowed)
		assert.True(t, *rec.RobotsAllowed)
	}
}

func TestRunPolicyDenied(t *testing.T) {
	// 一个被robots.txt拒绝，一个成功
	fetcher := &fakeFetcher{outcomes: map[string]fetch.Outcome{
		"https://a.com/blocked": fetch.DeniedOutcome(),
	}}
	r := newTestRunner(fetcher, WithWorkers(2))
	state, err := r.Run(context.Background(), []string{
		"https://a.com/blocked",
		"https://b.com/ok",
	}, "job-b")
	require.NoError(t, err)

	assert.Equal(t, 2, state.ProcessedCount)
	assert.True(t, state.Completed["https://b.com/ok"])
	assert.True(t, state.Failed["https://a.com/blocked"])

	var denied ResultRecord
	for _, rec := range state.Results {
		if rec.URL == "https://a.com/blocked" {
			denied = rec
		}
	}
	assert.False(t, denied.Success)
	assert.Equal(t, fetch.KindRobotsDisallowed, denied.ErrorKind)
	require.NotNil(t, denied.RobotsAllowed)
	assert.False(t, *denied.RobotsAllowed)

	summaryRate := float64(len(state.Completed)) / float64(len(state.Results)) * 100
	assert.Equal(t, float64(50), summaryRate)
}

func TestRunTransportFailure(t *testing.T) {
	fetcher := &fakeFetcher{outcomes: map[string]fetch.Outcome{
		"https://a.com/down": fetch.Failed(fetch.KindTimeout, "context deadline exceeded", 2*time.Second),
	}}
	r := newTestRunner(fetcher, WithWorkers(1))
	state, err := r.Run(context.Background(), []string{"https://a.com/down"}, "")
	require.NoError(t, err)

	rec := state.Results[0]
	assert.False(t, rec.Success)
	assert.Equal(t, fetch.KindTimeout, rec.ErrorKind)
	assert.Nil(t, rec.RobotsAllowed)
	assert.True(t, state.Failed["https://a.com/down"])
}

func TestRunTaskPanicBecomesFailure(t *testing.T) {
	fetcher := &fakeFetcher{panicOn: "https://a.com/panic"}
	r := newTestRunner(fetcher, WithWorkers(2))
	state, err := r.Run(context.Background(), []string{
		"https://a.com/panic",
		"https://b.com/ok",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, state.ProcessedCount)
	assert.True(t, state.Failed["https://a.com/panic"])
	for _, rec := range state.Results {
		if rec.URL == "https://a.com/panic" {
			assert.Equal(t, "panic", rec.ErrorKind)
			assert.Contains(t, rec.ErrorMessage, "boom")
		}
	}
}

func TestRunCheckpointInterval(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(&fakeFetcher{},
		WithWorkers(1),
		WithStore(store),
		WithCheckpointInterval(1),
	)
	_, err := r.Run(context.Background(), []string{
		"https://a.com/1", "https://b.com/2", "https://c.com/3",
	}, "job-ck")
	require.NoError(t, err)
	// 每个URL一次，外加最终一次
	assert.Equal(t, 4, store.checkpoints)
}

func TestRunCheckpointFailureDoesNotAbort(t *testing.T) {
	store := newMemStore()
	store.failNext = true
	r := newTestRunner(&fakeFetcher{},
		WithWorkers(1),
		WithStore(store),
		WithCheckpointInterval(1),
	)
	state, err := r.Run(context.Background(), []string{"https://a.com/1", "https://b.com/2"}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, state.ProcessedCount)
}

func TestRunStateInvariants(t *testing.T) {
	fetcher := &fakeFetcher{outcomes: map[string]fetch.Outcome{
		"https://b.com/bad": fetch.Failed(fetch.KindHTTPError, "error http status:500", time.Second),
	}}
	r := newTestRunner(fetcher, WithWorkers(3))
	urls := []string{
		"https://a.com/1", "https://b.com/bad", "https://c.com/2", "https://d.com/3",
	}
	state, err := r.Run(context.Background(), urls, "")
	require.NoError(t, err)

	assert.Equal(t, state.ProcessedCount, len(state.Completed)+len(state.Failed))
	for u := range state.Completed {
		assert.False(t, state.Failed[u])
	}
	assert.GreaterOrEqual(t, state.CompletionPercentage(), float64(0))
	assert.LessOrEqual(t, state.CompletionPercentage(), float64(100))
	// 输入顺序不变
	assert.Equal(t, urls, state.URLs)
}

func TestResumeProcessesOnlyRemaining(t *testing.T) {
	// 先跑完一个URL并保存，再resume剩下两个
	store := newMemStore()
	urls := []string{"https://a.com/1", "https://b.com/2", "https://c.com/3"}

	state := NewJobState("job-resume", urls, RunConfig{Workers: 1})
	state.MarkResult(ResultRecord{URL: urls[0], Domain: "a.com", Success: true, Timestamp: time.Now()})
	_, err := store.Checkpoint(state)
	require.NoError(t, err)

	loaded, err := store.Load("job-resume")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.ProcessedCount)

	fetcher := &fakeFetcher{}
	resumer := newTestRunner(fetcher, WithWorkers(2), WithStore(store))
	merged, err := resumer.Resume(context.Background(), "job-resume")
	require.NoError(t, err)

	assert.Equal(t, 3, merged.ProcessedCount)
	assert.Len(t, merged.Completed, 3)
	assert.Len(t, merged.Results, 3)
	// 已完成的不再抓
	assert.NotContains(t, fetcher.calls, urls[0])
	assert.ElementsMatch(t, []string{urls[1], urls[2]}, fetcher.calls)
}

func TestResumeCompleteJobIsNoop(t *testing.T) {
	store := newMemStore()
	state := NewJobState("job-done", []string{"https://a.com/1"}, RunConfig{Workers: 1})
	state.MarkResult(ResultRecord{URL: "https://a.com/1", Success: true, Timestamp: time.Now()})
	_, err := store.Checkpoint(state)
	require.NoError(t, err)

	fetcher := &fakeFetcher{}
	r := newTestRunner(fetcher, WithWorkers(1), WithStore(store))
	resumed, err := r.Resume(context.Background(), "job-done")
	require.NoError(t, err)

	assert.Equal(t, 1, resumed.ProcessedCount)
	assert.Empty(t, fetcher.calls)
}

func TestResumeUnknownJob(t *testing.T) {
	r := newTestRunner(&fakeFetcher{}, WithWorkers(1), WithStore(newMemStore()))
	_, err := r.Resume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunSameDomainSerialized(t *testing.T) {
	// 同域名两个URL，两个worker，延迟必须生效
	delay := 500 * time.Millisecond
	r := newTestRunner(&fakeFetcher{},
		WithWorkers(2),
		WithDefaultDelay(delay),
	)
	start := time.Now()
	state, err := r.Run(context.Background(), []string{
		"https://a.com/1", "https://a.com/2",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, state.ProcessedCount)
	assert.GreaterOrEqual(t, time.Since(start), delay-20*time.Millisecond)
}

func TestRunCrawlDelayOverridesDefault(t *testing.T) {
	// crawl-delay比默认大时取crawl-delay
	crawlDelay := 400 * time.Millisecond
	r := newTestRunner(&fakeFetcher{},
		WithWorkers(1),
		WithAnalyzeRobots(true),
		WithChecker(fixedDelayChecker{delay: crawlDelay}),
	)
	start := time.Now()
	state, err := r.Run(context.Background(), []string{
		"https://a.com/1", "https://a.com/2",
	}, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), crawlDelay-20*time.Millisecond)
	for _, rec := range state.Results {
		assert.Equal(t, crawlDelay.Seconds(), rec.CrawlDelay)
	}
}

// gatedFetcher 第一次调用时通知started，之后阻塞到release被关闭
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *gatedFetcher) Get(_ context.Context, _ string) fetch.Outcome {
	f.once.Do(func() { close(f.started) })
	<-f.release
	return fetch.Succeeded(200, 10, time.Millisecond)
}

func TestRunCancellationStopsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newGatedFetcher()
	store := newMemStore()
	r := newTestRunner(fetcher, WithWorkers(1), WithStore(store))

	go func() {
		<-fetcher.started
		cancel()
		// 先让投递goroutine观察到取消，再放行在途请求
		time.Sleep(50 * time.Millisecond)
		close(fetcher.release)
	}()
	state, err := r.Run(ctx, []string{
		"https://a.com/1", "https://b.com/2", "https://c.com/3",
	}, "job-cancel")
	require.NoError(t, err)
	// 取消后不投递新任务，在途的那个做完并被记录，最终状态仍会保存
	assert.Equal(t, 1, state.ProcessedCount)
	assert.Empty(t, state.Failed)
	assert.Equal(t, []string{"https://b.com/2", "https://c.com/3"}, state.RemainingURLs())
	assert.GreaterOrEqual(t, store.checkpoints, 1)
}

func TestRunCancelKeepsWaitingTasksResumable(t *testing.T) {
	// 同域名两个URL：一个在抓，另一个还在等域名间隔
	// 取消后等待中的任务不产生记录，resume时重试
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newGatedFetcher()
	store := newMemStore()
	urls := []string{"https://a.com/1", "https://a.com/2"}
	r := newTestRunner(fetcher,
		WithWorkers(2),
		WithStore(store),
		WithDefaultDelay(5*time.Second),
	)

	go func() {
		<-fetcher.started
		// 让另一个worker进入等待后再取消
		time.Sleep(50 * time.Millisecond)
		cancel()
		time.Sleep(50 * time.Millisecond)
		close(fetcher.release)
	}()
	state, err := r.Run(ctx, urls, "job-wait")
	require.NoError(t, err)

	// 只有在途的那个有记录，等待中的既不算成功也不算失败
	assert.Equal(t, 1, state.ProcessedCount)
	assert.Len(t, state.Completed, 1)
	assert.Empty(t, state.Failed)
	remaining := state.RemainingURLs()
	require.Len(t, remaining, 1)
	assert.False(t, state.Completed[remaining[0]])

	// resume只补抓剩下的那个
	retry := &fakeFetcher{}
	resumer := newTestRunner(retry, WithWorkers(1), WithStore(store))
	merged, err := resumer.Resume(context.Background(), "job-wait")
	require.NoError(t, err)
	assert.Equal(t, 2, merged.ProcessedCount)
	assert.Len(t, merged.Completed, 2)
	assert.Empty(t, merged.RemainingURLs())
	assert.Equal(t, remaining, retry.calls)
}

func TestNewJobID(t *testing.T) {
	a := NewJobID()
	b := NewJobID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "batch_")
}
