package report

import (
	"testing"
	"time"

	"politefetch/analyzer"
	"politefetch/batch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func buildTestState() *batch.JobState {
	state := batch.NewJobState("job-sum", []string{
		"https://a.com/1", "https://a.com/2", "https://a.com/3", "https://b.com/1",
	}, batch.RunConfig{Workers: 2, DelaySeconds: 1, AnalyzeRobots: true})
	state.StartTime = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	state.LastSaveTime = state.StartTime.Add(90 * time.Second)

	state.MarkResult(batch.ResultRecord{
		URL: "https://a.com/1", Domain: "a.com", Success: true,
		StatusCode: 200, ResponseSize: 1000, ResponseTime: 0.2,
		RobotsAllowed: boolPtr(true), Worker: "worker-1",
	})
	state.MarkResult(batch.ResultRecord{
		URL: "https://a.com/2", Domain: "a.com", Success: true,
		StatusCode: 200, ResponseSize: 3000, ResponseTime: 0.6,
		RobotsAllowed: boolPtr(true), CrawlDelay: 2, Worker: "worker-2",
		Enrichment: &analyzer.Report{Sitemaps: []string{"https://a.com/sitemap.xml"}},
	})
	state.MarkResult(batch.ResultRecord{
		URL: "https://a.com/3", Domain: "a.com",
		ErrorKind: "timeout", ErrorMessage: "context deadline exceeded",
		Worker: "worker-1",
	})
	state.MarkResult(batch.ResultRecord{
		URL: "https://b.com/1", Domain: "b.com",
		ErrorKind: "robots_disallowed", RobotsAllowed: boolPtr(false),
		Worker: "worker-2",
	})
	return state
}

func TestBuildCounts(t *testing.T) {
	s := Build(buildTestState())

	assert.Equal(t, "job-sum", s.JobID)
	assert.Equal(t, 4, s.TotalURLs)
	assert.Equal(t, 4, s.ProcessedCount)
	assert.Equal(t, 2, s.Successful)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, float64(50), s.SuccessRate)
	assert.Equal(t, float64(100), s.CompletionPercentage)
	assert.Equal(t, 90*time.Second, s.Duration)
}

func TestBuildTimingAndData(t *testing.T) {
	s := Build(buildTestState())

	// 只统计成功请求
	assert.Equal(t, 2, s.ResponseTime.Samples)
	assert.Equal(t, 0.2, s.ResponseTime.MinSeconds)
	assert.Equal(t, 0.6, s.ResponseTime.MaxSeconds)
	assert.InDelta(t, 0.4, s.ResponseTime.AvgSeconds, 1e-9)

	assert.Equal(t, int64(4000), s.Data.TotalBytes)
	assert.Equal(t, 2, s.Data.Responses)
	assert.Equal(t, float64(2000), s.Data.AverageBytes)
}

func TestBuildDomainStats(t *testing.T) {
	s := Build(buildTestState())

	require.Len(t, s.Domains, 2)
	// 按请求量降序
	assert.Equal(t, "a.com", s.Domains[0].Domain)
	assert.Equal(t, 3, s.Domains[0].Count)
	assert.Equal(t, 2, s.Domains[0].Successful)
	assert.InDelta(t, 66.6, s.Domains[0].SuccessRate, 0.1)
	assert.Equal(t, "b.com", s.Domains[1].Domain)
	assert.Equal(t, float64(0), s.Domains[1].SuccessRate)
}

func TestBuildErrorAndStatusBreakdown(t *testing.T) {
	s := Build(buildTestState())

	require.Len(t, s.ErrorKinds, 2)
	kinds := map[string]int{}
	for _, k := range s.ErrorKinds {
		kinds[k.Kind] = k.Count
	}
	assert.Equal(t, map[string]int{"timeout": 1, "robots_disallowed": 1}, kinds)

	require.Len(t, s.StatusCodes, 1)
	assert.Equal(t, 200, s.StatusCodes[0].Code)
	assert.Equal(t, 2, s.StatusCodes[0].Count)
}

func TestBuildRobotsSummary(t *testing.T) {
	s := Build(buildTestState())

	require.NotNil(t, s.Robots)
	assert.Equal(t, 1, s.Robots.TotalAnalyzed)
	assert.Equal(t, 1, s.Robots.TotalSitemaps)
	assert.Equal(t, 1, s.Robots.CrawlDelayCount)
	assert.Equal(t, float64(2), s.Robots.CrawlDelayMin)
	assert.Equal(t, float64(2), s.Robots.CrawlDelayMax)
	assert.Equal(t, float64(2), s.Robots.CrawlDelayAvg)
}

func TestBuildRobotsDisabled(t *testing.T) {
	state := buildTestState()
	state.Config.AnalyzeRobots = false
	s := Build(state)
	assert.Nil(t, s.Robots)
}

func TestBuildWorkerStats(t *testing.T) {
	s := Build(buildTestState())

	require.Len(t, s.Workers, 2)
	assert.Equal(t, "worker-1", s.Workers[0].Worker)
	assert.Equal(t, 2, s.Workers[0].Processed)
	assert.Equal(t, float64(50), s.Workers[0].SuccessRate)
	assert.Equal(t, "worker-2", s.Workers[1].Worker)
	assert.Equal(t, float64(50), s.Workers[1].SuccessRate)
}

func TestBuildEmptyState(t *testing.T) {
	state := batch.NewJobState("job-empty", nil, batch.RunConfig{})
	s := Build(state)

	assert.Equal(t, 0, s.TotalURLs)
	assert.Equal(t, float64(0), s.SuccessRate)
	assert.Equal(t, float64(0), s.CompletionPercentage)
	assert.Equal(t, 0, s.ResponseTime.Samples)
	assert.Equal(t, float64(0), s.Data.AverageBytes)
	assert.Empty(t, s.Domains)
	assert.Empty(t, s.ErrorKinds)
	assert.Empty(t, s.StatusCodes)
}

func TestBuildDoesNotMutateState(t *testing.T) {
	state := buildTestState()
	before := state.ProcessedCount
	resultsLen := len(state.Results)
	_ = Build(state)
	assert.Equal(t, before, state.ProcessedCount)
	assert.Len(t, state.Results, resultsLen)
}
