package report

import (
	"sort"
	"time"

	"politefetch/batch"
)

// Summary 任务状态的汇总统计，对部分完成的任务同样适用
type Summary struct {
	JobID        string          `json:"job_id"`
	StartTime    time.Time       `json:"start_time"`
	LastSaveTime time.Time       `json:"last_save_time"`
	Duration     time.Duration   `json:"duration"`
	Config       batch.RunConfig `json:"configuration"`

	TotalURLs            int     `json:"total_urls"`
	ProcessedCount       int     `json:"processed_count"`
	Successful           int     `json:"successful"`
	Failed               int     `json:"failed"`
	SuccessRate          float64 `json:"success_rate_percent"`
	CompletionPercentage float64 `json:"completion_percentage"`

	ResponseTime TimingStats `json:"response_time"`
	Data         DataStats   `json:"data_transfer"`

	Domains     []DomainStat `json:"domains"`
	ErrorKinds  []KindCount  `json:"error_types"`
	StatusCodes []CodeCount  `json:"status_codes"`

	Robots  *RobotsSummary `json:"robots_analysis,omitempty"`
	Workers []WorkerStat   `json:"worker_performance,omitempty"`
}

type TimingStats struct {
	MinSeconds float64 `json:"min_seconds"`
	AvgSeconds float64 `json:"average_seconds"`
	MaxSeconds float64 `json:"max_seconds"`
	Samples    int     `json:"total_samples"`
}

type DataStats struct {
	TotalBytes   int64   `json:"total_bytes"`
	AverageBytes float64 `json:"average_bytes_per_response"`
	Responses    int     `json:"total_responses"`
}

type DomainStat struct {
	Domain      string  `json:"domain"`
	Count       int     `json:"count"`
	Successful  int     `json:"successful"`
	SuccessRate float64 `json:"success_rate_percent"`
}

type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

type CodeCount struct {
	Code  int `json:"code"`
	Count int `json:"count"`
}

type RobotsSummary struct {
	TotalAnalyzed     int     `json:"total_analyzed"`
	ReportsWithErrors int     `json:"reports_with_errors"`
	TotalSitemaps     int     `json:"total_sitemaps_found"`
	CrawlDelayCount   int     `json:"crawl_delay_count"`
	CrawlDelayMin     float64 `json:"crawl_delay_min"`
	CrawlDelayAvg     float64 `json:"crawl_delay_avg"`
	CrawlDelayMax     float64 `json:"crawl_delay_max"`
}

type WorkerStat struct {
	Worker      string  `json:"worker"`
	Processed   int     `json:"total_processed"`
	Successful  int     `json:"successful"`
	SuccessRate float64 `json:"success_rate_percent"`
}

// topDomains 报告里最多展示的域名/错误类型条目数
const topN = 10

// Build 由任务状态生成汇总，纯函数，不修改state
// 所有除法对零分母返回0
func Build(state *batch.JobState) Summary {
	s := Summary{
		JobID:                state.JobID,
		StartTime:            state.StartTime,
		LastSaveTime:         state.LastSaveTime,
		Config:               state.Config,
		TotalURLs:            state.TotalURLs,
		ProcessedCount:       state.ProcessedCount,
		Successful:           len(state.Completed),
		Failed:               len(state.Failed),
		CompletionPercentage: state.CompletionPercentage(),
	}
	if !state.StartTime.IsZero() && !state.LastSaveTime.IsZero() {
		s.Duration = state.LastSaveTime.Sub(state.StartTime)
	}
	if total := len(state.Results); total > 0 {
		success := 0
		for _, r := range state.Results {
			if r.Success {
				success++
			}
		}
		s.SuccessRate = float64(success) / float64(total) * 100
	}

	s.ResponseTime = timingStats(state.Results)
	s.Data = dataStats(state.Results)
	s.Domains = domainStats(state.Results)
	s.ErrorKinds = errorKinds(state.Results)
	s.StatusCodes = statusCodes(state.Results)
	if state.Config.AnalyzeRobots {
		s.Robots = robotsSummary(state.Results)
	}
	s.Workers = workerStats(state.Results)

	return s
}

func timingStats(results []batch.ResultRecord) TimingStats {
	var stats TimingStats
	var sum float64
	for _, r := range results {
		if !r.Success || r.ResponseTime <= 0 {
			continue
		}
		if stats.Samples == 0 || r.ResponseTime < stats.MinSeconds {
			stats.MinSeconds = r.ResponseTime
		}
		if r.ResponseTime > stats.MaxSeconds {
			stats.MaxSeconds = r.ResponseTime
		}
		sum += r.ResponseTime
		stats.Samples++
	}
	if stats.Samples > 0 {
		stats.AvgSeconds = sum / float64(stats.Samples)
	}
	return stats
}

func dataStats(results []batch.ResultRecord) DataStats {
	var stats DataStats
	for _, r := range results {
		if !r.Success {
			continue
		}
		stats.TotalBytes += int64(r.ResponseSize)
		stats.Responses++
	}
	if stats.Responses > 0 {
		stats.AverageBytes = float64(stats.TotalBytes) / float64(stats.Responses)
	}
	return stats
}

func domainStats(results []batch.ResultRecord) []DomainStat {
	byDomain := map[string]*DomainStat{}
	for _, r := range results {
		stat, ok := byDomain[r.Domain]
		if !ok {
			stat = &DomainStat{Domain: r.Domain}
			byDomain[r.Domain] = stat
		}
		stat.Count++
		if r.Success {
			stat.Successful++
		}
	}
	stats := make([]DomainStat, 0, len(byDomain))
	for _, stat := range byDomain {
		if stat.Count > 0 {
			stat.SuccessRate = float64(stat.Successful) / float64(stat.Count) * 100
		}
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Domain < stats[j].Domain
	})
	if len(stats) > topN {
		stats = stats[:topN]
	}
	return stats
}

func errorKinds(results []batch.ResultRecord) []KindCount {
	counts := map[string]int{}
	for _, r := range results {
		if !r.Success && r.ErrorKind != "" {
			counts[r.ErrorKind]++
		}
	}
	kinds := make([]KindCount, 0, len(counts))
	for kind, count := range counts {
		kinds = append(kinds, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(kinds, func(i, j int) bool {
		if kinds[i].Count != kinds[j].Count {
			return kinds[i].Count > kinds[j].Count
		}
		return kinds[i].Kind < kinds[j].Kind
	})
	if len(kinds) > topN {
		kinds = kinds[:topN]
	}
	return kinds
}

func statusCodes(results []batch.ResultRecord) []CodeCount {
	counts := map[int]int{}
	for _, r := range results {
		if r.Success && r.StatusCode > 0 {
			counts[r.StatusCode]++
		}
	}
	codes := make([]CodeCount, 0, len(counts))
	for code, count := range counts {
		codes = append(codes, CodeCount{Code: code, Count: count})
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].Count != codes[j].Count {
			return codes[i].Count > codes[j].Count
		}
		return codes[i].Code < codes[j].Code
	})
	return codes
}

func robotsSummary(results []batch.ResultRecord) *RobotsSummary {
	s := &RobotsSummary{}
	var delaySum float64
	for _, r := range results {
		if r.Enrichment != nil {
			s.TotalAnalyzed++
			s.TotalSitemaps += len(r.Enrichment.Sitemaps)
			if len(r.Enrichment.Errors) > 0 {
				s.ReportsWithErrors++
			}
		}
		if r.CrawlDelay > 0 {
			if s.CrawlDelayCount == 0 || r.CrawlDelay < s.CrawlDelayMin {
				s.CrawlDelayMin = r.CrawlDelay
			}
			if r.CrawlDelay > s.CrawlDelayMax {
				s.CrawlDelayMax = r.CrawlDelay
			}
			delaySum += r.CrawlDelay
			s.CrawlDelayCount++
		}
	}
	if s.CrawlDelayCount > 0 {
		s.CrawlDelayAvg = delaySum / float64(s.CrawlDelayCount)
	}
	return s
}

func workerStats(results []batch.ResultRecord) []WorkerStat {
	byWorker := map[string]*WorkerStat{}
	for _, r := range results {
		if r.Worker == "" {
			continue
		}
		stat, ok := byWorker[r.Worker]
		if !ok {
			stat = &WorkerStat{Worker: r.Worker}
			byWorker[r.Worker] = stat
		}
		stat.Processed++
		if r.Success {
			stat.Successful++
		}
	}
	stats := make([]WorkerStat, 0, len(byWorker))
	for _, stat := range byWorker {
		if stat.Processed > 0 {
			stat.SuccessRate = float64(stat.Successful) / float64(stat.Processed) * 100
		}
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Worker < stats[j].Worker
	})
	return stats
}
