package batch

import (
	"time"
)

// RunConfig 一次批处理的配置快照，随状态一起持久化
type RunConfig struct {
	Workers        int     `json:"max_workers"`
	DelaySeconds   float64 `json:"delay_per_domain"`
	AnalyzeRobots  bool    `json:"analyze_robots"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// JobState 一次批处理任务的全部状态
// 只由runner的结果收集循环写入，交给report后只读
type JobState struct {
	JobID string
	// URLs 创建时固定的输入列表，保持原始顺序
	URLs      []string
	Completed map[string]bool
	Failed    map[string]bool
	Results   []ResultRecord

	StartTime    time.Time
	LastSaveTime time.Time
	TotalURLs    int
	// ProcessedCount 恒等于len(Completed)+len(Failed)
	ProcessedCount int

	Config RunConfig
}

func NewJobState(jobID string, urls []string, cfg RunConfig) *JobState {
	return &JobState{
		JobID:     jobID,
		URLs:      append([]string(nil), urls...),
		Completed: map[string]bool{},
		Failed:    map[string]bool{},
		StartTime: time.Now(),
		TotalURLs: len(urls),
		Config:    cfg,
	}
}

// MarkResult 记录一个完成的任务，URL进入completed或failed之一
func (s *JobState) MarkResult(rec ResultRecord) {
	s.Results = append(s.Results, rec)
	if rec.Success {
		s.Completed[rec.URL] = true
	} else {
		s.Failed[rec.URL] = true
	}
	s.ProcessedCount++
}

// CompletionPercentage 完成百分比，total为0时返回0
func (s *JobState) CompletionPercentage() float64 {
	if s.TotalURLs == 0 {
		return 0
	}
	return float64(s.ProcessedCount) / float64(s.TotalURLs) * 100
}

// RemainingURLs 还没处理的URL，保持输入顺序
func (s *JobState) RemainingURLs() []string {
	var remaining []string
	for _, u := range s.URLs {
		if !s.Completed[u] && !s.Failed[u] {
			remaining = append(remaining, u)
		}
	}
	return remaining
}
