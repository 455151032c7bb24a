package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"politefetch/batch"

	"go.uber.org/zap"
)

const (
	// snapshotVersion 快照格式版本，加载时校验
	snapshotVersion = 1
	stateExt        = ".json"
)

// snapshot 落盘的状态结构，显式schema保证跨实现可读
type snapshot struct {
	Version        int                  `json:"version"`
	JobID          string               `json:"job_id"`
	URLs           []string             `json:"urls"`
	Completed      []string             `json:"completed_urls"`
	Failed         []string             `json:"failed_urls"`
	Results        []batch.ResultRecord `json:"results"`
	StartTime      time.Time            `json:"start_time"`
	LastSaveTime   time.Time            `json:"last_save_time"`
	TotalURLs      int                  `json:"total_urls"`
	ProcessedCount int                  `json:"processed_count"`
	Config         batch.RunConfig      `json:"configuration"`
}

// FileStore 每个任务一个JSON快照文件，文件名由job id决定
type FileStore struct {
	dir string
	options
}

func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &FileStore{dir: dir}
	s.options = options
	return s, nil
}

// Checkpoint 写入临时文件后rename替换，读取方看不到半截文件
func (s *FileStore) Checkpoint(state *batch.JobState) (string, error) {
	state.LastSaveTime = time.Now()
	snap := snapshot{
		Version:        snapshotVersion,
		JobID:          state.JobID,
		URLs:           state.URLs,
		Completed:      sortedKeys(state.Completed),
		Failed:         sortedKeys(state.Failed),
		Results:        state.Results,
		StartTime:      state.StartTime,
		LastSaveTime:   state.LastSaveTime,
		TotalURLs:      state.TotalURLs,
		ProcessedCount: state.ProcessedCount,
		Config:         state.Config,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job state: %w", err)
	}

	target := s.statePath(state.JobID)
	tmp, err := os.CreateTemp(s.dir, sanitize(state.JobID)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("replace state file: %w", err)
	}
	s.Logger.Debug("saved job state", zap.String("file", target))

	return target, nil
}

// Load 没有快照时返回(nil, nil)，损坏或版本不符时报错
func (s *FileStore) Load(jobID string) (*batch.JobState, error) {
	data, err := os.ReadFile(s.statePath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported state version %d", snap.Version)
	}

	state := &batch.JobState{
		JobID:          snap.JobID,
		URLs:           snap.URLs,
		Completed:      toSet(snap.Completed),
		Failed:         toSet(snap.Failed),
		Results:        snap.Results,
		StartTime:      snap.StartTime,
		LastSaveTime:   snap.LastSaveTime,
		TotalURLs:      snap.TotalURLs,
		ProcessedCount: snap.ProcessedCount,
		Config:         snap.Config,
	}
	return state, nil
}

// ListJobs 已持久化的任务ID，按字典序
func (s *FileStore) ListJobs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read state dir: %w", err)
	}
	var jobIDs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, stateExt) {
			continue
		}
		jobIDs = append(jobIDs, strings.TrimSuffix(name, stateExt))
	}
	sort.Strings(jobIDs)
	return jobIDs, nil
}

// Purge 删除修改时间早于maxAge的快照，返回删除数量
func (s *FileStore) Purge(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read state dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	purged := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), stateExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.Logger.Warn("stat state file failed", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.dir, e.Name())
			if err := os.Remove(path); err != nil {
				s.Logger.Warn("remove state file failed", zap.String("file", path), zap.Error(err))
				continue
			}
			purged++
		}
	}
	if purged > 0 {
		s.Logger.Info("purged old job states", zap.Int("count", purged))
	}
	return purged, nil
}

func (s *FileStore) statePath(jobID string) string {
	return filepath.Join(s.dir, sanitize(jobID)+stateExt)
}

// sanitize 防止job id里的路径字符逃出状态目录
func sanitize(jobID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(jobID)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
