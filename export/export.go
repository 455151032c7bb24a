package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"politefetch/batch"
)

// ToCSV 把任务的全部结果记录导出为CSV，一行一个URL
func ToCSV(state *batch.JobState, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"url", "domain", "success", "timestamp", "status_code",
		"response_size", "response_time", "robots_allowed", "crawl_delay",
		"error_type", "error_message", "processed_by_worker",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range state.Results {
		row := []string{
			r.URL,
			r.Domain,
			strconv.FormatBool(r.Success),
			r.Timestamp.Format(time.RFC3339),
			optInt(r.StatusCode),
			optInt(r.ResponseSize),
			optFloat(r.ResponseTime),
			optBool(r.RobotsAllowed),
			optFloat(r.CrawlDelay),
			r.ErrorKind,
			r.ErrorMessage,
			r.Worker,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()

	return w.Error()
}

// jsonExport 导出的JSON外层结构
type jsonExport struct {
	JobMetadata jsonMetadata         `json:"job_metadata"`
	Results     []batch.ResultRecord `json:"results"`
}

type jsonMetadata struct {
	JobID                string          `json:"job_id"`
	TotalURLs            int             `json:"total_urls"`
	ProcessedCount       int             `json:"processed_count"`
	SuccessCount         int             `json:"success_count"`
	FailureCount         int             `json:"failure_count"`
	CompletionPercentage float64         `json:"completion_percentage"`
	StartTime            time.Time       `json:"start_time"`
	LastSaveTime         time.Time       `json:"last_save_time"`
	Configuration        batch.RunConfig `json:"configuration"`
}

// ToJSON 导出为JSON，pretty控制缩进
func ToJSON(state *batch.JobState, outputFile string, pretty bool) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	payload := jsonExport{
		JobMetadata: jsonMetadata{
			JobID:                state.JobID,
			TotalURLs:            state.TotalURLs,
			ProcessedCount:       state.ProcessedCount,
			SuccessCount:         len(state.Completed),
			FailureCount:         len(state.Failed),
			CompletionPercentage: state.CompletionPercentage(),
			StartTime:            state.StartTime,
			LastSaveTime:         state.LastSaveTime,
			Configuration:        state.Config,
		},
		Results: state.Results,
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func optInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func optFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func optBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
