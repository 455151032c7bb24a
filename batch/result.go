package batch

import (
	"time"

	"politefetch/analyzer"
)

// ResultRecord 一个URL的处理结果
// 成功字段与错误字段互斥：Success为true时StatusCode等有效，否则ErrorKind有效
type ResultRecord struct {
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`

	StatusCode   int     `json:"status_code,omitempty"`
	ResponseSize int     `json:"response_size,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"`
	// RobotsAllowed 策略检查的结论，没检查过时为nil
	RobotsAllowed *bool   `json:"robots_allowed,omitempty"`
	CrawlDelay    float64 `json:"crawl_delay,omitempty"`

	Enrichment *analyzer.Report `json:"robots_analysis,omitempty"`

	ErrorKind    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Worker string `json:"processed_by_worker,omitempty"`
}
