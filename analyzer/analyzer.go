package analyzer

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// Report robots.txt分析报告，作为结果记录的补充信息
type Report struct {
	SourceURL     string             `json:"source_url"`
	FileSize      int                `json:"file_size"`
	UserAgents    []string           `json:"user_agents"`
	AllowRules    int                `json:"total_allow_rules"`
	DisallowRules int                `json:"total_disallow_rules"`
	Sitemaps      []string           `json:"sitemaps"`
	CrawlDelays   map[string]float64 `json:"crawl_delays"`
	Errors        []string           `json:"errors"`
	Valid         bool               `json:"is_valid"`
	FetchedAt     time.Time          `json:"fetched_at"`
}

// Analyzer 抓取并分析站点的robots.txt
type Analyzer struct {
	client *http.Client
	options
}

func NewAnalyzer(opts ...Option) *Analyzer {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	a := &Analyzer{}
	a.options = options
	a.client = &http.Client{Timeout: a.Timeout}
	return a
}

// Analyze 获取URL所属站点的robots.txt并生成报告
// robots.txt不存在时返回nil报告，不算错误
func (a *Analyzer) Analyze(rawURL string) (*Report, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	resp, err := a.client.Get(robotsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		a.Logger.Debug("no robots.txt found", zap.String("url", robotsURL))
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch robots.txt: status %v", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return Parse(string(body), robotsURL), nil
}

// Parse 逐行统计规则，同时用robotstxt解析器做有效性校验
func Parse(content, sourceURL string) *Report {
	report := &Report{
		SourceURL:   sourceURL,
		FileSize:    len(content),
		CrawlDelays: map[string]float64{},
		FetchedAt:   time.Now(),
	}

	seenAgents := map[string]bool{}
	currentAgent := "*"
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if !found {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: missing colon", lineNo))
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)
		switch field {
		case "user-agent":
			currentAgent = value
			if !seenAgents[value] {
				seenAgents[value] = true
				report.UserAgents = append(report.UserAgents, value)
			}
		case "allow":
			report.AllowRules++
		case "disallow":
			report.DisallowRules++
		case "sitemap":
			if validSitemapURL(value) {
				report.Sitemaps = append(report.Sitemaps, value)
			} else {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: invalid sitemap url %q", lineNo, value))
			}
		case "crawl-delay":
			delay, err := strconv.ParseFloat(value, 64)
			if err != nil || delay < 0 {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: invalid crawl-delay %q", lineNo, value))
				continue
			}
			report.CrawlDelays[currentAgent] = delay
		}
	}

	_, err := robotstxt.FromBytes([]byte(content))
	report.Valid = err == nil && len(report.Errors) == 0
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
	}

	return report
}

func validSitemapURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
