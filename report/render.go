package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render 把汇总输出成终端表格
func Render(w io.Writer, s Summary) {
	overall := table.NewWriter()
	overall.SetOutputMirror(w)
	overall.SetTitle("Batch Job %s", s.JobID)
	overall.AppendRows([]table.Row{
		{"Total URLs", s.TotalURLs},
		{"Processed", s.ProcessedCount},
		{"Successful", fmt.Sprintf("%d (%.1f%%)", s.Successful, s.SuccessRate)},
		{"Failed", s.Failed},
		{"Completion", fmt.Sprintf("%.1f%%", s.CompletionPercentage)},
	})
	if s.Duration > 0 {
		overall.AppendRow(table.Row{"Duration", s.Duration.Round(10 * time.Millisecond).String()})
	}
	if s.ResponseTime.Samples > 0 {
		overall.AppendRow(table.Row{"Response Time", fmt.Sprintf("min %.3fs / avg %.3fs / max %.3fs",
			s.ResponseTime.MinSeconds, s.ResponseTime.AvgSeconds, s.ResponseTime.MaxSeconds)})
	}
	if s.Data.Responses > 0 {
		overall.AppendRow(table.Row{"Data", fmt.Sprintf("%.2f MB total / %.0f bytes avg",
			float64(s.Data.TotalBytes)/(1024*1024), s.Data.AverageBytes)})
	}
	overall.Render()

	if len(s.Domains) > 0 {
		domains := table.NewWriter()
		domains.SetOutputMirror(w)
		domains.SetTitle("Domains")
		domains.AppendHeader(table.Row{"Domain", "URLs", "Success Rate"})
		for _, d := range s.Domains {
			domains.AppendRow(table.Row{d.Domain, d.Count, fmt.Sprintf("%.1f%%", d.SuccessRate)})
		}
		domains.Render()
	}

	if len(s.ErrorKinds) > 0 {
		errs := table.NewWriter()
		errs.SetOutputMirror(w)
		errs.SetTitle("Errors")
		errs.AppendHeader(table.Row{"Kind", "Count"})
		for _, e := range s.ErrorKinds {
			errs.AppendRow(table.Row{e.Kind, e.Count})
		}
		errs.Render()
	}

	if len(s.StatusCodes) > 0 {
		codes := table.NewWriter()
		codes.SetOutputMirror(w)
		codes.SetTitle("HTTP Status")
		codes.AppendHeader(table.Row{"Code", "Count"})
		for _, c := range s.StatusCodes {
			codes.AppendRow(table.Row{c.Code, c.Count})
		}
		codes.Render()
	}

	if s.Robots != nil && s.Robots.TotalAnalyzed > 0 {
		robots := table.NewWriter()
		robots.SetOutputMirror(w)
		robots.SetTitle("Robots.txt")
		robots.AppendRows([]table.Row{
			{"Files Analyzed", s.Robots.TotalAnalyzed},
			{"Files With Errors", s.Robots.ReportsWithErrors},
			{"Sitemaps Found", s.Robots.TotalSitemaps},
		})
		if s.Robots.CrawlDelayCount > 0 {
			robots.AppendRow(table.Row{"Crawl Delays", fmt.Sprintf("%d urls, %.1fs avg (%.1fs - %.1fs)",
				s.Robots.CrawlDelayCount, s.Robots.CrawlDelayAvg, s.Robots.CrawlDelayMin, s.Robots.CrawlDelayMax)})
		}
		robots.Render()
	}

	if len(s.Workers) > 0 {
		workers := table.NewWriter()
		workers.SetOutputMirror(w)
		workers.SetTitle("Workers")
		workers.AppendHeader(table.Row{"Worker", "Processed", "Success Rate"})
		for _, ws := range s.Workers {
			workers.AppendRow(table.Row{ws.Worker, ws.Processed, fmt.Sprintf("%.1f%%", ws.SuccessRate)})
		}
		workers.Render()
	}
}
