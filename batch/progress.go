package batch

import (
	"github.com/jedib0t/go-pretty/v6/progress"
)

// ProgressSink 进度上报，实现必须廉价、非阻塞
type ProgressSink interface {
	Update(n int)
	Close()
}

type nopProgress struct{}

func (nopProgress) Update(int) {}

func (nopProgress) Close() {}

// NopProgress 关闭进度显示时用
func NopProgress() ProgressSink {
	return nopProgress{}
}

type trackerSink struct {
	pw      progress.Writer
	tracker *progress.Tracker
}

// NewTrackerSink 基于go-pretty的终端进度条
func NewTrackerSink(message string, total int) ProgressSink {
	pw := progress.NewWriter()
	pw.SetTrackerLength(40)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.Value = true
	tracker := &progress.Tracker{
		Message: message,
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)
	go pw.Render()
	return &trackerSink{pw: pw, tracker: tracker}
}

func (t *trackerSink) Update(n int) {
	t.tracker.Increment(int64(n))
}

func (t *trackerSink) Close() {
	t.tracker.MarkAsDone()
	t.pw.Stop()
}
