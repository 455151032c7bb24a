package fetch

import "time"

// 错误分类，导出结果和汇总统计都按这个分类
const (
	KindRobotsDisallowed = "robots_disallowed"
	KindTimeout          = "timeout"
	KindConnectionError  = "connection_error"
	KindHTTPError        = "http_error"
	KindRequestFailed    = "request_failed"
)

// Outcome 单次抓取的结果，三种互斥状态：成功、robots拒绝、失败
type Outcome struct {
	StatusCode   int
	Size         int
	Elapsed      time.Duration
	Denied       bool
	ErrorKind    string
	ErrorMessage string
}

func (o Outcome) Success() bool {
	return !o.Denied && o.ErrorKind == ""
}

func Succeeded(status, size int, elapsed time.Duration) Outcome {
	return Outcome{StatusCode: status, Size: size, Elapsed: elapsed}
}

func DeniedOutcome() Outcome {
	return Outcome{
		Denied:       true,
		ErrorKind:    KindRobotsDisallowed,
		ErrorMessage: "access disallowed by robots.txt",
	}
}

func Failed(kind, message string, elapsed time.Duration) Outcome {
	return Outcome{ErrorKind: kind, ErrorMessage: message, Elapsed: elapsed}
}
