package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Fetcher interface {
	Get(ctx context.Context, url string) Outcome
}

// HTTPFetcher 带超时、UA、代理的抓取器
// 配置了Checker时先做robots.txt权限检查
type HTTPFetcher struct {
	client *http.Client
	options
}

func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	f := &HTTPFetcher{}
	f.options = options
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if f.Proxy != nil {
		transport.Proxy = f.Proxy
	}
	f.client = &http.Client{
		Timeout:   f.Timeout,
		Transport: transport,
	}
	return f
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) Outcome {
	if f.Checker != nil && !f.Checker.IsPermitted(url) {
		f.Logger.Warn("access disallowed by robots.txt", zap.String("url", url))
		return DeniedOutcome()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(KindRequestFailed, err.Error(), 0)
	}
	request.Header.Set("User-Agent", f.UserAgent)
	if len(f.Cookie) > 0 {
		request.Header.Set("Cookie", f.Cookie)
	}

	start := time.Now()
	resp, err := f.client.Do(request)
	elapsed := time.Since(start)
	if err != nil {
		return Failed(classify(err), err.Error(), elapsed)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp.Body)
	elapsed = time.Since(start)
	if err != nil {
		return Failed(KindConnectionError, err.Error(), elapsed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.Logger.Warn("error http status",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return Failed(KindHTTPError, fmt.Sprintf("error http status:%v", resp.Status), elapsed)
	}
	f.Logger.Info("request completed",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)),
		zap.Duration("elapsed", elapsed),
	)

	return Succeeded(resp.StatusCode, len(body), elapsed)
}

func classify(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindConnectionError
	}
}

// decodeBody 识别编码并转成UTF-8后读取
func decodeBody(r io.Reader) ([]byte, error) {
	bodyReader := bufio.NewReader(r)
	e := determineEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	return io.ReadAll(utf8Reader)
}

func determineEncoding(r *bufio.Reader) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if err != nil && err != io.EOF {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(bytes, "")
	return e
}
