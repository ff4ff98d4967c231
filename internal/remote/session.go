package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Default header set mimicking a desktop browser. The remote rejects
// requests lacking these.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36",
	"Accept":          "*/*",
	"Accept-Language": "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
	"DNT":             "1",
	"Origin":          "https://www.weibotop.cn",
	"Referer":         "https://www.weibotop.cn/",
}

// Session is a single-task transport session. Each fetch task owns its own
// session so no transport state is ever shared across goroutines.
type Session struct {
	hc *http.Client
}

func NewSession() *Session {
	return &Session{hc: &http.Client{}}
}

// Close releases any idle connections held by the session.
func (s *Session) Close() {
	s.hc.CloseIdleConnections()
}

// get issues a GET with the fixed browser header set and returns the raw
// response body. Non-200 statuses are reported as errors.
func (s *Session) get(ctx context.Context, rawURL string, query url.Values) (string, error) {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("remote: failed to create request: %w", err)
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("remote: failed to read response: %w", err)
	}
	return string(body), nil
}
