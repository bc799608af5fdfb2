package session

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var DebugLog func(string, ...interface{})

const userAgent = "musegen"

type Session struct {
	Client *http.Client
}

// LoggingTransport reports every request and its outcome through DebugLog.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}

	if DebugLog != nil {
		DebugLog("requesting url: %s", req.URL.String())
	}

	resp, err := t.Transport.RoundTrip(req)

	if DebugLog != nil {
		host := req.URL.Hostname()
		switch {
		case err != nil:
			DebugLog("request to %s failed: %v", host, err)
		case resp.StatusCode >= 400:
			DebugLog("unexpected status code %d received from %s", resp.StatusCode, req.URL.String())
			logErrorBody(resp)
		default:
			DebugLog("response for %s: status code %d, %s", req.URL.String(), resp.StatusCode, describeLength(resp.ContentLength))
		}
	}

	return resp, err
}

// logErrorBody logs the start of an error body and puts it back for the caller.
func logErrorBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	head, readErr := io.ReadAll(io.LimitReader(resp.Body, 500))
	if readErr != nil || len(head) == 0 {
		return
	}
	DebugLog("error response body: %s", strings.TrimSpace(string(head)))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(strings.NewReader(string(head)), resp.Body), resp.Body}
}

func describeLength(n int64) string {
	if n < 0 {
		return "unknown length"
	}
	return fmt.Sprintf("%d bytes", n)
}

// New builds a session whose client gives up after timeout. A zero timeout
// means no limit, which suits large checkpoint downloads.
func New(timeout time.Duration) *Session {
	baseTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Session{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: &LoggingTransport{Transport: baseTransport},
		},
	}
}
