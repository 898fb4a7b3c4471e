package sitehints

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBody bounds every downloaded document.
const maxBody = 2 << 20

type fetchResult struct {
	body    []byte
	status  int
	reached bool
}

type fetcher struct {
	client    *http.Client
	userAgent string
}

// get downloads url within timeout. reached is true whenever the server
// answered, even with a non-2xx status.
func (f *fetcher) get(ctx context.Context, url string, timeout time.Duration) (fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xml,text/xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	res := fetchResult{status: resp.StatusCode, reached: true}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return res, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", url, err)
	}
	if isGzip(url, resp.Header.Get("Content-Type"), body) {
		if body, err = gunzip(body); err != nil {
			return res, fmt.Errorf("gunzip %s: %w", url, err)
		}
	}
	res.body = body
	return res, nil
}

func isGzip(url, contentType string, body []byte) bool {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return false
	}
	return strings.HasSuffix(strings.ToLower(url), ".gz") || strings.Contains(contentType, "gzip")
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxBody))
}
