package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "news-crawler/0.1"
)

// ErrBadStatus marks a non-200 response. The URL is dropped without retry.
var ErrBadStatus = errors.New("unexpected http status")

type Result struct {
	Status int
	HTML   string
}

// Fetcher performs one-shot page downloads with a stable User-Agent and a
// bounded total timeout. Retry policy lives with the caller because every
// attempt must re-acquire the per-host rate-limit slot.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
}

// Fetch issues a single GET. A non-200 response is returned with ErrBadStatus;
// the body is only read on 200.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	res := Result{Status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, err
	}
	res.HTML = string(body)
	return res, nil
}

// IsTransient reports whether a transport error is worth retrying at all.
// Exhausted-retry logging uses it to distinguish flapping hosts from
// permanently broken URLs.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	for _, target := range transientSyscallErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, net.ErrClosed)
}

var transientSyscallErrors = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ECONNABORTED,
	syscall.EPIPE,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.ETIMEDOUT,
}
