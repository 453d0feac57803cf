// Package fetch is the bounded HTTP fetcher for listing APIs and
// detail pages: per-request timeout, typed failures, and an
// exponential-backoff retry policy for the transient kinds.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const UserAgent = "pag-fetch/1.0 (github.com/retea-se/pag)"

// Result is the outcome of one successful fetch.
type Result struct {
	Status int
	Body   []byte
}

// Client wraps an http.Client with the pipeline's fetch semantics.
type Client struct {
	http    *http.Client
	timeout time.Duration
	retries uint64
}

// New creates a Client. timeout bounds each individual request;
// retries is the extra-attempt budget applied by GetRetry/GetJSON
// (attempt 0 runs immediately, later attempts back off exponentially).
func New(timeout time.Duration, retries int) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		http:    &http.Client{Transport: tr},
		timeout: timeout,
		retries: uint64(retries),
	}
}

// Get performs a single GET with the client's per-request timeout.
// The first of response-complete, connection error or deadline wins;
// an expired deadline aborts the in-flight request.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(url, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(url, reqCtx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindHTTP, URL: url, Status: resp.StatusCode}
	}

	return &Result{Status: resp.StatusCode, Body: body}, nil
}

// GetRetry performs a GET with the retry budget. Timeouts and network
// failures are retried with exponential backoff; HTTP and blocked
// failures are permanent.
func (c *Client) GetRetry(ctx context.Context, url string) (*Result, error) {
	var result *Result

	op := func() error {
		res, err := c.Get(ctx, url)
		if err != nil {
			if IsKind(err, KindTimeout) || IsKind(err, KindNetwork) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

// GetJSON fetches url with retries and decodes the body into v.
// A body that is not valid JSON is a parse failure, not retried.
func (c *Client) GetJSON(ctx context.Context, url string, v interface{}) error {
	res, err := c.GetRetry(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, v); err != nil {
		return &Error{Kind: KindParse, URL: url, Err: err}
	}
	return nil
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // attempts bound the retry loop, not wall time
	return b
}

// classify maps a transport error to a typed fetch error. A request
// context past its deadline is a timeout regardless of how the
// transport surfaced the abort.
func classify(url string, reqCtx context.Context, err error) *Error {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	return &Error{Kind: KindNetwork, URL: url, Err: err}
}
