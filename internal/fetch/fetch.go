package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html/charset"

	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/metrics"
)

const maxRedirects = 5

var (
	// ErrDisallowed is returned when robots.txt forbids a URL
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrBodyTooLarge is returned when a response exceeds Options.MaxBodyBytes
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError is a non-2xx response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth retrying (429 and 5xx)
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Request describes one document to fetch
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// IgnoreRobots skips the robots.txt check for sources that opted out.
	IgnoreRobots bool
	// Delay is waited before the request in addition to the host rate limit.
	Delay time.Duration
	// MaxRetries overrides the client default when non-zero.
	MaxRetries uint64
}

// Get builds a GET request
func Get(rawURL string) *Request {
	return &Request{Method: http.MethodGet, URL: rawURL, Header: http.Header{}}
}

// Document is a fetched response body, decoded to UTF-8
type Document struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Reader returns a reader over the body
func (d *Document) Reader() io.Reader {
	return bytes.NewReader(d.Body)
}

// JSON decodes the body into v
func (d *Document) JSON(v interface{}) error {
	if err := json.Unmarshal(d.Body, v); err != nil {
		return fmt.Errorf("decoding JSON from %s: %w", d.URL, err)
	}
	return nil
}

// Options configures a Client
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	MaxBodyBytes   int64
	RatePerSecond  float64
	Burst          int
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ObeyRobots     bool

	Cache   Cache
	TTL     time.Duration
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Client fetches documents with rate limiting, robots.txt checks, retries and caching
type Client struct {
	http    *http.Client
	opts    Options
	limiter *Limiter
	robots  *RobotsChecker
	log     *logger.Logger
}

// New creates a Client
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		opts:    opts,
		limiter: NewLimiter(opts.RatePerSecond, opts.Burst),
		robots:  NewRobotsChecker(opts.UserAgent, opts.Timeout),
		log:     opts.Logger,
	}
}

// Do fetches req. GET responses are served from and stored in the cache when one is configured.
func (c *Client) Do(ctx context.Context, req *Request) (*Document, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	parsed, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", req.URL, err)
	}

	cacheable := c.opts.Cache != nil && req.Method == http.MethodGet
	key := CacheKey(req.Method, req.URL)
	if cacheable {
		if doc, ok := c.fromCache(key); ok {
			c.opts.Metrics.CacheHit()
			c.log.Debug("Serving cached document", logger.Fields{"url": req.URL})
			return doc, nil
		}
	}

	if c.opts.ObeyRobots && !req.IgnoreRobots {
		allowed, crawlDelay, err := c.robots.CanFetch(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", req.URL, ErrDisallowed)
		}
		if crawlDelay > req.Delay {
			req.Delay = crawlDelay
		}
	}

	started := time.Now()
	doc, err := c.retry(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.opts.Metrics.ObserveFetch(parsed.Host, outcome, time.Since(started))
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.toCache(key, doc)
	}
	return doc, nil
}

func (c *Client) retry(ctx context.Context, req *Request) (*Document, error) {
	maxRetries := c.opts.MaxRetries
	if req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.InitialBackoff
	policy.MaxInterval = c.opts.MaxBackoff
	policy.MaxElapsedTime = 0

	var doc *Document
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.WaitWithDelay(ctx, req.URL, req.Delay); err != nil {
			return backoff.Permanent(err)
		}

		d, err := c.once(ctx, req)
		if err != nil {
			var status *StatusError
			if errors.As(err, &status) && !status.Retryable() {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrBodyTooLarge) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		doc = d
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn("Retrying fetch", logger.Fields{
			"url":     req.URL,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) once(ctx context.Context, req *Request) (*Document, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && c.opts.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	// One byte past the cap tells a full body from a truncated one.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", req.URL, err)
	}
	if int64(len(raw)) > c.opts.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, req.URL, c.opts.MaxBodyBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", req.URL, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", req.URL, err)
	}

	return &Document{
		URL:         req.URL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        data,
	}, nil
}

func (c *Client) fromCache(key string) (*Document, bool) {
	data, ok := c.opts.Cache.Get(key)
	if !ok {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.log.Debug("Ignoring corrupt cache entry", logger.Fields{"key": key, "error": err.Error()})
		return nil, false
	}
	return &doc, true
}

func (c *Client) toCache(key string, doc *Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := c.opts.Cache.Set(key, data, c.opts.TTL); err != nil {
		c.log.Warn("Caching document failed", logger.Fields{"url": doc.URL, "error": err.Error()})
	}
}

// Host returns the host part of rawURL, or rawURL itself when it cannot be parsed
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Host)
}
