package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/justyntemme/booklist/internal/models"
)

// Common errors
var (
	ErrNetwork = errors.New("google books request failed")
	ErrParse   = errors.New("malformed google books response")
)

// Default timeouts for one volumes request
const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultReadTimeout    = 10 * time.Second
)

// UserAgent is sent with every request
const UserAgent = "booklist/1.0 (+https://github.com/justyntemme/booklist)"

// Options configures a Client
type Options struct {
	BaseURL        string
	APIKey         string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// errReadTimeout reports a body read that produced nothing within the read timeout
var errReadTimeout = errors.New("read timeout")

// Client queries the Google Books volumes endpoint
type Client struct {
	client      *http.Client
	builder     QueryBuilder
	readTimeout time.Duration
	log         zerolog.Logger
}

// NewClient creates a client. Zero timeouts take the defaults.
func NewClient(opts Options, log zerolog.Logger) *Client {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	read := opts.ReadTimeout
	if read <= 0 {
		read = DefaultReadTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connect,
		}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
	}

	builder := NewQueryBuilder(opts.APIKey)
	if opts.BaseURL != "" {
		builder.BaseURL = opts.BaseURL
	}

	return &Client{
		client:      &http.Client{Transport: transport},
		builder:     builder,
		readTimeout: read,
		log:         log.With().Str("component", "googlebooks").Logger(),
	}
}

// Builder returns the query builder the client uses
func (c *Client) Builder() QueryBuilder {
	return c.builder
}

// Search builds the request URL for term, fetches it and parses the body
func (c *Client) Search(ctx context.Context, term string, mode models.SearchMode) ([]models.BookRecord, error) {
	requestURL := c.builder.BuildRequestURL(term, mode)
	body, err := c.Fetch(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// Fetch performs a GET and returns the body of a 200 response.
// Every failure wraps ErrNetwork.
func (c *Client) Fetch(ctx context.Context, requestURL string) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Volumes request finished")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status: %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(newDeadlineReader(resp.Body, c.readTimeout, cancel))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrNetwork, err)
	}
	return body, nil
}

// deadlineReader aborts the request when a single Read waits longer than
// timeout for data. The budget restarts after every chunk that arrives.
type deadlineReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newDeadlineReader(r io.Reader, timeout time.Duration, abort context.CancelFunc) *deadlineReader {
	d := &deadlineReader{r: r, timeout: timeout}
	d.timer = time.AfterFunc(timeout, func() {
		d.expired.Store(true)
		abort()
	})
	return d
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if d.expired.Load() {
		return n, errReadTimeout
	}
	if err != nil {
		d.timer.Stop()
		return n, err
	}
	if n > 0 {
		d.timer.Reset(d.timeout)
	}
	return n, nil
}
