package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/models"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

// FetchError covers every way a fetch can fail: transport errors, timeouts,
// non-2xx responses and bodies that are not JSON.
type FetchError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("fetch %s: timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Client struct {
	log       *zap.Logger
	transport http.RoundTripper

	endpoint string
	apiKey   string
	timeout  time.Duration
}

func NewClient(cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Client {
	timeout := cfg.Feed.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		log:       log,
		transport: transport,
		endpoint:  strings.TrimRight(cfg.Feed.BaseURL, "/") + "/bounties",
		apiKey:    cfg.Feed.APIKey,
		timeout:   timeout,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch returns the current listing in feed order. A successful response with
// no recognisable items yields an empty slice and no error.
func (c *Client) Fetch(ctx context.Context) (models.FeedItems, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload json.RawMessage
	rb := requests.URL(c.endpoint).
		Transport(c.transport).
		Accept("application/json").
		ToJSON(&payload)
	if c.apiKey != "" {
		rb = rb.Bearer(c.apiKey)
	}

	if err := rb.Fetch(ctx); err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		return nil, &FetchError{URL: c.endpoint, Timeout: timedOut, Err: err}
	}

	decoded := Decode(payload)
	if decoded.Skipped > 0 {
		c.log.Sugar().Warnw("Skipped malformed feed entries", "envelope", decoded.Envelope, "skipped", decoded.Skipped)
	}
	if decoded.Envelope == "" {
		c.log.Sugar().Debugw("Feed payload has no recognised envelope", "bytes", len(payload))
	}
	return decoded.Items, nil
}
