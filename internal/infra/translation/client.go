package translation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
)

const (
	DefaultBaseURL = "http://192.168.1.228:5000"
	DefaultPath    = "/tr"
)

// Client issues one GET per utterance against a translation endpoint.
// There is no retry: each call is exactly one round-trip.
type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ application.Translator = (*Client)(nil)

type Option func(*Client)

// WithTimeout bounds each request. Zero keeps the http.Client default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       DefaultPath,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target is the request target for text: the base URL with text appended
// as the text parameter.
func (c *Client) Target(text string) string {
	return c.baseURL + c.path + "?text=" + text
}

// Get performs the request and reports its outcome. Any 2xx status is a
// success carrying the raw body.
func (c *Client) Get(ctx context.Context, text string) domain.Outcome {
	endpoint, err := url.Parse(c.baseURL + c.path)
	if err != nil {
		return domain.Failure(fmt.Sprintf("invalid translation url: %v", err))
	}
	endpoint.RawQuery = url.Values{"text": {text}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.Failure(fmt.Sprintf("creating request: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Failure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Failure(fmt.Sprintf("unsuccessful response: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failure(fmt.Sprintf("reading response: %v", err))
	}

	return domain.Success(string(body))
}

// Enqueue runs Get in its own goroutine and reports through cb.
func (c *Client) Enqueue(ctx context.Context, text string, cb application.TranslationCallback) {
	go func() {
		c.logger.Debug("translation request", "target", c.Target(text))

		outcome := c.Get(ctx, text)
		if outcome.OK {
			cb.OnSuccess(outcome.Body)
			return
		}
		cb.OnFailure(outcome.Message)
	}()
}
