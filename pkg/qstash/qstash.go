package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

var ErrEmptyDestination = errors.New("qstash destination is required")

type Config struct {
	URL     string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token   string        `split_words:"true" required:"true"`
	Retries int           `split_words:"true" default:"3"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	retries    int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// PublishOptions are per-message Upstash headers.
type PublishOptions struct {
	DeduplicationID string
	Delay           time.Duration
}

type publishResponse struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		retries: cfg.Retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Publish enqueues payload as JSON for delivery to destination and returns
// the QStash message id.
func (c *Client) Publish(ctx context.Context, destination string, payload any, opts ...PublishOptions) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", ErrEmptyDestination
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal qstash payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/publish/"+destination, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build qstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.retries >= 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(c.retries))
	}
	for _, o := range opts {
		if o.DeduplicationID != "" {
			req.Header.Set("Upstash-Deduplication-Id", o.DeduplicationID)
		}
		if o.Delay > 0 {
			req.Header.Set("Upstash-Delay", strconv.FormatInt(int64(o.Delay/time.Second), 10)+"s")
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute qstash request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read qstash response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("qstash http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed publishResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode qstash response: %w", err)
	}
	if parsed.Error != "" {
		return "", errors.New(parsed.Error)
	}
	return parsed.MessageID, nil
}
