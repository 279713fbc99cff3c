package state

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
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

const (
	defaultStoreKeyPrefix = "shoptalk:session:"
	defaultStoreTTL       = 24 * time.Hour
	maxResponseSizeBytes  = 2 << 20
)

// Store is the persistence contract used by the ShopTalk service.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

type storeOptions struct {
	keyPrefix  string
	ttl        time.Duration
	httpClient *http.Client
}

// StoreOption customizes any Store backend; options that do not apply to a
// backend are ignored.
type StoreOption func(*storeOptions)

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *storeOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func applyStoreOptions(opts []StoreOption) (storeOptions, error) {
	o := storeOptions{
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.ttl < 0 {
		return o, errors.New("ttl must be >= 0")
	}
	return o, nil
}

func sessionKey(prefix, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return strings.TrimSpace(prefix) + sessionID, nil
}

func encodeSession(st *SessionState) ([]byte, error) {
	if st == nil {
		return nil, ErrNilSessionState
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return nil, ErrInvalidSession
	}
	st.Normalize()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	} else {
		st.UpdatedAt = st.UpdatedAt.UTC()
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return payload, nil
}

func decodeSession(payload []byte) (*SessionState, error) {
	var st SessionState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	st.Normalize()
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return &st, nil
}

// UpstashRedisStore persists SessionState in Upstash Redis via REST.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ Store = (*UpstashRedisStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	o, err := applyStoreOptions(opts)
	if err != nil {
		return nil, err
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		keyPrefix:  o.keyPrefix,
		ttl:        o.ttl,
	}, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	return decodeSession([]byte(encoded))
}

func (s *UpstashRedisStore) Save(ctx context.Context, st *SessionState) error {
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}

	key, err := s.redisKey(st.SessionID)
	if err != nil {
		return err
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	prefix := s.keyPrefix
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return sessionKey(prefix, sessionID)
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
