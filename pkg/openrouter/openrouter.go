package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatModelBuilder produces a tool-calling chat model for one advisor task.
type ChatModelBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ ChatModelBuilder = (*Config)(nil)

// Models that reject the reasoning block unless it is explicitly excluded.
var reasoningExcluded = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

// ExcludesReasoning reports whether requests for modelName carry
// reasoning.exclude.
func ExcludesReasoning(modelName string) bool {
	return reasoningExcluded[strings.TrimSpace(modelName)]
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	modelName := strings.TrimSpace(c.Model)
	if modelName == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &c.Temperature,
		Timeout:     c.Timeout,
	}
	if headers := c.attributionHeaders(); len(headers) > 0 {
		conf.HTTPClient = &http.Client{
			Timeout:   c.Timeout,
			Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
		}
	}
	if ExcludesReasoning(modelName) {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{
				"exclude": true,
				"effort":  "none",
			},
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", modelName, err)
	}
	return m, nil
}

// attributionHeaders are the optional OpenRouter app ranking headers.
func (c *Config) attributionHeaders() http.Header {
	h := http.Header{}
	if v := strings.TrimSpace(c.SiteURL); v != "" {
		h.Set("HTTP-Referer", v)
	}
	if v := strings.TrimSpace(c.SiteName); v != "" {
		h.Set("X-Title", v)
	}
	return h
}

type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// NewClient creates an OpenAI SDK client for any OpenAI-compatible endpoint,
// such as the voice transcription API. Returns nil when no API key is set.
func NewClient(cfg Config, extra ...option.RequestOption) *openaisdk.Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for k, vs := range cfg.attributionHeaders() {
		for _, v := range vs {
			opts = append(opts, option.WithHeader(k, v))
		}
	}

	opts = append(opts, extra...)
	client := openaisdk.NewClient(opts...)
	return &client
}
