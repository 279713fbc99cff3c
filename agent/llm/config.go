package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/shoptalk-assistant/pkg/openrouter"
)

// Config is the OPENROUTER_* block plus per-task overrides. A negative
// temperature override means "use the default".
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	CompareModel             string  `envconfig:"COMPARE_MODEL" split_words:"true"`
	PriceAnalysisModel       string  `envconfig:"PRICE_ANALYSIS_MODEL" split_words:"true"`
	AskModel                 string  `envconfig:"ASK_MODEL" split_words:"true"`
	CompareTemperature       float32 `envconfig:"COMPARE_TEMPERATURE" split_words:"true" default:"-1"`
	PriceAnalysisTemperature float32 `envconfig:"PRICE_ANALYSIS_TEMPERATURE" split_words:"true" default:"0.2"`
	AskTemperature           float32 `envconfig:"ASK_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(task contractx.TaskType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(m string, t float32) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch task {
	case contractx.TaskCompare:
		override(c.CompareModel, c.CompareTemperature)
	case contractx.TaskPriceAnalysis:
		override(c.PriceAnalysisModel, c.PriceAnalysisTemperature)
	case contractx.TaskAsk:
		override(c.AskModel, c.AskTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
