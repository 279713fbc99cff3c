package advisor

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	llmx "github.com/tanpawarit/shoptalk-assistant/agent/llm"
	promptx "github.com/tanpawarit/shoptalk-assistant/agent/prompt"
)

// NewFromConfig builds one OpenRouter model per task and wires the advisor.
func NewFromConfig(ctx context.Context, cfg llmx.Config, catalog catalogx.Catalog) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	compareModel, err := newTaskModel(ctx, cfg, contractx.TaskCompare)
	if err != nil {
		return nil, err
	}
	priceModel, err := newTaskModel(ctx, cfg, contractx.TaskPriceAnalysis)
	if err != nil {
		return nil, err
	}
	askModel, err := newTaskModel(ctx, cfg, contractx.TaskAsk)
	if err != nil {
		return nil, err
	}

	return New(ctx, Models{
		Compare:       compareModel,
		PriceAnalysis: priceModel,
		Ask:           askModel,
	}, catalog, promptx.LoadPromptSet())
}

func newTaskModel(ctx context.Context, cfg llmx.Config, task contractx.TaskType) (einomodel.ToolCallingChatModel, error) {
	modelCfg := cfg.OpenRouterFor(task)
	m, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, task, err)
	}
	return m, nil
}
