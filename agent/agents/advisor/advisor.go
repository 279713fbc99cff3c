package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	promptx "github.com/tanpawarit/shoptalk-assistant/agent/prompt"
	toolx "github.com/tanpawarit/shoptalk-assistant/agent/tool"
)

const (
	minCompare     = 2
	maxCompare     = 4
	maxSimilar     = 8
	maxQuestionLen = 500
)

type Verdict string

const (
	VerdictGoodDeal   Verdict = "good_deal"
	VerdictFair       Verdict = "fair"
	VerdictOverpriced Verdict = "overpriced"
)

type ComparisonPoint struct {
	ProductID string   `json:"product_id"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
}

type Comparison struct {
	Summary  string            `json:"summary"`
	WinnerID string            `json:"winner_id"`
	Points   []ComparisonPoint `json:"points"`
}

type PriceAnalysis struct {
	Verdict                Verdict `json:"verdict"`
	Reason                 string  `json:"reason"`
	SuggestedAlternativeID string  `json:"suggested_alternative_id,omitempty"`
}

type AskRequest struct {
	Product  catalogx.Product
	Question string
}

// Models carries one chat model per advisor task.
type Models struct {
	Compare       einomodel.ToolCallingChatModel
	PriceAnalysis einomodel.ToolCallingChatModel
	Ask           einomodel.ToolCallingChatModel
}

// Advisor answers product questions through the LLM proxy.
type Advisor struct {
	catalog catalogx.Catalog
	tools   contractx.ToolGateway

	compareRunner compose.Runnable[map[string]any, Comparison]
	priceRunner   compose.Runnable[map[string]any, PriceAnalysis]
	toolRunner    compose.Runnable[map[string]any, *schema.Message]
	answerRunner  compose.Runnable[map[string]any, *schema.Message]
	askRunner     compose.Runnable[AskRequest, string]

	allowedTools map[string]struct{}
}

func New(ctx context.Context, models Models, catalog catalogx.Catalog, prompts promptx.PromptSet) (*Advisor, error) {
	if models.Compare == nil || models.PriceAnalysis == nil || models.Ask == nil {
		return nil, fmt.Errorf("%w: every advisor model is required", contractx.ErrValidation)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	a := &Advisor{catalog: catalog}

	var err error
	a.compareRunner, err = compileStructuredLLMGraph[Comparison](ctx, models.Compare, prompts.Compare, "advisor.compare_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile compare graph: %v", contractx.ErrModelInvoke, err)
	}
	a.priceRunner, err = compileStructuredLLMGraph[PriceAnalysis](ctx, models.PriceAnalysis, prompts.PriceAnalysis, "advisor.price_analysis_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile price analysis graph: %v", contractx.ErrModelInvoke, err)
	}

	infos, executor := toolx.BuildForCatalog(catalog)
	a.tools = toolx.NewGateway(executor)
	a.allowedTools = make(map[string]struct{}, len(infos))
	for _, t := range infos {
		a.allowedTools[t.Name] = struct{}{}
	}

	toolModel, err := models.Ask.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind catalog tools: %v", contractx.ErrModelInvoke, err)
	}
	a.toolRunner, err = compileChatGraph(ctx, toolModel, prompts.Ask, "advisor.ask_tool_planning_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile ask tool planning graph: %v", contractx.ErrModelInvoke, err)
	}
	a.answerRunner, err = compileChatGraph(ctx, models.Ask, prompts.Ask, "advisor.ask_answer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile ask answer graph: %v", contractx.ErrModelInvoke, err)
	}
	a.askRunner, err = compileAskRuntimeGraph(ctx, a.planTools, a.runTools, a.answer)
	if err != nil {
		return nil, fmt.Errorf("%w: compile ask runtime graph: %v", contractx.ErrModelInvoke, err)
	}

	return a, nil
}

// Compare asks the model to weigh two to four products against each other.
func (a *Advisor) Compare(ctx context.Context, products []catalogx.Product) (Comparison, error) {
	if len(products) < minCompare || len(products) > maxCompare {
		return Comparison{}, fmt.Errorf("%w: compare needs %d-%d products, got %d", contractx.ErrValidation, minCompare, maxCompare, len(products))
	}

	ids := make(map[string]struct{}, len(products))
	for _, p := range products {
		ids[p.ID] = struct{}{}
	}
	if len(ids) != len(products) {
		return Comparison{}, fmt.Errorf("%w: compare products must be distinct", contractx.ErrValidation)
	}

	input, err := marshalInput(map[string]any{"products": toolx.Summarize(products)})
	if err != nil {
		return Comparison{}, err
	}
	out, err := a.compareRunner.Invoke(ctx, input)
	if err != nil {
		return Comparison{}, fmt.Errorf("%w: compare invoke: %v", contractx.ErrModelInvoke, err)
	}

	out.Summary = strings.TrimSpace(out.Summary)
	if out.Summary == "" {
		return Comparison{}, fmt.Errorf("%w: comparison summary is empty", contractx.ErrSchemaViolation)
	}
	if _, ok := ids[out.WinnerID]; !ok {
		return Comparison{}, fmt.Errorf("%w: winner_id=%q is not a compared product", contractx.ErrSchemaViolation, out.WinnerID)
	}
	for _, pt := range out.Points {
		if _, ok := ids[pt.ProductID]; !ok {
			return Comparison{}, fmt.Errorf("%w: point for unknown product_id=%q", contractx.ErrSchemaViolation, pt.ProductID)
		}
	}
	return out, nil
}

// AnalyzePrice judges product's price against others in its category. A
// failing category lookup degrades to an analysis without peers.
func (a *Advisor) AnalyzePrice(ctx context.Context, product catalogx.Product) (PriceAnalysis, error) {
	if strings.TrimSpace(product.ID) == "" {
		return PriceAnalysis{}, fmt.Errorf("%w: product id is required", contractx.ErrValidation)
	}

	similar := a.similarProducts(ctx, product)
	input, err := marshalInput(map[string]any{
		"product": toolx.SummarizeOne(product),
		"similar": toolx.Summarize(similar),
	})
	if err != nil {
		return PriceAnalysis{}, err
	}

	out, err := a.priceRunner.Invoke(ctx, input)
	if err != nil {
		return PriceAnalysis{}, fmt.Errorf("%w: price analysis invoke: %v", contractx.ErrModelInvoke, err)
	}

	switch out.Verdict {
	case VerdictGoodDeal, VerdictFair, VerdictOverpriced:
	default:
		return PriceAnalysis{}, fmt.Errorf("%w: unknown verdict=%q", contractx.ErrSchemaViolation, out.Verdict)
	}
	if strings.TrimSpace(out.Reason) == "" {
		return PriceAnalysis{}, fmt.Errorf("%w: price analysis reason is empty", contractx.ErrSchemaViolation)
	}
	if out.SuggestedAlternativeID != "" {
		found := false
		for _, p := range similar {
			if p.ID == out.SuggestedAlternativeID {
				found = true
				break
			}
		}
		if !found {
			out.SuggestedAlternativeID = ""
		}
	}
	return out, nil
}

// Ask answers a free-form question about product, letting the model consult
// the catalog first when it needs to.
func (a *Advisor) Ask(ctx context.Context, product catalogx.Product, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", contractx.ErrValidation)
	}
	if len([]rune(question)) > maxQuestionLen {
		return "", fmt.Errorf("%w: question is too long", contractx.ErrValidation)
	}

	answer, err := a.askRunner.Invoke(ctx, AskRequest{Product: product, Question: question})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (a *Advisor) planTools(ctx context.Context, req AskRequest) (*askGraphState, error) {
	input, err := marshalInput(map[string]any{
		"product":  toolx.SummarizeOne(req.Product),
		"question": req.Question,
	})
	if err != nil {
		return nil, err
	}

	msg, err := a.toolRunner.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: tool planning invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty tool planning response", contractx.ErrSchemaViolation)
	}

	reqs, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return nil, err
	}
	for _, tr := range reqs {
		if _, ok := a.allowedTools[tr.Tool]; !ok {
			return nil, fmt.Errorf("%w: tool=%s is not allowed", contractx.ErrSchemaViolation, tr.Tool)
		}
	}

	st := &askGraphState{Req: req, Requests: reqs}
	if len(reqs) == 0 {
		st.Direct = strings.TrimSpace(msg.Content)
		if st.Direct == "" {
			return nil, fmt.Errorf("%w: answer is empty", contractx.ErrSchemaViolation)
		}
	}
	return st, nil
}

func (a *Advisor) runTools(ctx context.Context, in *askGraphState) (*askGraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: ask graph state is nil", contractx.ErrValidation)
	}
	results, err := a.tools.Execute(ctx, in.Requests)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Int("tool_calls", len(results)).Msg("advisor tools executed")
	in.Results = results
	return in, nil
}

func (a *Advisor) answer(ctx context.Context, in *askGraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: ask graph state is nil", contractx.ErrValidation)
	}
	input, err := marshalInput(map[string]any{
		"product":      toolx.SummarizeOne(in.Req.Product),
		"question":     in.Req.Question,
		"tool_results": in.Results,
	})
	if err != nil {
		return "", err
	}

	msg, err := a.answerRunner.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: answer invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: answer is empty", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(msg.Content), nil
}

func (a *Advisor) similarProducts(ctx context.Context, product catalogx.Product) []catalogx.Product {
	if strings.TrimSpace(product.Category) == "" {
		return nil
	}
	peers, err := a.catalog.ByCategory(ctx, product.Category)
	if err != nil {
		if !errors.Is(err, catalogx.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("category", product.Category).Msg("similar products lookup failed")
		}
		return nil
	}
	out := make([]catalogx.Product, 0, maxSimilar)
	for _, p := range peers {
		if p.ID == product.ID {
			continue
		}
		out = append(out, p)
		if len(out) == maxSimilar {
			break
		}
	}
	return out
}

func marshalInput(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal advisor payload: %v", contractx.ErrValidation, err)
	}
	return map[string]any{"input": string(raw)}, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}
		reqs = append(reqs, contractx.ToolRequest{Tool: name, Args: args})
	}
	return reqs, nil
}
