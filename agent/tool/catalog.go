package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
)

const (
	ToolCatalogSearch     = "catalog.search"
	ToolCatalogByCategory = "catalog.by_category"

	maxToolResults = 8
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// ProductSummary is the trimmed product shape handed back to the model.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category"`
	Price    string  `json:"price"`
	Rating   float64 `json:"rating"`
	InStock  bool    `json:"in_stock"`
}

// BuildForCatalog returns the tool infos advertised to the model and the
// executor that serves them.
func BuildForCatalog(catalog catalogx.Catalog) ([]*schema.ToolInfo, Executor) {
	return CatalogInfos(), NewExecutor(catalog)
}

func CatalogInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolCatalogSearch,
			Desc: "Search the product catalog. Supports price ceilings such as \"under 30000\".",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Natural language product query", Required: true},
			}),
		},
		{
			Name: ToolCatalogByCategory,
			Desc: "List products in a catalog category, e.g. smartphones or laptops.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"category": {Type: schema.String, Desc: "Category slug", Required: true},
			}),
		},
	}
}

func NewExecutor(catalog catalogx.Catalog) Executor {
	fallback := DefaultExecutor()
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolCatalogSearch:
			query, errMsg := stringArg(args, "query")
			if errMsg != "" {
				return contractx.ToolResult{Tool: tool, Error: errMsg}, nil
			}
			products, err := catalog.Search(ctx, catalogx.ParseQuery(query))
			return catalogResult(tool, products, err), nil
		case ToolCatalogByCategory:
			category, errMsg := stringArg(args, "category")
			if errMsg != "" {
				return contractx.ToolResult{Tool: tool, Error: errMsg}, nil
			}
			products, err := catalog.ByCategory(ctx, category)
			return catalogResult(tool, products, err), nil
		default:
			return fallback(ctx, tool, args)
		}
	}
}

func DefaultExecutor() Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable", tool),
		}, nil
	}
}

// Gateway adapts an Executor to contract.ToolGateway, running requests in order.
type Gateway struct {
	exec Executor
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(exec Executor) *Gateway {
	return &Gateway{exec: exec}
}

func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	out := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := g.exec(ctx, req.Tool, req.Args)
		if err != nil {
			return nil, fmt.Errorf("execute tool=%s: %w", req.Tool, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func stringArg(args map[string]any, key string) (string, string) {
	raw, ok := args[key]
	if !ok {
		return "", key + " is required"
	}
	s, ok := raw.(string)
	if !ok {
		return "", key + " must be a string"
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", key + " is empty"
	}
	return s, ""
}

func catalogResult(tool string, products []catalogx.Product, err error) contractx.ToolResult {
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: tool, Result: Summarize(products)}
}

// Summarize trims products to the fields the model needs.
func Summarize(products []catalogx.Product) []ProductSummary {
	if len(products) > maxToolResults {
		products = products[:maxToolResults]
	}
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{
			ID:       p.ID,
			Name:     p.Name,
			Brand:    p.Brand,
			Category: p.Category,
			Price:    p.Price.StringFixed(2),
			Rating:   p.Rating,
			InStock:  p.InStock,
		})
	}
	return out
}

// SummarizeOne is Summarize for a single product.
func SummarizeOne(p catalogx.Product) ProductSummary {
	return Summarize([]catalogx.Product{p})[0]
}
