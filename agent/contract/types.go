package contract

import (
	"github.com/shopspring/decimal"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

// ResultKind is the coarse intent reported back to the input surface.
type ResultKind string

const (
	KindSearch   ResultKind = "search"
	KindCart     ResultKind = "cart"
	KindCheckout ResultKind = "checkout"
	KindPayment  ResultKind = "payment"
	KindHelp     ResultKind = "help"
)

type TaskType string

const (
	TaskCompare       TaskType = "compare"
	TaskPriceAnalysis TaskType = "price_analysis"
	TaskAsk           TaskType = "ask"
)

type Navigate struct {
	Path string `json:"path"`
}

// CartView is a read-only snapshot of the cart with its computed total.
type CartView struct {
	Lines     []statex.CartLine `json:"lines"`
	ItemCount int               `json:"item_count"`
	Total     decimal.Decimal   `json:"total"`
}

type Result struct {
	Kind     ResultKind         `json:"kind"`
	Response string             `json:"response"`
	Products []catalogx.Product `json:"products,omitempty"`
	Navigate *Navigate          `json:"navigate,omitempty"`
	Cart     *CartView          `json:"cart,omitempty"`
	Order    *statex.Order      `json:"order,omitempty"`
	Step     statex.Step        `json:"step"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
