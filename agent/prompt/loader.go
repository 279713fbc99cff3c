package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
)

var (
	//go:embed template/compare.txt
	compareRaw string

	//go:embed template/price_analysis.txt
	priceAnalysisRaw string

	//go:embed template/ask.txt
	askRaw string
)

// PromptSet holds the advisor system prompts.
type PromptSet struct {
	Compare       string
	PriceAnalysis string
	Ask           string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Compare:       strings.TrimSpace(compareRaw),
		PriceAnalysis: strings.TrimSpace(priceAnalysisRaw),
		Ask:           strings.TrimSpace(askRaw),
	}
}

// Validate reports the first missing prompt.
func (p PromptSet) Validate() error {
	for name, v := range map[contractx.TaskType]string{
		contractx.TaskCompare:       p.Compare,
		contractx.TaskPriceAnalysis: p.PriceAnalysis,
		contractx.TaskAsk:           p.Ask,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: task=%s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
