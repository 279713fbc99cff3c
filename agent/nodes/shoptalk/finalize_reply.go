package shoptalknode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	out := in.Result
	out.Response = strings.TrimSpace(out.Response)
	if out.Response == "" {
		return GraphOutput{}, fmt.Errorf("%w: handler produced empty response", contractx.ErrValidation)
	}
	out.Step = in.Session.Step
	return GraphOutput{Result: out}, nil
}
