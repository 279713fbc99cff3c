package shoptalk

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	nodex "github.com/tanpawarit/shoptalk-assistant/agent/nodes/shoptalk"
)

func (s *Service) compileProcessMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, s.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, s.store, s.channelType)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_state: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, s.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	handlers := map[string]func(context.Context, *nodex.GraphState) (*nodex.GraphState, error){
		nodex.NodeSearch:      s.search,
		nodex.NodeAddToCart:   nodex.AddToCart,
		nodex.NodeInspectCart: withoutContext(nodex.InspectCart),
		nodex.NodeCheckout:    nodex.Checkout,
		nodex.NodePayment:     nodex.Payment,
		nodex.NodeHelp:        withoutContext(nodex.Help),
	}

	branchTargets := make(map[string]bool, len(nodex.HandlerNodes))
	for _, name := range nodex.HandlerNodes {
		if err := graph.AddLambdaNode(name, compose.InvokableLambda(handlers[name])); err != nil {
			return nil, fmt.Errorf("add node %s: %w", name, err)
		}
		branchTargets[name] = true
	}

	if err := graph.AddLambdaNode("save_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveState(ctx, in, s.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_state: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			return nodex.Route(in.Intent.Kind), nil
		},
		branchTargets,
	)
	if err := graph.AddBranch("classify_intent", branch); err != nil {
		return nil, fmt.Errorf("add intent branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_state"},
		{"load_or_create_state", "classify_intent"},
	}
	for _, name := range nodex.HandlerNodes {
		edges = append(edges, [2]string{name, "save_state"})
	}
	edges = append(edges,
		[2]string{"save_state", "finalize_reply"},
		[2]string{"finalize_reply", compose.END},
	)

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("shoptalk.process_message"))
	if err != nil {
		return nil, fmt.Errorf("compile shoptalk graph: %w", err)
	}
	return runner, nil
}

func (s *Service) search(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
	return nodex.Search(ctx, in, s.catalog)
}

func withoutContext(fn func(*nodex.GraphState) (*nodex.GraphState, error)) func(context.Context, *nodex.GraphState) (*nodex.GraphState, error) {
	return func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
		return fn(in)
	}
}
