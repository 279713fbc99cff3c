package advisor

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
)

func compileStructuredLLMGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	for _, edge := range [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "parse_json"},
		{"parse_json", compose.END},
	} {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add structured edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph: %w", err)
	}
	return runner, nil
}

// compileChatGraph is prompt -> model with the raw message as output. It
// serves both the tool planning step (tools bound) and the final answer.
func compileChatGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add chat prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add chat edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add chat edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add chat edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph %s: %w", graphName, err)
	}
	return runner, nil
}

type askGraphState struct {
	Req      AskRequest
	Requests []contractx.ToolRequest
	Direct   string
	Results  []contractx.ToolResult
}

func compileAskRuntimeGraph(
	ctx context.Context,
	plan func(context.Context, AskRequest) (*askGraphState, error),
	runTools func(context.Context, *askGraphState) (*askGraphState, error),
	answer func(context.Context, *askGraphState) (string, error),
) (compose.Runnable[AskRequest, string], error) {
	graph := compose.NewGraph[AskRequest, string]()

	if err := graph.AddLambdaNode("plan_tools", compose.InvokableLambda(plan)); err != nil {
		return nil, fmt.Errorf("add ask plan node: %w", err)
	}
	if err := graph.AddLambdaNode("run_tools", compose.InvokableLambda(runTools)); err != nil {
		return nil, fmt.Errorf("add ask tool node: %w", err)
	}
	if err := graph.AddLambdaNode("answer", compose.InvokableLambda(answer)); err != nil {
		return nil, fmt.Errorf("add ask answer node: %w", err)
	}
	if err := graph.AddLambdaNode("direct_answer",
		compose.InvokableLambda(func(ctx context.Context, in *askGraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: ask graph state is nil", contractx.ErrValidation)
			}
			return in.Direct, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add ask direct node: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *askGraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: ask graph state is nil", contractx.ErrValidation)
			}
			if len(in.Requests) > 0 {
				return "run_tools", nil
			}
			return "direct_answer", nil
		},
		map[string]bool{
			"run_tools":     true,
			"direct_answer": true,
		},
	)
	if err := graph.AddBranch("plan_tools", branch); err != nil {
		return nil, fmt.Errorf("add ask branch: %w", err)
	}

	for _, edge := range [][2]string{
		{compose.START, "plan_tools"},
		{"run_tools", "answer"},
		{"answer", compose.END},
		{"direct_answer", compose.END},
	} {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add ask edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("advisor.ask_runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile ask runtime graph: %w", err)
	}
	return runner, nil
}
