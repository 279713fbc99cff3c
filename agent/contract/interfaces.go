package contract

import (
	"context"
	"io"
)

type ToolGateway interface {
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}

// Transcriber turns recorded speech into a plain utterance.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}
