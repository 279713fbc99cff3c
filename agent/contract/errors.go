package contract

import "errors"

// Errors shared by the advisor, voice and tool layers. The HTTP layer maps
// ErrValidation to 4xx and the rest to 502.
var (
	// Upstream LLM or transcription call failed.
	ErrModelInvoke = errors.New("model invoke failed")
	// Model output parsed but named an unknown product, tool or verdict.
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
)
