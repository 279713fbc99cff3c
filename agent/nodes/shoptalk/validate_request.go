package shoptalknode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	intentx "github.com/tanpawarit/shoptalk-assistant/agent/intent"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

var ErrInvalidSession = errors.New("session id is empty")

type GraphInput struct {
	SessionID   string
	UserID      string
	ChannelType string
	Text        string
}

type GraphOutput struct {
	Result contractx.Result
}

type GraphState struct {
	SessionID   string
	UserID      string
	ChannelType string
	Text        string
	Now         time.Time

	Session *statex.SessionState
	Intent  intentx.Intent

	Result contractx.Result
}

// ValidateRequest normalizes the input. Blank utterances are allowed through
// and end up on the help path.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	return &GraphState{
		SessionID:   sessionID,
		UserID:      strings.TrimSpace(in.UserID),
		ChannelType: strings.TrimSpace(in.ChannelType),
		Text:        strings.TrimSpace(in.Text),
		Now:         nowFn().UTC(),
	}, nil
}
