package shoptalknode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	defaultChannel string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
		if st.UserID == "" && in.UserID != "" {
			st.UserID = in.UserID
		}
	case errors.Is(err, statex.ErrStateNotFound):
		channel := in.ChannelType
		if channel == "" {
			channel = defaultChannel
		}
		st = statex.NewSessionState(in.SessionID, in.UserID, channel, in.Now)
	default:
		return nil, fmt.Errorf("load session %s: %w", in.SessionID, err)
	}

	in.Session = st
	return in, nil
}
