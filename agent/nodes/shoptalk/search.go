package shoptalknode

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
)

const maxListedResults = 5

// Search replaces the session's result set with the catalog's answer. A
// catalog failure leaves the session untouched.
func Search(ctx context.Context, in *GraphState, catalog catalogx.Catalog) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	q := catalogx.ParseQuery(in.Text)
	products, err := catalog.Search(ctx, q)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("query", q.Text).Msg("catalog search failed")
		in.Result = contractx.Result{
			Kind:     contractx.KindSearch,
			Response: msgSearchFailed,
		}
		return in, nil
	}

	in.Session.ReplaceResults(in.Text, products)
	in.Result = contractx.Result{
		Kind:     contractx.KindSearch,
		Response: formatSearchResults(q, products),
		Products: in.Session.CurrentProducts,
		Navigate: &contractx.Navigate{Path: "/search?q=" + url.QueryEscape(q.Text)},
	}
	return in, nil
}
