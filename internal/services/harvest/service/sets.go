package service

import (
	"context"
	"sort"

	"tulflow/internal/platform/logger"
	"tulflow/internal/services/harvest/domain"
)

// SetEnumerator resolves the sets a run harvests
type SetEnumerator struct {
	Catalog domain.SetCatalog
	Log     *logger.Logger // nil uses the run logger
}

// Resolve applies the selection precedence. An empty result means one unpartitioned harvest.
//  1. all sets: no partitioning
//  2. included sets: returned as given, the catalog is not consulted
//  3. excluded sets: the endpoint catalog minus the exclusions
//  4. otherwise: no partitioning
func (e SetEnumerator) Resolve(ctx context.Context, endpoint string, sel domain.SetSelection) ([]string, error) {
	switch {
	case sel.AllSets:
		return nil, nil
	case len(sel.Included) > 0:
		return append([]string(nil), sel.Included...), nil
	case len(sel.Excluded) > 0:
		all, err := e.Catalog.ListSets(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		skip := make(map[string]struct{}, len(sel.Excluded))
		for _, s := range sel.Excluded {
			skip[s] = struct{}{}
		}
		keep := map[string]struct{}{}
		for _, s := range all {
			if _, ok := skip[s]; !ok {
				keep[s] = struct{}{}
			}
		}
		out := make([]string, 0, len(keep))
		for s := range keep {
			out = append(out, s)
		}
		sort.Strings(out) // stable logs and ledger rows; callers must not rely on order
		if len(out) == 0 {
			log := e.Log
			if log == nil {
				log = logger.C(ctx)
			}
			log.Warn().
				Strs("excluded", sel.Excluded).
				Int("catalog", len(all)).
				Msg("exclusions cover the whole set catalog, harvesting the feed unpartitioned")
		}
		return out, nil
	}
	return nil, nil
}
