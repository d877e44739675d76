package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// nameLoader batches profile lookups by id into GetProfiles calls of at most capacity ids.
func (l *Loader) nameLoader() *dataloader.Loader[string, string] {
	return dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[string] {
		results := make([]*dataloader.Result[string], len(keys))
		profiles, err := l.profiles.GetProfiles(ctx, keys)

		byID := make(map[string]string, len(profiles))
		if err == nil {
			for _, p := range profiles {
				byID[p.ID] = p.FullName
			}
		}
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[string]{Error: err}
			} else {
				// a missing profile is not a failure; the row shows UnknownCustomer
				results[i] = &dataloader.Result[string]{Data: byID[key]}
			}
		}
		return results
	},
		dataloader.WithBatchCapacity[string, string](l.opts.BatchCapacity),
		dataloader.WithWait[string, string](time.Millisecond),
	)
}

// customerNames resolves the distinct ids in ids to full names. A fresh loader
// is used per call, so results are never cached across dashboard loads.
func (l *Loader) customerNames(ctx context.Context, ids []string) (map[string]string, error) {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	names := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return names, nil
	}

	values, errs := l.nameLoader().LoadMany(ctx, keys)()
	var firstErr error
	for i, key := range keys {
		if i < len(errs) && errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if i < len(values) {
			names[key] = values[i]
		}
	}
	if firstErr != nil {
		return names, errors.Join(errors.New("resolve customer names"), firstErr)
	}
	return names, nil
}
