package docstore

import (
	"context"
	"errors"
)

// Resolve tries each candidate template in order and returns the first node
// that exists. Templates that cannot be expanded from vars are skipped. When
// no candidate exists the result is (nil, ErrNotFound).
func Resolve(ctx context.Context, store Store, candidates []Template, vars map[string]string) (*Document, error) {
	for _, tmpl := range candidates {
		p, ok := tmpl.Expand(vars)
		if !ok {
			continue
		}
		doc, err := store.Get(ctx, p)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
