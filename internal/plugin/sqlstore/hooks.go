// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlstore

import (
	"context"
	"time"

	"github.com/siphond/siphond/pkg/log"
)

type queryHooksKey struct{}

// queryHooks satisfies sqlhooks.Hooks, logging query text and elapsed
// time the way repository.Hooks does.
type queryHooks struct{}

func (h *queryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("sqlstore: query %s %q", query, args)
	return context.WithValue(ctx, queryHooksKey{}, time.Now()), nil
}

func (h *queryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryHooksKey{}).(time.Time); ok {
		log.Debugf("sqlstore: query took %s", time.Since(begin))
	}
	return ctx, nil
}
