package db

import (
	"context"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

// newDb initializes a fresh memory-backed store and returns a context with a
// logger and a storage handle attached.
func newDb(t *testing.T) context.Context {
	t.Helper()
	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, Init(ctx))
	ctx, err := ConnCtx(ctx)
	require.NoError(t, err)
	return ctx
}
