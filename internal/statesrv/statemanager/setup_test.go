package statemanager

import (
	"context"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/db"
)

func newDb(t *testing.T) context.Context {
	t.Helper()
	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, db.Init(ctx))
	ctx, err := db.ConnCtx(ctx)
	require.NoError(t, err)
	return ctx
}
