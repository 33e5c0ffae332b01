package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

func TestCacheRepositoryDegradesWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "feed:hashtags:popular", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "feed:hashtags:popular", []string{"calculo"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "feed:hashtags:*"))
	require.NoError(t, repo.Close())
}
