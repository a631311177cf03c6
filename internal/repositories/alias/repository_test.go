package alias

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestRepository_Aliases(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t), testutil.Logger(), time.Minute)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, models.UpsertAliasRequest{Alias: "Abdul  ASIPH.", CanonicalName: "Abdul Asif"}, "editor@example.com")
	require.NoError(t, err)
	assert.Equal(t, "abdul asiph", saved.Alias)

	// cached miss must not hide a later write
	resolved, err := repo.CanonicalNames(ctx, []string{"ram lal", "abdul asiph"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"abdul asiph": "Abdul Asif"}, resolved)

	_, err = repo.Upsert(ctx, models.UpsertAliasRequest{Alias: "ram lal", CanonicalName: "Ram Lal Yadav"}, "")
	require.NoError(t, err)

	resolved, err = repo.CanonicalNames(ctx, []string{"ram lal"})
	require.NoError(t, err)
	assert.Equal(t, "Ram Lal Yadav", resolved["ram lal"])

	aliases, total, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, aliases, 2)

	require.NoError(t, repo.Delete(ctx, "Ram Lal"))
	resolved, err = repo.CanonicalNames(ctx, []string{"ram lal"})
	require.NoError(t, err)
	assert.Empty(t, resolved)

	err = repo.Delete(ctx, "ram lal")
	assert.Equal(t, 404, httperror.GetStatusCode(err))

	_, err = repo.Upsert(ctx, models.UpsertAliasRequest{Alias: "...", CanonicalName: "x"}, "")
	assert.Equal(t, 400, httperror.GetStatusCode(err))
}
