package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "gw-audit/internal/db"
)

func setupKVRepo(t *testing.T) *KVRepo {
	t.Helper()
	return NewKVRepo(internaldb.OpenTestSQLite(t))
}

func TestKVRepo_GetMissing(t *testing.T) {
	repo := setupKVRepo(t)

	v, ok, err := repo.Get(context.Background(), "groups.next_index")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestKVRepo_SetAndOverwrite(t *testing.T) {
	repo := setupKVRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "groups.next_index", "500"))
	require.NoError(t, repo.Set(ctx, "groups.next_index", "1000"))

	v, ok, err := repo.Get(ctx, "groups.next_index")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1000", v)
}

func TestKVRepo_Delete(t *testing.T) {
	repo := setupKVRepo(t)
	ctx := context.Background()

	for _, k := range []string{"groups.next_index", "groups.results", "groups.groups", "users.other"} {
		require.NoError(t, repo.Set(ctx, k, fmt.Sprintf("value of %s", k)))
	}

	require.NoError(t, repo.Delete(ctx, "groups.next_index", "groups.results", "groups.groups", "never.set"))
	require.NoError(t, repo.Delete(ctx))

	_, ok, err := repo.Get(ctx, "groups.results")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := repo.Get(ctx, "users.other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value of users.other", v)
}

func TestKVRepo_LargeValue(t *testing.T) {
	repo := setupKVRepo(t)
	ctx := context.Background()
	big := make([]byte, 1<<20)
	for i := range big {
		big[i] = 'x'
	}

	require.NoError(t, repo.Set(ctx, "groups.groups", string(big)))
	v, ok, err := repo.Get(ctx, "groups.groups")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, v, len(big))
}

func TestMapDBError(t *testing.T) {
	assert.NoError(t, mapDBError(nil))

	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	assert.ErrorIs(t, mapDBError(fmt.Errorf("set k: %w", busy)), ErrLocked)

	plain := errors.New("disk I/O error")
	assert.Equal(t, plain, mapDBError(plain))
}
