package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

func newTestCache(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo, err := NewCacheRepo(client, "test:")
	require.NoError(t, err)
	return repo, mr
}

func TestCacheRepo_GetMissing(t *testing.T) {
	repo, _ := newTestCache(t)

	var v map[string]string
	assert.ErrorIs(t, repo.GetJSON(context.Background(), "nope", &v), apperrors.ErrNotFound)
}

func TestCacheRepo_JSONRoundTripWithPrefix(t *testing.T) {
	repo, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Headings []string `json:"headings"`
	}
	require.NoError(t, repo.SetJSON(ctx, "ctx:1", payload{Headings: []string{"Intro"}}, time.Hour))
	assert.True(t, mr.Exists("test:ctx:1"), "ключ должен храниться с префиксом")

	var got payload
	require.NoError(t, repo.GetJSON(ctx, "ctx:1", &got))
	assert.Equal(t, []string{"Intro"}, got.Headings)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("test:ctx:1"), "ключ должен истечь")
}

func TestCacheRepo_Delete(t *testing.T) {
	repo, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, repo.SetJSON(ctx, "ctx:2", map[string]int{"n": 1}, time.Hour))
	require.NoError(t, repo.Delete(ctx, "ctx:2"))
	assert.False(t, mr.Exists("test:ctx:2"))

	require.NoError(t, repo.Delete(ctx, "ctx:2"), "удаление отсутствующего ключа не ошибка")
}

func TestNewCacheRepo_NilClient(t *testing.T) {
	_, err := NewCacheRepo(nil, "")
	assert.Error(t, err)
}
