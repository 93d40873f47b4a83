package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techslots/internal/config"
	"techslots/internal/store/memstore"
	"techslots/internal/store/redisstore"
	"techslots/internal/store/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Store.Driver = "memory"
	st, err := Open(ctx, cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, st)

	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "ts.db")
	st, err = Open(ctx, cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, st)
	require.NoError(t, st.Ping(ctx))
	require.NoError(t, st.Close())

	cfg.Store.Driver = "redis"
	_, err = Open(ctx, cfg, nil, zerolog.Nop())
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	st, err = Open(ctx, cfg, rdb, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, st)

	cfg.Store.Driver = "cassandra"
	_, err = Open(ctx, cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}
