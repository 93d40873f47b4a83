package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"techslots/internal/model"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Technician(ctx context.Context, id string) (*model.Technician, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Technician)
	return t, args.Error(1)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCachedSource_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)

	tech := &model.Technician{
		ID:   "tech123",
		Name: "Ana",
		Availability: model.WeeklyAvailability{
			model.Monday: {{Start: "09:00", End: "12:00"}},
		},
	}
	src := new(mockSource)
	src.On("Technician", mock.Anything, "tech123").Return(tech, nil).Once()

	c := NewCachedSource(src, rdb, time.Minute, "ts", zerolog.Nop())

	first, err := c.Technician(ctx, "tech123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", first.Name)
	assert.True(t, mr.Exists("ts:technician:tech123"))

	second, err := c.Technician(ctx, "tech123")
	require.NoError(t, err)
	assert.Equal(t, tech.Availability, second.Availability)
	src.AssertNumberOfCalls(t, "Technician", 1)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("ts:technician:tech123"))
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)

	src := new(mockSource)
	src.On("Technician", mock.Anything, "ghost").Return(nil, ErrTechnicianNotFound)

	c := NewCachedSource(src, rdb, time.Minute, "ts", zerolog.Nop())
	_, err := c.Technician(ctx, "ghost")
	assert.ErrorIs(t, err, ErrTechnicianNotFound)
	assert.False(t, mr.Exists("ts:technician:ghost"))
}

func TestCachedSource_RedisDown(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	mr.Close()

	src := new(mockSource)
	src.On("Technician", mock.Anything, "tech123").Return(&model.Technician{ID: "tech123"}, nil)

	c := NewCachedSource(src, rdb, time.Minute, "", zerolog.Nop())
	got, err := c.Technician(ctx, "tech123")
	require.NoError(t, err)
	assert.Equal(t, "tech123", got.ID)
}

func TestCachedSource_Invalidate(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)

	src := new(mockSource)
	src.On("Technician", mock.Anything, "tech123").Return(&model.Technician{ID: "tech123"}, nil)

	c := NewCachedSource(src, rdb, time.Minute, "ts", zerolog.Nop())
	_, err := c.Technician(ctx, "tech123")
	require.NoError(t, err)
	require.True(t, mr.Exists("ts:technician:tech123"))

	require.NoError(t, c.Invalidate(ctx, "tech123"))
	assert.False(t, mr.Exists("ts:technician:tech123"))

	require.NoError(t, NewCachedSource(src, nil, 0, "", zerolog.Nop()).Invalidate(ctx, "tech123"))
}

func TestCachedSource_Disabled(t *testing.T) {
	src := new(mockSource)
	src.On("Technician", mock.Anything, "x").Return(nil, errors.New("offline"))

	c := NewCachedSource(src, nil, 0, "", zerolog.Nop())
	_, err := c.Technician(context.Background(), "x")
	assert.EqualError(t, err, "offline")
}
