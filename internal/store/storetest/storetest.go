// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

var errTaken = errors.New("taken")

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against a backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("UpdateKeepsCreatedAt", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("ConcurrentCreateSingleWinner", func(t *testing.T) { testRace(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func key(tid, date string, hour int) slots.Key {
	return slots.Key{TechnicianID: tid, Date: date, Hour: hour}
}

func record(k slots.Key, client string) *model.Booking {
	end, _ := slots.AddHour(k.Start())
	return &model.Booking{
		TechnicianID: k.TechnicianID,
		ClientID:     client,
		Date:         k.Date,
		Start:        k.Start(),
		End:          end,
		Description:  "fix the boiler",
		Status:       model.StatusRequested,
	}
}

// createIfAbsent is the arbiter's protocol reduced to its store calls.
func createIfAbsent(ctx context.Context, s store.Store, k slots.Key, b *model.Booking) error {
	return s.RunTransaction(ctx, k, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return errTaken
		}
		return tx.Put(ctx, b)
	})
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	k := key("tech123", "2030-10-23", 8)

	require.NoError(t, createIfAbsent(ctx, s, k, record(k, "client-1")))

	got, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "tech123_20301023_08", got.Key)
	assert.Equal(t, "tech123", got.TechnicianID)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, "2030-10-23", got.Date)
	assert.Equal(t, "08:00", got.Start)
	assert.Equal(t, "09:00", got.End)
	assert.Equal(t, "fix the boiler", got.Description)
	assert.Equal(t, model.StatusRequested, got.Status)
	assert.False(t, got.CreatedAt.IsZero(), "createdAt must be assigned by the store")

	err = createIfAbsent(ctx, s, k, record(k, "client-2"))
	assert.ErrorIs(t, err, errTaken)
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), key("nobody", "2030-01-01", 9))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	k := key("tech1", "2030-05-05", 10)
	boom := errors.New("boom")

	err := s.RunTransaction(ctx, k, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Put(ctx, record(k, "c1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, k)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	k := key("tech1", "2030-05-05", 11)
	require.NoError(t, createIfAbsent(ctx, s, k, record(k, "c1")))

	before, err := s.Get(ctx, k)
	require.NoError(t, err)

	err = s.RunTransaction(ctx, k, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		require.NotNil(t, cur)
		cur.Status = model.StatusConfirmed
		return tx.Put(ctx, cur)
	})
	require.NoError(t, err)

	after, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, after.Status)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt), "createdAt changed on update")
}

func testRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	k := key("tech-race", "2030-07-01", 15)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
		other   []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			client := fmt.Sprintf("client-%d", i)
			err := createIfAbsent(ctx, s, k, record(k, client))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, client)
			case errors.Is(err, errTaken), errors.Is(err, store.ErrConflict):
				losers++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, losers)

	got, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.ClientID)
}

func testList(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed := []struct {
		k      slots.Key
		client string
	}{
		{key("t1", "2030-03-02", 9), "alice"},
		{key("t1", "2030-03-01", 14), "bob"},
		{key("t1", "2030-03-01", 10), "alice"},
		{key("t2", "2030-03-01", 10), "alice"},
	}
	for _, r := range seed {
		require.NoError(t, createIfAbsent(ctx, s, r.k, record(r.k, r.client)))
	}

	byTech, err := s.List(ctx, store.Filter{TechnicianID: "t1"})
	require.NoError(t, err)
	require.Len(t, byTech, 3)
	assert.Equal(t, []string{"t1_20300301_10", "t1_20300301_14", "t1_20300302_09"},
		[]string{byTech[0].Key, byTech[1].Key, byTech[2].Key})

	byClient, err := s.List(ctx, store.Filter{ClientID: "alice"})
	require.NoError(t, err)
	assert.Len(t, byClient, 3)

	byDay, err := s.List(ctx, store.Filter{TechnicianID: "t1", Date: "2030-03-01"})
	require.NoError(t, err)
	assert.Len(t, byDay, 2)

	none, err := s.List(ctx, store.Filter{ClientID: "carol"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
