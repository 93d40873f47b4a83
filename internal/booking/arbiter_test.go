package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
	"techslots/internal/store/memstore"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStore) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockStore) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.Booking)
	return list, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockStore) Close() error { return nil }

func newRequest(client string) CreateRequest {
	return CreateRequest{
		TechnicianID: "tech123",
		ClientID:     client,
		Date:         "2025-10-23",
		Hour:         "08:00",
		Description:  "boiler check",
	}
}

func TestArbiter_Create(t *testing.T) {
	a := NewArbiter(memstore.New(), ReleaseCancelled, zerolog.Nop())

	b, err := a.Create(context.Background(), newRequest("client-1"))
	require.NoError(t, err)
	assert.Equal(t, "tech123_20251023_08", b.Key)
	assert.Equal(t, "08:00", b.Start)
	assert.Equal(t, "09:00", b.End)
	assert.Equal(t, model.StatusRequested, b.Status)
	assert.False(t, b.CreatedAt.IsZero())

	_, err = a.Create(context.Background(), newRequest("client-2"))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestArbiter_CreateInvalid(t *testing.T) {
	a := NewArbiter(memstore.New(), ReleaseCancelled, zerolog.Nop())

	req := newRequest("client-1")
	req.Hour = "8"
	_, err := a.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = a.Create(context.Background(), newRequest(""))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestArbiter_ConcurrentCreate(t *testing.T) {
	a := NewArbiter(memstore.New(), ReleaseCancelled, zerolog.Nop())

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		taken   int
		clients = make([]string, 0, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := a.Create(context.Background(), newRequest(string(rune('a'+i))))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
				clients = append(clients, b.ClientID)
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, taken)
	require.Len(t, clients, 1)
}

func TestArbiter_CancelledSlotPolicy(t *testing.T) {
	ctx := context.Background()
	key, err := slots.NewKey("tech123", "2025-10-23", "08:00")
	require.NoError(t, err)

	t.Run("release", func(t *testing.T) {
		a := NewArbiter(memstore.New(), ReleaseCancelled, zerolog.Nop())
		_, err := a.Create(ctx, newRequest("client-1"))
		require.NoError(t, err)
		_, _, err = a.Transition(ctx, key, model.StatusCancelled, nil)
		require.NoError(t, err)

		b, err := a.Create(ctx, newRequest("client-2"))
		require.NoError(t, err)
		assert.Equal(t, "client-2", b.ClientID)
		assert.Equal(t, model.StatusRequested, b.Status)
	})

	t.Run("retain", func(t *testing.T) {
		a := NewArbiter(memstore.New(), RetainCancelled, zerolog.Nop())
		_, err := a.Create(ctx, newRequest("client-1"))
		require.NoError(t, err)
		_, _, err = a.Transition(ctx, key, model.StatusCancelled, nil)
		require.NoError(t, err)

		_, err = a.Create(ctx, newRequest("client-2"))
		assert.ErrorIs(t, err, ErrSlotTaken)
	})
}

func TestArbiter_Transition(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a := NewArbiter(st, ReleaseCancelled, zerolog.Nop())
	created, err := a.Create(ctx, newRequest("client-1"))
	require.NoError(t, err)
	key, err := slots.ParseKey(created.Key)
	require.NoError(t, err)

	_, _, err = a.Transition(ctx, key, model.StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	denied := errors.New("denied")
	_, _, err = a.Transition(ctx, key, model.StatusConfirmed, func(*model.Booking) error { return denied })
	assert.Same(t, denied, err)

	updated, from, err := a.Transition(ctx, key, model.StatusConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRequested, from)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	stored, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, stored.Status)

	missing, err := slots.NewKey("tech999", "2025-10-23", "08:00")
	require.NoError(t, err)
	_, _, err = a.Transition(ctx, missing, model.StatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestArbiter_InfrastructureError(t *testing.T) {
	st := new(mockStore)
	st.On("RunTransaction", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	a := NewArbiter(st, ReleaseCancelled, zerolog.Nop())

	_, err := a.Create(context.Background(), newRequest("client-1"))
	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))
	assert.NotErrorIs(t, err, ErrSlotTaken)

	key, _ := slots.NewKey("tech123", "2025-10-23", "08:00")
	_, _, err = a.Transition(context.Background(), key, model.StatusConfirmed, nil)
	assert.True(t, IsInfrastructure(err))
	st.AssertExpectations(t)
}

func TestArbiter_StoreConflictIsSlotTaken(t *testing.T) {
	st := new(mockStore)
	st.On("RunTransaction", mock.Anything, mock.Anything).Return(store.ErrConflict)
	a := NewArbiter(st, ReleaseCancelled, zerolog.Nop())

	_, err := a.Create(context.Background(), newRequest("client-1"))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.False(t, IsInfrastructure(err))
}

func TestParseCancelledSlotPolicy(t *testing.T) {
	p, err := ParseCancelledSlotPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReleaseCancelled, p)

	p, err = ParseCancelledSlotPolicy("retain")
	require.NoError(t, err)
	assert.Equal(t, RetainCancelled, p)

	_, err = ParseCancelledSlotPolicy("forever")
	assert.Error(t, err)
}
