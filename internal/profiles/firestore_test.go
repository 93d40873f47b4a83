package profiles

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techslots/internal/model"
	"techslots/internal/slots"
	fsstore "techslots/internal/store/firestore"
)

// Runs only against the Firestore emulator.
func TestFirestoreSource(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := fsstore.NewClient(ctx, fsstore.ClientConfig{ProjectID: "techslots-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	coll := fmt.Sprintf("technicians_%d", time.Now().UnixNano())
	_, err = client.Collection(coll).Doc("tech123").Set(ctx, map[string]any{
		"nombre":    "Ana",
		"ciudad":    "Bogotá",
		"publicado": true,
		"horarios": map[string]any{
			"lun": []map[string]any{{"inicio": "09:00", "fin": "12:00"}},
			"sab": []map[string]any{},
		},
		"excepciones": map[string]any{"2025-10-20": []string{"10:00"}},
		"tarifaBase":  nil,
	})
	require.NoError(t, err)

	src := NewFirestoreSource(client, coll)
	got, err := src.Technician(ctx, "tech123")
	require.NoError(t, err)
	assert.Equal(t, "tech123", got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.True(t, got.Published)
	assert.Equal(t, []model.TimeRange{{Start: "09:00", End: "12:00"}}, got.Availability[model.Monday])
	assert.Equal(t, []string{"10:00"}, got.Exceptions["2025-10-20"])

	_, err = src.Technician(ctx, "nobody")
	assert.ErrorIs(t, err, ErrTechnicianNotFound)
}

func TestTechnicianDoc_WebAppShape(t *testing.T) {
	published := false
	doc := technicianDoc{
		Nombre:    "Ana",
		Ciudad:    "Bogotá",
		Publicado: &published,
		Horarios: map[string][]rangeDoc{
			"lun": {{Inicio: "08:00", Fin: "12:00"}, {Inicio: "14:00", Fin: "18:00"}},
			"mie": {{Inicio: "08:00", Fin: "10:00"}},
			"dom": {},
		},
		Excepciones: map[string][]string{"2025-10-20": {"09:00"}},
	}

	got, err := doc.toModel("tech123")
	require.NoError(t, err)
	assert.Equal(t, "tech123", got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "Bogotá", got.City)
	assert.False(t, got.Published)
	assert.Equal(t, []model.TimeRange{{Start: "08:00", End: "12:00"}, {Start: "14:00", End: "18:00"}}, got.Availability[model.Monday])
	assert.Equal(t, []model.TimeRange{{Start: "08:00", End: "10:00"}}, got.Availability[model.Wednesday])
	assert.Equal(t, []string{"09:00"}, got.Exceptions["2025-10-20"])

	// Monday 2025-10-20: 08..11 and 14..17, minus the 09:00 exception.
	assert.Equal(t, []string{"08:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}, slots.DeriveFor(got, "2025-10-20"))
}

func TestTechnicianDoc_EnglishFallback(t *testing.T) {
	published := true
	doc := technicianDoc{
		Name:         "Bo",
		Published:    &published,
		Availability: map[string][]rangeDoc{"tue": {{Start: "09:00", End: "11:00"}}},
	}

	got, err := doc.toModel("tech9")
	require.NoError(t, err)
	assert.True(t, got.Published)
	assert.Equal(t, []string{"09:00", "10:00"}, slots.DeriveFor(got, "2025-10-21"))
}

func TestTechnicianDoc_UnknownWeekday(t *testing.T) {
	doc := technicianDoc{Horarios: map[string][]rangeDoc{"funday": {{Inicio: "08:00", Fin: "09:00"}}}}
	_, err := doc.toModel("tech1")
	assert.Error(t, err)
}
