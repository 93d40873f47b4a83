package access

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"techslots/internal/model"
)

func TestPolicy_CanCreate(t *testing.T) {
	p := NewPolicy(zerolog.Nop())
	assert.NoError(t, p.CanCreate(Actor{ID: "c1", Role: RoleClient}))

	err := p.CanCreate(Actor{ID: "t1", Role: RoleTechnician})
	assert.True(t, IsAccessDenied(err))
}

func TestPolicy_CanTransition(t *testing.T) {
	p := NewPolicy(zerolog.Nop())
	b := &model.Booking{Key: "t1_20300101_09", TechnicianID: "t1", ClientID: "c1"}

	tests := []struct {
		name  string
		actor Actor
		to    model.Status
		allow bool
	}{
		{"technician confirms", Actor{"t1", RoleTechnician}, model.StatusConfirmed, true},
		{"other technician confirms", Actor{"t2", RoleTechnician}, model.StatusConfirmed, false},
		{"client confirms", Actor{"c1", RoleClient}, model.StatusConfirmed, false},
		{"technician completes", Actor{"t1", RoleTechnician}, model.StatusCompleted, true},
		{"client cancels", Actor{"c1", RoleClient}, model.StatusCancelled, true},
		{"technician cancels", Actor{"t1", RoleTechnician}, model.StatusCancelled, true},
		{"stranger cancels", Actor{"c9", RoleClient}, model.StatusCancelled, false},
		{"admin confirms", Actor{"root", RoleAdmin}, model.StatusConfirmed, true},
		{"nobody sets requested", Actor{"t1", RoleTechnician}, model.StatusRequested, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CanTransition(tt.actor, b, tt.to)
			if tt.allow {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsAccessDenied(err), "expected access denied, got %v", err)
			}
		})
	}
}

func TestPolicy_CanView(t *testing.T) {
	p := NewPolicy(zerolog.Nop())
	b := &model.Booking{TechnicianID: "t1", ClientID: "c1"}
	assert.NoError(t, p.CanView(Actor{"c1", RoleClient}, b))
	assert.NoError(t, p.CanView(Actor{"t1", RoleTechnician}, b))
	assert.NoError(t, p.CanView(Actor{"a", RoleAdmin}, b))
	assert.Error(t, p.CanView(Actor{"t1", RoleClient}, b))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("")
	assert.NoError(t, err)
	assert.Equal(t, RoleClient, r)

	r, err = ParseRole("technician")
	assert.NoError(t, err)
	assert.Equal(t, RoleTechnician, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestIsAccessDenied_Wrapped(t *testing.T) {
	err := fmt.Errorf("cancel: %w", &AccessDeniedError{Reason: "no"})
	assert.True(t, IsAccessDenied(err))
	assert.False(t, IsAccessDenied(fmt.Errorf("plain")))
}

func TestPolicy_CanList(t *testing.T) {
	p := NewPolicy(zerolog.Nop())
	assert.NoError(t, p.CanList(Actor{"c1", RoleClient}, "c1", ""))
	assert.NoError(t, p.CanList(Actor{"t1", RoleTechnician}, "", "t1"))
	assert.NoError(t, p.CanList(Actor{"a", RoleAdmin}, "", ""))
	assert.Error(t, p.CanList(Actor{"c1", RoleClient}, "c2", ""))
	assert.Error(t, p.CanList(Actor{"c1", RoleClient}, "c1", "t1"))
	assert.Error(t, p.CanList(Actor{"t1", RoleTechnician}, "", "t2"))
}
