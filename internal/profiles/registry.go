// Package profiles resolves technician availability templates for the
// booking service.
package profiles

import (
	"context"
	"errors"
	"sort"
	"sync"

	"techslots/internal/model"
)

var ErrTechnicianNotFound = errors.New("technician not found")

// Source looks a technician up by ID.
type Source interface {
	Technician(ctx context.Context, id string) (*model.Technician, error)
}

// Registry holds profiles in memory. It is replaced wholesale when the
// profile file is reloaded.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*model.Technician
}

func NewRegistry(techs []*model.Technician) *Registry {
	r := &Registry{}
	r.Replace(techs)
	return r
}

// Replace swaps the whole profile set.
func (r *Registry) Replace(techs []*model.Technician) {
	byID := make(map[string]*model.Technician, len(techs))
	for _, t := range techs {
		if t == nil || t.ID == "" {
			continue
		}
		byID[t.ID] = t
	}
	r.mu.Lock()
	r.byID = byID
	r.mu.Unlock()
}

func (r *Registry) Technician(ctx context.Context, id string) (*model.Technician, error) {
	r.mu.RLock()
	t, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrTechnicianNotFound
	}
	cp := *t
	return &cp, nil
}

// List returns the profiles ordered by ID.
func (r *Registry) List() []*model.Technician {
	r.mu.RLock()
	out := make([]*model.Technician, 0, len(r.byID))
	for _, t := range r.byID {
		cp := *t
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs lists the known technician IDs in order.
func (r *Registry) IDs() []string {
	list := r.List()
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	return ids
}
