package profiles

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"techslots/internal/model"
)

// DefaultCollection holds one document per technician, keyed by ID.
const DefaultCollection = "technicians"

// rangeDoc is one window of a stored schedule. Profiles written by the web
// app use inicio/fin; start/end is accepted as well.
type rangeDoc struct {
	Inicio string `firestore:"inicio"`
	Fin    string `firestore:"fin"`
	Start  string `firestore:"start"`
	End    string `firestore:"end"`
}

func (r rangeDoc) toModel() model.TimeRange {
	tr := model.TimeRange{Start: r.Inicio, End: r.Fin}
	if tr.Start == "" {
		tr.Start = r.Start
	}
	if tr.End == "" {
		tr.End = r.End
	}
	return tr
}

// technicianDoc is the stored profile document. horarios, excepciones and
// publicado are the web app's field names; the English names are fallbacks.
type technicianDoc struct {
	Nombre       string                `firestore:"nombre"`
	Name         string                `firestore:"name"`
	Ciudad       string                `firestore:"ciudad"`
	City         string                `firestore:"city"`
	Publicado    *bool                 `firestore:"publicado"`
	Published    *bool                 `firestore:"published"`
	Horarios     map[string][]rangeDoc `firestore:"horarios"`
	Availability map[string][]rangeDoc `firestore:"availability"`
	Excepciones  map[string][]string   `firestore:"excepciones"`
	Exceptions   map[string][]string   `firestore:"exceptions"`
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (d technicianDoc) toModel(id string) (*model.Technician, error) {
	t := &model.Technician{
		ID:   id,
		Name: firstNonEmpty(d.Nombre, d.Name),
		City: firstNonEmpty(d.Ciudad, d.City),
	}
	switch {
	case d.Publicado != nil:
		t.Published = *d.Publicado
	case d.Published != nil:
		t.Published = *d.Published
	}

	schedule := d.Horarios
	if len(schedule) == 0 {
		schedule = d.Availability
	}
	week := make(model.WeeklyAvailability, len(schedule))
	for day, ranges := range schedule {
		out := make([]model.TimeRange, 0, len(ranges))
		for _, r := range ranges {
			out = append(out, r.toModel())
		}
		week[model.Weekday(day)] = out
	}
	var err error
	if t.Availability, err = week.Normalize(); err != nil {
		return nil, fmt.Errorf("technician %s availability: %w", id, err)
	}

	t.Exceptions = model.ExceptionMap{}
	for date, hours := range d.Exceptions {
		t.Exceptions[date] = append(t.Exceptions[date], hours...)
	}
	for date, hours := range d.Excepciones {
		t.Exceptions[date] = append(t.Exceptions[date], hours...)
	}
	return t, nil
}

// FirestoreSource reads profiles from a Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreSource(client *firestore.Client, collection string) *FirestoreSource {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreSource{client: client, collection: collection}
}

func (s *FirestoreSource) Technician(ctx context.Context, id string) (*model.Technician, error) {
	if id == "" {
		return nil, ErrTechnicianNotFound
	}
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrTechnicianNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get technician %s: %w", id, err)
	}

	var doc technicianDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode technician %s: %w", id, err)
	}
	return doc.toModel(snap.Ref.ID)
}
