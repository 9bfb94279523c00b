// Package reader turns document-tree nodes into domain records. Decoding is
// lenient: a missing or malformed field becomes its zero value, so a single
// corrupt record never fails a collection read.
package reader

import (
	"context"
	"errors"
	"fmt"

	"autosnap/pkg/docstore"
	"autosnap/pkg/model"
)

type Reader struct {
	store docstore.Store
}

func New(store docstore.Store) *Reader {
	return &Reader{store: store}
}

func (r *Reader) Store() docstore.Store {
	return r.store
}

// Appointments reads a whole appointment collection, global or private.
func (r *Reader) Appointments(ctx context.Context, collection docstore.Path) ([]*model.Appointment, error) {
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return decodeAppointments(docs), nil
}

// Appointment returns (nil, nil) when the record does not exist.
func (r *Reader) Appointment(ctx context.Context, p docstore.Path) (*model.Appointment, error) {
	doc, err := r.get(ctx, p)
	if err != nil || doc == nil {
		return nil, err
	}
	return model.AppointmentFromDocument(doc), nil
}

func (r *Reader) Services(ctx context.Context, userID string) ([]*model.Service, error) {
	docs, err := r.store.List(ctx, model.UserServicesPath(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list services of %s: %w", userID, err)
	}
	services := make([]*model.Service, 0, len(docs))
	for _, doc := range docs {
		services = append(services, model.ServiceFromDocument(doc))
	}
	return services, nil
}

func (r *Reader) Client(ctx context.Context, p docstore.Path) (*model.Client, error) {
	doc, err := r.get(ctx, p)
	if err != nil || doc == nil {
		return nil, err
	}
	return model.ClientFromDocument(doc), nil
}

func (r *Reader) Cars(ctx context.Context, client docstore.Path) ([]*model.Car, error) {
	docs, err := r.store.List(ctx, model.CarsPath(client))
	if err != nil {
		return nil, fmt.Errorf("failed to list cars of %s: %w", client, err)
	}
	cars := make([]*model.Car, 0, len(docs))
	for _, doc := range docs {
		cars = append(cars, model.CarFromDocument(doc))
	}
	return cars, nil
}

func (r *Reader) Car(ctx context.Context, p docstore.Path) (*model.Car, error) {
	doc, err := r.get(ctx, p)
	if err != nil || doc == nil {
		return nil, err
	}
	return model.CarFromDocument(doc), nil
}

func (r *Reader) User(ctx context.Context, userID string) (*model.User, error) {
	doc, err := r.get(ctx, model.UserPath(userID))
	if err != nil || doc == nil {
		return nil, err
	}
	return model.UserFromDocument(doc), nil
}

// WatchAppointments delivers the decoded collection on every change until
// the subscription is closed or ctx ends.
func (r *Reader) WatchAppointments(ctx context.Context, collection docstore.Path, fn func([]*model.Appointment)) (*docstore.Subscription, error) {
	sub, err := r.store.Watch(ctx, collection, func(docs []*docstore.Document) {
		fn(decodeAppointments(docs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}
	return sub, nil
}

func (r *Reader) get(ctx context.Context, p docstore.Path) (*docstore.Document, error) {
	doc, err := r.store.Get(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return doc, nil
}

func decodeAppointments(docs []*docstore.Document) []*model.Appointment {
	out := make([]*model.Appointment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, model.AppointmentFromDocument(doc))
	}
	return out
}
