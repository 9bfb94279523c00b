// Package joiner assembles the client, car and services an appointment
// refers to. Clients and cars may live under the service center or at the
// top level, so every lookup tries both locations.
package joiner

import (
	"context"
	"errors"
	"fmt"

	"autosnap/internal/appointments/reader"
	"autosnap/pkg/docstore"
	"autosnap/pkg/model"

	"golang.org/x/sync/errgroup"
)

// Joined is an appointment with its references resolved. Missing references
// leave Client or Car nil with the matching Found flag false, so views can
// render a placeholder instead of failing.
type Joined struct {
	*model.Appointment
	Client      *model.Client    `json:"client,omitempty"`
	Car         *model.Car       `json:"car,omitempty"`
	Services    []*model.Service `json:"services"`
	ClientFound bool             `json:"clientFound"`
	CarFound    bool             `json:"carFound"`
}

type Joiner struct {
	reader      *reader.Reader
	concurrency int
}

func New(r *reader.Reader, concurrency int) *Joiner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Joiner{reader: r, concurrency: concurrency}
}

// Center returns the user whose client list an appointment's client is
// looked up in: the service center for center appointments, the owner for
// personal ones.
func Center(a *model.Appointment, owner string) string {
	if a.ServiceCenterID != "" {
		return a.ServiceCenterID
	}
	return owner
}

func clientVars(center, clientID string) map[string]string {
	return map[string]string{
		model.VarCenter:   center,
		model.VarClientID: clientID,
	}
}

// ClientLocation returns the path the client currently lives at.
func (j *Joiner) ClientLocation(ctx context.Context, center, clientID string) (docstore.Path, bool, error) {
	doc, err := docstore.Resolve(ctx, j.reader.Store(), model.ClientTemplates, clientVars(center, clientID))
	if errors.Is(err, docstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve client %s: %w", clientID, err)
	}
	return doc.Path, true, nil
}

// ResolveClient returns (nil, nil) when the client exists in neither
// location.
func (j *Joiner) ResolveClient(ctx context.Context, a *model.Appointment, owner string) (*model.Client, error) {
	if a.ClientID == "" {
		return nil, nil
	}
	doc, err := docstore.Resolve(ctx, j.reader.Store(), model.ClientTemplates, clientVars(Center(a, owner), a.ClientID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client %s: %w", a.ClientID, err)
	}
	return model.ClientFromDocument(doc), nil
}

func (j *Joiner) ResolveCar(ctx context.Context, center, clientID, carID string) (*model.Car, error) {
	if clientID == "" || carID == "" {
		return nil, nil
	}
	vars := clientVars(center, clientID)
	vars[model.VarCarID] = carID

	doc, err := docstore.Resolve(ctx, j.reader.Store(), model.CarTemplates, vars)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve car %s: %w", carID, err)
	}
	return model.CarFromDocument(doc), nil
}

// ResolveServices reads the owner's catalog once and returns the requested
// services in request order. Unknown ids are skipped.
func (j *Joiner) ResolveServices(ctx context.Context, serviceIDs []string, owner string) ([]*model.Service, error) {
	if len(serviceIDs) == 0 || owner == "" {
		return []*model.Service{}, nil
	}

	catalog, err := j.reader.Services(ctx, owner)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Service, len(catalog))
	for _, s := range catalog {
		byID[s.ID] = s
	}

	out := make([]*model.Service, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Resolve joins one appointment. The three lookups run concurrently.
func (j *Joiner) Resolve(ctx context.Context, a *model.Appointment, owner string) (*Joined, error) {
	center := Center(a, owner)
	joined := &Joined{Appointment: a}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client, err := j.ResolveClient(gctx, a, owner)
		joined.Client = client
		return err
	})
	g.Go(func() error {
		car, err := j.ResolveCar(gctx, center, a.ClientID, a.CarID)
		joined.Car = car
		return err
	})
	g.Go(func() error {
		services, err := j.ResolveServices(gctx, a.ServiceIDs, center)
		joined.Services = services
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined.ClientFound = joined.Client != nil
	joined.CarFound = joined.Car != nil
	return joined, nil
}

// ResolveAll joins a list, preserving its order, with at most the configured
// number of joins in flight.
func (j *Joiner) ResolveAll(ctx context.Context, list []*model.Appointment, owner string) ([]*Joined, error) {
	out := make([]*Joined, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, a := range list {
		g.Go(func() error {
			joined, err := j.Resolve(gctx, a, owner)
			if err != nil {
				return err
			}
			out[i] = joined
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
