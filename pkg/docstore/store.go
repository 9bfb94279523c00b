package docstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("document not found")

	ErrInvalidPath = errors.New("invalid document path")

	ErrInvalidField = errors.New("invalid field name")
)

// Document is one node: its path and its own fields.
type Document struct {
	Path Path
	Data Fields
}

func (d *Document) Key() string {
	return d.Path.Key()
}

// Listener receives the full contents of a watched collection.
type Listener func(docs []*Document)

type Store interface {
	// Get returns the node at p or ErrNotFound.
	Get(ctx context.Context, p Path) (*Document, error)
	// List returns the direct children of collection ordered by key. An
	// empty or missing collection yields an empty slice.
	List(ctx context.Context, collection Path) ([]*Document, error)
	// Set replaces the fields of the node at p, creating it when missing.
	// Children of p are not touched.
	Set(ctx context.Context, p Path, data map[string]any) error
	// Update merges fields into an existing node or returns ErrNotFound.
	Update(ctx context.Context, p Path, fields map[string]any) error
	// Delete removes the node at p and everything below it. ErrNotFound is
	// returned when nothing existed there.
	Delete(ctx context.Context, p Path) error
	// Watch delivers the collection once immediately and again after every
	// change to one of its direct children, until the subscription is
	// closed or ctx is cancelled.
	Watch(ctx context.Context, collection Path, fn Listener) (*Subscription, error)
}

// NewKey returns a fresh, time-ordered document key.
func NewKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func validateFields(fields map[string]any) error {
	for k := range fields {
		if k == "" || strings.ContainsAny(k, "./") || strings.HasPrefix(k, "$") {
			return errors.Join(ErrInvalidField, errors.New(k))
		}
	}
	return nil
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
