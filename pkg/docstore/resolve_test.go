package docstore

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Get(ctx context.Context, p Path) (*Document, error) {
	return nil, f.err
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "users/sc1/clients/c1", map[string]any{"name": "Scoped"})
	_ = s.Set(ctx, "clients/c1", map[string]any{"name": "Global"})
	_ = s.Set(ctx, "clients/c2", map[string]any{"name": "OnlyGlobal"})

	candidates := []Template{"users/{center}/clients/{id}", "clients/{id}"}

	tests := []struct {
		name     string
		vars     map[string]string
		wantName string
		wantErr  error
	}{
		{"scoped wins", map[string]string{"center": "sc1", "id": "c1"}, "Scoped", nil},
		{"falls back to global", map[string]string{"center": "sc1", "id": "c2"}, "OnlyGlobal", nil},
		{"skips unexpandable", map[string]string{"id": "c1"}, "Global", nil},
		{"not found", map[string]string{"center": "sc1", "id": "c9"}, "", ErrNotFound},
		{"no id", map[string]string{"center": "sc1"}, "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Resolve(ctx, s, candidates, tt.vars)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := doc.Data.String("name"); got != tt.wantName {
				t.Errorf("Resolve() name = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestResolve_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	s := &failingStore{MemoryStore: NewMemoryStore(), err: boom}

	_, err := Resolve(context.Background(), s, []Template{"clients/{id}"}, map[string]string{"id": "c1"})
	if !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want boom", err)
	}
}
