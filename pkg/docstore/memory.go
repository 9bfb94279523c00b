package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryWatcher struct {
	collection Path
	fn         Listener
	sub        *Subscription
}

// MemoryStore keeps the tree in process memory. Listeners run synchronously
// on the goroutine that performed the write, after the store lock has been
// released.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[Path]Fields
	watchers map[uint64]*memoryWatcher
	nextID   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[Path]Fields),
		watchers: make(map[uint64]*memoryWatcher),
	}
}

func (m *MemoryStore) Get(ctx context.Context, p Path) (*Document, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.nodes[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return &Document{Path: p, Data: copyFields(data)}, nil
}

func (m *MemoryStore) List(ctx context.Context, collection Path) ([]*Document, error) {
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(collection), nil
}

func (m *MemoryStore) listLocked(collection Path) []*Document {
	docs := []*Document{}
	for p, data := range m.nodes {
		if p.Parent() == collection {
			docs = append(docs, &Document{Path: p, Data: copyFields(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs
}

func (m *MemoryStore) Set(ctx context.Context, p Path, data map[string]any) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateFields(data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.nodes[p] = copyFields(data)
	affected := m.watchersForLocked(p.Parent())
	m.mu.Unlock()

	m.notify(affected)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, p Path, fields map[string]any) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	data, ok := m.nodes[p]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	for k, v := range fields {
		data[k] = copyValue(v)
	}
	affected := m.watchersForLocked(p.Parent())
	m.mu.Unlock()

	m.notify(affected)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, p Path) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	removed := 0
	for existing := range m.nodes {
		if p.Contains(existing) {
			delete(m.nodes, existing)
			removed++
		}
	}
	if removed == 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	var affected []*memoryWatcher
	for _, w := range m.watchers {
		if w.collection == p.Parent() || p.Contains(w.collection) {
			affected = append(affected, w)
		}
	}
	m.mu.Unlock()

	m.notify(affected)
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context, collection Path, fn Listener) (*Subscription, error) {
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("docstore: nil listener")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	w := &memoryWatcher{collection: collection, fn: fn}
	w.sub = newSubscription(ctx, func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	})
	m.watchers[id] = w
	initial := m.listLocked(collection)
	m.mu.Unlock()

	w.sub.deliver(fn, initial)
	return w.sub, nil
}

// WatcherCount reports how many watches are currently registered.
func (m *MemoryStore) WatcherCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watchers)
}

func (m *MemoryStore) watchersForLocked(collection Path) []*memoryWatcher {
	var out []*memoryWatcher
	for _, w := range m.watchers {
		if w.collection == collection {
			out = append(out, w)
		}
	}
	return out
}

func (m *MemoryStore) notify(watchers []*memoryWatcher) {
	for _, w := range watchers {
		if !w.sub.Active() {
			continue
		}
		m.mu.RLock()
		docs := m.listLocked(w.collection)
		m.mu.RUnlock()
		w.sub.deliver(w.fn, docs)
	}
}

// Ping always succeeds unless ctx is already done.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
