package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clinicsync/internal/app/client/remote"
	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"
	"clinicsync/internal/infrastructure/storage/sqlite"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type patient struct {
	Name string `json:"name"`
}

type appointment struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

func newStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "clinic.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func enqueue(t *testing.T, q queue.Repository, entity record.Entity, action queue.Action, localID, remoteID string, p queue.Priority) *queue.Item {
	t.Helper()
	item := &queue.Item{Entity: entity, Action: action, LocalID: localID, RemoteID: remoteID, Priority: p}
	require.NoError(t, q.Add(context.Background(), item))
	return item
}

func findItem(t *testing.T, q queue.Repository, id string) *queue.Item {
	t.Helper()
	all, err := q.GetAll(context.Background())
	require.NoError(t, err)
	for _, item := range all {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// fakeHandler counts remote calls per queue item.
type fakeHandler struct {
	mu       sync.Mutex
	calls    map[string]int
	statuses map[string]record.SyncStatus
	create   func(ctx context.Context, item *queue.Item) (string, error)
	update   func(ctx context.Context, item *queue.Item) (string, error)
	delete   func(ctx context.Context, item *queue.Item) error
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		calls:    make(map[string]int),
		statuses: make(map[string]record.SyncStatus),
	}
}

func (f *fakeHandler) count(item *queue.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[item.ID]++
}

func (f *fakeHandler) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeHandler) Status(localID string) record.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[localID]
}

func (f *fakeHandler) Create(ctx context.Context, item *queue.Item) (string, error) {
	f.count(item)
	if f.create != nil {
		return f.create(ctx, item)
	}
	return "r-" + item.LocalID, nil
}

func (f *fakeHandler) Update(ctx context.Context, item *queue.Item) (string, error) {
	f.count(item)
	if f.update != nil {
		return f.update(ctx, item)
	}
	return item.RemoteID, nil
}

func (f *fakeHandler) Delete(ctx context.Context, item *queue.Item) error {
	f.count(item)
	if f.delete != nil {
		return f.delete(ctx, item)
	}
	return nil
}

func (f *fakeHandler) SetLocalStatus(_ context.Context, localID string, status record.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[localID] = status
	return nil
}

// fakeResource is an in-memory remote collection.
type fakeResource[T any] struct {
	mu     sync.Mutex
	docs   map[string]*remote.Document[T]
	calls  map[string]int
	seq    int
	prefix string
	fail   error
}

func newFakeResource[T any](prefix string) *fakeResource[T] {
	return &fakeResource[T]{
		docs:   make(map[string]*remote.Document[T]),
		calls:  make(map[string]int),
		prefix: prefix,
	}
}

func (r *fakeResource[T]) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *fakeResource[T]) Put(id string, updatedAt time.Time, data T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id] = &remote.Document[T]{ID: id, UpdatedAt: updatedAt, Data: data}
}

func (r *fakeResource[T]) Doc(id string) *remote.Document[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id]
}

func (r *fakeResource[T]) Create(_ context.Context, updatedAt time.Time, data T) (*remote.Document[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["create"]++
	if r.fail != nil {
		return nil, r.fail
	}
	r.seq++
	doc := &remote.Document[T]{ID: fmt.Sprintf("%s%d", r.prefix, r.seq), UpdatedAt: updatedAt, Data: data}
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *fakeResource[T]) Get(_ context.Context, id string) (*remote.Document[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["get"]++
	if r.fail != nil {
		return nil, r.fail
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeResource[T]) Update(_ context.Context, id string, updatedAt time.Time, data T) (*remote.Document[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["update"]++
	if r.fail != nil {
		return nil, r.fail
	}
	if _, ok := r.docs[id]; !ok {
		return nil, remote.ErrNotFound
	}
	doc := &remote.Document[T]{ID: id, UpdatedAt: updatedAt, Data: data}
	r.docs[id] = doc
	return doc, nil
}

func (r *fakeResource[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["delete"]++
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("%w: gone", remote.ErrNotFound)
	}
	delete(r.docs, id)
	return nil
}
