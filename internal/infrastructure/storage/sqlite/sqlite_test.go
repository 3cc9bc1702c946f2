package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clinicsync/internal/domain/queue"
	"clinicsync/internal/domain/record"
	"clinicsync/internal/domain/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type patient struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

func newTestStorage(t *testing.T) (*Storage, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	s, err := New(filepath.Join(t.TempDir(), "clinic.db"), slog.Default(), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func newPatients(t *testing.T, s *Storage) *RecordRepository[patient] {
	t.Helper()
	repo, err := NewRecordRepository[patient](s, record.EntityPatient, slog.Default())
	require.NoError(t, err)
	return repo
}

func TestNewRecordRepository_UnknownEntity(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := NewRecordRepository[patient](s, record.Entity("factura"), slog.Default())

	assert.ErrorIs(t, err, record.ErrUnknownEntity)
}

func TestRecordRepository_Create(t *testing.T) {
	// Arrange
	s, clock := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	// Act
	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana López"})
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, rec.ID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, record.IsLocalID(got.ID))
	assert.Equal(t, "clinic-1", got.ScopeID)
	assert.Equal(t, "Ana López", got.Data.Name)
	assert.Equal(t, record.SyncStatusPending, got.SyncStatus)
	assert.True(t, got.LocalOnly)
	assert.Empty(t, got.RemoteID)
	assert.True(t, clock.Now().Equal(got.UpdatedAt))
}

func TestRecordRepository_GetByID_Missing(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := newPatients(t, s)

	got, err := repo.GetByID(context.Background(), "local_nope")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordRepository_Update(t *testing.T) {
	s, clock := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateSyncStatus(ctx, rec.ID, record.SyncStatusSynced))

	t.Run("merges and refreshes timestamp", func(t *testing.T) {
		clock.Advance(5 * time.Second)

		updated, err := repo.Update(ctx, rec.ID, func(p *patient) { p.Phone = "555-0101" })

		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Ana", updated.Data.Name)
		assert.Equal(t, "555-0101", updated.Data.Phone)
		assert.Equal(t, record.SyncStatusPending, updated.SyncStatus)
		assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))

		stored, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
	})

	t.Run("missing id is not an error", func(t *testing.T) {
		called := false
		updated, err := repo.Update(ctx, "local_missing", func(*patient) { called = true })

		assert.NoError(t, err)
		assert.Nil(t, updated)
		assert.False(t, called)
	})
}

func TestRecordRepository_Delete_Idempotent(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	require.NoError(t, repo.Delete(ctx, rec.ID))

	got, err := repo.GetByID(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordRepository_GetAll_Scoped(t *testing.T) {
	s, clock := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	_, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)
	clock.Advance(time.Millisecond)
	_, err = repo.Create(ctx, "clinic-1", patient{Name: "Luis"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "clinic-2", patient{Name: "Eva"})
	require.NoError(t, err)

	got, err := repo.GetAll(ctx, "clinic-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Luis", got[0].Data.Name)
	assert.Equal(t, "Ana", got[1].Data.Name)

	none, err := repo.GetAll(ctx, "clinic-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRepository_UpdateRemoteID_KeepsLocalID(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRemoteID(ctx, rec.ID, "r-42"))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "r-42", got.RemoteID)
	assert.False(t, got.LocalOnly)
	assert.Equal(t, "r-42", got.ServerID())
}

func TestRecordRepository_Upsert(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := newPatients(t, s)
	ctx := context.Background()

	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateRemoteID(ctx, rec.ID, "r-1"))

	remoteTime := time.UnixMilli(1_800_000_000_000)
	err = repo.Upsert(ctx, &record.LocalRecord[patient]{
		ID:         rec.ID,
		RemoteID:   "r-1",
		ScopeID:    "clinic-1",
		Data:       patient{Name: "Ana María"},
		SyncStatus: record.SyncStatusSynced,
		UpdatedAt:  remoteTime,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", got.Data.Name)
	assert.Equal(t, record.SyncStatusSynced, got.SyncStatus)
	assert.True(t, remoteTime.Equal(got.UpdatedAt))

	t.Run("inserts unknown id", func(t *testing.T) {
		err := repo.Upsert(ctx, &record.LocalRecord[patient]{
			ID:         "r-9",
			RemoteID:   "r-9",
			ScopeID:    "clinic-1",
			Data:       patient{Name: "Eva"},
			SyncStatus: record.SyncStatusSynced,
			UpdatedAt:  remoteTime,
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, "r-9")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.LocalOnly)
	})
}

func TestRecordRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.db")
	ctx := context.Background()

	s, err := New(path, slog.Default())
	require.NoError(t, err)
	repo, err := NewRecordRepository[patient](s, record.EntityPatient, slog.Default())
	require.NoError(t, err)
	rec, err := repo.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path, slog.Default())
	require.NoError(t, err)
	defer s.Close()
	repo, err = NewRecordRepository[patient](s, record.EntityPatient, slog.Default())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Data.Name)
}

func TestQueueRepository_Add(t *testing.T) {
	s, clock := newTestStorage(t)
	repo := NewQueueRepository(s, slog.Default())
	ctx := context.Background()

	item := &queue.Item{
		Entity:   record.EntityPatient,
		Action:   queue.ActionCreate,
		Data:     []byte(`{"name":"Ana"}`),
		LocalID:  "local_1",
		Retries:  3,
		Status:   queue.StatusFailed,
		Priority: queue.PriorityHigh,
	}

	require.NoError(t, repo.Add(ctx, item))

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, queue.StatusPending, item.Status)
	assert.Zero(t, item.Retries)
	assert.True(t, clock.Now().Equal(item.CreatedAt))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, item, all[0])

	assert.ErrorIs(t, repo.Add(ctx, &queue.Item{Entity: record.EntityPatient}), queue.ErrInvalidItem)
}

func TestQueueRepository_GetPendingByPriority(t *testing.T) {
	s, clock := newTestStorage(t)
	repo := NewQueueRepository(s, slog.Default())
	ctx := context.Background()

	add := func(localID string, p queue.Priority) *queue.Item {
		item := &queue.Item{Entity: record.EntityAppointment, Action: queue.ActionCreate, LocalID: localID, Priority: p}
		require.NoError(t, repo.Add(ctx, item))
		return item
	}

	add("low-1", queue.PriorityLow)
	clock.Advance(time.Millisecond)
	add("medium-1", queue.PriorityMedium)
	clock.Advance(time.Millisecond)
	add("high-1", queue.PriorityHigh)
	// same millisecond as high-1: insertion order decides
	add("high-2", queue.PriorityHigh)
	clock.Advance(time.Millisecond)
	add("medium-2", queue.PriorityMedium)
	done := add("done", queue.PriorityHigh)
	require.NoError(t, repo.UpdateStatus(ctx, done.ID, queue.StatusCompleted, ""))

	pending, err := repo.GetPendingByPriority(ctx)
	require.NoError(t, err)

	var order []string
	for _, item := range pending {
		order = append(order, item.LocalID)
	}
	assert.Equal(t, []string{"high-1", "high-2", "medium-1", "medium-2", "low-1"}, order)
}

func TestQueueRepository_Lifecycle(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := NewQueueRepository(s, slog.Default())
	ctx := context.Background()

	a := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionCreate, LocalID: "local_a"}
	b := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionUpdate, LocalID: "local_a"}
	c := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionDelete, LocalID: "local_c"}
	for _, item := range []*queue.Item{a, b, c} {
		require.NoError(t, repo.Add(ctx, item))
	}

	t.Run("has pending excludes self", func(t *testing.T) {
		has, err := repo.HasPending(ctx, "local_a", a.ID)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = repo.HasPending(ctx, "local_c", c.ID)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("retries and remote id", func(t *testing.T) {
		require.NoError(t, repo.IncrementRetries(ctx, a.ID))
		require.NoError(t, repo.IncrementRetries(ctx, a.ID))
		require.NoError(t, repo.UpdateRemoteID(ctx, a.ID, "r-1"))
		require.NoError(t, repo.UpdateStatus(ctx, a.ID, queue.StatusPending, "timeout"))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, all[0].Retries)
		assert.Equal(t, "r-1", all[0].RemoteID)
		assert.Equal(t, "timeout", all[0].ErrorMessage)
	})

	t.Run("requeue syncing", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, b.ID, queue.StatusSyncing, ""))

		n, err := repo.RequeueSyncing(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		pending, err := repo.GetPendingByPriority(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, 3)
	})

	t.Run("retry failed", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, a.ID, queue.StatusFailed, "manual attention required"))

		n, err := repo.RetryFailed(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, all[0].Status)
		assert.Zero(t, all[0].Retries)
		assert.Empty(t, all[0].ErrorMessage)
	})

	t.Run("clear completed", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, a.ID, queue.StatusCompleted, ""))
		require.NoError(t, repo.UpdateStatus(ctx, c.ID, queue.StatusCompleted, ""))

		n, err := repo.ClearCompleted(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, b.ID, all[0].ID)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, repo.Clear(ctx))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestQueueRepository_RemoteIDPropagation(t *testing.T) {
	s, _ := newTestStorage(t)
	repo := NewQueueRepository(s, slog.Default())
	ctx := context.Background()

	create := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionCreate, LocalID: "local_a"}
	update := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionUpdate, LocalID: "local_a"}
	other := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionUpdate, LocalID: "local_b"}
	for _, item := range []*queue.Item{create, update, other} {
		require.NoError(t, repo.Add(ctx, item))
	}

	t.Run("by local id skips completed and other records", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, create.ID, queue.StatusCompleted, ""))

		n, err := repo.UpdateRemoteIDByLocalID(ctx, "local_a", "r-7")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Empty(t, all[0].RemoteID)
		assert.Equal(t, "r-7", all[1].RemoteID)
		assert.Empty(t, all[2].RemoteID)

		n, err = repo.UpdateRemoteIDByLocalID(ctx, "local_a", "r-7")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("add inherits known remote id", func(t *testing.T) {
		del := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionDelete, LocalID: "local_a"}
		require.NoError(t, repo.Add(ctx, del))
		assert.Equal(t, "r-7", del.RemoteID)

		fresh := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionDelete, LocalID: "local_b"}
		require.NoError(t, repo.Add(ctx, fresh))
		assert.Empty(t, fresh.RemoteID)

		explicit := &queue.Item{Entity: record.EntityPatient, Action: queue.ActionDelete, LocalID: "local_a", RemoteID: "r-8"}
		require.NoError(t, repo.Add(ctx, explicit))
		assert.Equal(t, "r-8", explicit.RemoteID)
	})
}

func TestSessionStore(t *testing.T) {
	s, _ := newTestStorage(t)
	store := NewSessionStore(s)
	ctx := context.Background()

	meta, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)

	want := &session.AuthMetadata{
		Token:          "access",
		RefreshToken:   "refresh",
		TokenExpiry:    time.UnixMilli(1_700_003_600_000),
		LastOnlineTime: time.UnixMilli(1_700_000_000_000),
		UserID:         "u-1",
		UserEmail:      "ana@clinic.test",
		UserName:       "Ana",
		UserRole:       "doctor",
		ClinicID:       "clinic-1",
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	later := time.UnixMilli(1_700_000_500_000)
	require.NoError(t, store.TouchLastOnline(ctx, later))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, later.Equal(got.LastOnlineTime))

	want.Token = "rotated"
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Token)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLease(t *testing.T) {
	s, clock := newTestStorage(t)
	lease := NewLease(s)
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held by a")

	ok, err = lease.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "holder may renew")

	clock.Advance(2 * time.Minute)
	ok, err = lease.Acquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is taken over")

	require.NoError(t, lease.Release(ctx, "a"))
	ok, err = lease.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release by non-holder is ignored")

	require.NoError(t, lease.Release(ctx, "b"))
	ok, err = lease.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_Wipe(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	patients := newPatients(t, s)
	q := NewQueueRepository(s, slog.Default())
	store := NewSessionStore(s)

	rec, err := patients.Create(ctx, "clinic-1", patient{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, q.Add(ctx, &queue.Item{Entity: record.EntityPatient, Action: queue.ActionCreate, LocalID: rec.ID}))
	require.NoError(t, store.Save(ctx, &session.AuthMetadata{Token: "t"}))

	require.NoError(t, s.Wipe(ctx))

	all, err := patients.GetAll(ctx, "clinic-1")
	require.NoError(t, err)
	assert.Empty(t, all)
	items, err := q.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	meta, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)
}
