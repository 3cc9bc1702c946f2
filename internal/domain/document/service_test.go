package document

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/record"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, doc *Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, clinicID string, entity record.Entity, id string) (*Document, error) {
	args := m.Called(ctx, clinicID, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) SoftDelete(ctx context.Context, clinicID string, entity record.Entity, id string, at time.Time) error {
	args := m.Called(ctx, clinicID, entity, id, at)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, clinicID string, entity record.Entity) ([]*Document, error) {
	args := m.Called(ctx, clinicID, entity)
	return args.Get(0).([]*Document), args.Error(1)
}

var (
	scope = Scope{ClinicID: "clinic-1", UserID: "u-1"}
	now   = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newService(repo Repository) *Service {
	return NewService(repo, slog.Default(), WithClock(func() time.Time { return now }))
}

func TestService_Create_Patient(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	svc := newService(repo)
	updatedAt := time.UnixMilli(1_700_000_000_123)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(d *Document) bool {
		return d.ClinicID == "clinic-1" && d.Entity == record.EntityPatient && d.CreatedBy == "u-1"
	})).Return("doc-1", nil)

	// Act
	doc, err := svc.Create(context.Background(), scope, record.EntityPatient, updatedAt,
		json.RawMessage(`{"first_name":"Ana","last_name":"López"}`))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.True(t, updatedAt.Equal(doc.UpdatedAt))
	assert.Equal(t, now, doc.CreatedAt)
	repo.AssertExpectations(t)
}

func TestService_Create_DefaultsUpdatedAt(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	repo.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)

	doc, err := svc.Create(context.Background(), scope, record.EntityPatient, time.Time{},
		json.RawMessage(`{"first_name":"Ana","last_name":"López"}`))

	require.NoError(t, err)
	assert.Equal(t, now, doc.UpdatedAt)
}

func TestService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entity  record.Entity
		data    string
		setup   func(repo *MockRepository)
		wantErr error
	}{
		{
			name:    "unknown entity",
			entity:  record.Entity("factura"),
			data:    `{}`,
			wantErr: record.ErrUnknownEntity,
		},
		{
			name:    "empty data",
			entity:  record.EntityPatient,
			data:    ``,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "malformed json",
			entity:  record.EntityPatient,
			data:    `{"first_name":`,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "patient without last name",
			entity:  record.EntityPatient,
			data:    `{"first_name":"Ana"}`,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "appointment without date",
			entity:  record.EntityAppointment,
			data:    `{"patient_id":"p-1"}`,
			wantErr: ErrInvalidDocument,
		},
		{
			name:   "appointment for unknown patient",
			entity: record.EntityAppointment,
			data:   `{"patient_id":"p-404","scheduled_at":"2026-03-10T10:00:00Z","duration_minutes":30}`,
			setup: func(repo *MockRepository) {
				repo.On("Get", mock.Anything, "clinic-1", record.EntityPatient, "p-404").Return(nil, ErrNotFound)
			},
			wantErr: ErrUnknownPatient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := new(MockRepository)
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc := newService(repo)

			// Act
			_, err := svc.Create(context.Background(), scope, tt.entity, now, json.RawMessage(tt.data))

			// Assert
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_Appointment(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	repo.On("Get", mock.Anything, "clinic-1", record.EntityPatient, "p-1").Return(&Document{ID: "p-1"}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return("a-1", nil)

	doc, err := svc.Create(context.Background(), scope, record.EntityAppointment, now,
		json.RawMessage(`{"patient_id":"p-1","scheduled_at":"2026-03-10T10:00:00Z","duration_minutes":30,"status":"programada"}`))

	require.NoError(t, err)
	assert.Equal(t, "a-1", doc.ID)
	assert.JSONEq(t, `{"patient_id":"p-1","scheduled_at":"2026-03-10T10:00:00Z","duration_minutes":30,"status":"programada"}`, string(doc.Data))
}

func TestService_Update(t *testing.T) {
	t.Run("replaces data and timestamp", func(t *testing.T) {
		// Arrange
		repo := new(MockRepository)
		svc := newService(repo)
		existing := &Document{ID: "doc-1", ClinicID: "clinic-1", Entity: record.EntityPatient, UpdatedAt: now.Add(-time.Hour)}
		repo.On("Get", mock.Anything, "clinic-1", record.EntityPatient, "doc-1").Return(existing, nil)
		repo.On("Update", mock.Anything, existing).Return(nil)

		// Act
		doc, err := svc.Update(context.Background(), scope, record.EntityPatient, "doc-1", now,
			json.RawMessage(`{"first_name":"Ana","last_name":"García"}`))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, now, doc.UpdatedAt)
		assert.Contains(t, string(doc.Data), "García")
		repo.AssertExpectations(t)
	})

	t.Run("missing document", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newService(repo)
		repo.On("Get", mock.Anything, "clinic-1", record.EntityPatient, "gone").Return(nil, ErrNotFound)

		_, err := svc.Update(context.Background(), scope, record.EntityPatient, "gone", now,
			json.RawMessage(`{"first_name":"Ana","last_name":"García"}`))

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{name: "soft deleted"},
		{name: "already gone", repoErr: ErrNotFound, wantErr: ErrNotFound},
		{name: "storage failure", repoErr: errors.New("connection reset"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newService(repo)
			repo.On("SoftDelete", mock.Anything, "clinic-1", record.EntityAppointment, "a-1", now).Return(tt.repoErr)

			err := svc.Delete(context.Background(), scope, record.EntityAppointment, "a-1")

			switch {
			case tt.repoErr == nil:
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestService_List(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	docs := []*Document{{ID: "p-1"}, {ID: "p-2"}}
	repo.On("List", mock.Anything, "clinic-1", record.EntityPatient).Return(docs, nil)

	got, err := svc.List(context.Background(), scope, record.EntityPatient)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}
