package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/clinic"
	"clinicsync/internal/domain/record"
)

type Servicer interface {
	Create(ctx context.Context, scope Scope, entity record.Entity, updatedAt time.Time, data json.RawMessage) (*Document, error)
	Get(ctx context.Context, scope Scope, entity record.Entity, id string) (*Document, error)
	Update(ctx context.Context, scope Scope, entity record.Entity, id string, updatedAt time.Time, data json.RawMessage) (*Document, error)
	Delete(ctx context.Context, scope Scope, entity record.Entity, id string) error
	List(ctx context.Context, scope Scope, entity record.Entity) ([]*Document, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		log:  log.With("component", "document_service"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, scope Scope, entity record.Entity, updatedAt time.Time, data json.RawMessage) (*Document, error) {
	normalized, err := s.validate(ctx, scope, entity, data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &Document{
		ClinicID:  scope.ClinicID,
		Entity:    entity,
		Data:      normalized,
		UpdatedAt: orNow(updatedAt, now),
		CreatedBy: scope.UserID,
		CreatedAt: now,
	}

	id, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}
	doc.ID = id

	s.log.Debug("document created", "entity", entity, "id", id, "clinic_id", scope.ClinicID)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, scope Scope, entity record.Entity, id string) (*Document, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, scope.ClinicID, entity, id)
}

// Update заменяет содержимое документа целиком. Отсутствующий документ
// дает ErrNotFound, клиент в этом случае пересоздает его через POST.
func (s *Service) Update(ctx context.Context, scope Scope, entity record.Entity, id string, updatedAt time.Time, data json.RawMessage) (*Document, error) {
	normalized, err := s.validate(ctx, scope, entity, data)
	if err != nil {
		return nil, err
	}

	doc, err := s.repo.Get(ctx, scope.ClinicID, entity, id)
	if err != nil {
		return nil, err
	}

	doc.Data = normalized
	doc.UpdatedAt = orNow(updatedAt, s.now().UTC())
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", entity, id, err)
	}
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, scope Scope, entity record.Entity, id string) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, scope.ClinicID, entity, id, s.now().UTC()); err != nil {
		return err
	}
	s.log.Debug("document deleted", "entity", entity, "id", id, "clinic_id", scope.ClinicID)
	return nil
}

func (s *Service) List(ctx context.Context, scope Scope, entity record.Entity) ([]*Document, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.ClinicID, entity)
}

// validate разбирает полезную нагрузку в доменный тип сущности и
// возвращает ее в каноническом JSON виде.
func (s *Service) validate(ctx context.Context, scope Scope, entity record.Entity, data json.RawMessage) (json.RawMessage, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	switch entity {
	case record.EntityPatient:
		var p clinic.Patient
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		return json.Marshal(p)

	case record.EntityAppointment:
		var a clinic.Appointment
		if err := decode(data, &a); err != nil {
			return nil, err
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if _, err := s.repo.Get(ctx, scope.ClinicID, record.EntityPatient, a.PatientID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %w: %s", ErrInvalidDocument, ErrUnknownPatient, a.PatientID)
			}
			return nil, fmt.Errorf("check patient: %w", err)
		}
		return json.Marshal(a)
	}

	return nil, fmt.Errorf("%w: %s", record.ErrUnknownEntity, entity)
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidDocument)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
