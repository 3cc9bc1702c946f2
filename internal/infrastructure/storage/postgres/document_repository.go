package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"clinicsync/internal/domain/document"
	"clinicsync/internal/domain/record"
)

type DocumentRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewDocumentRepository(db *Storage, log *slog.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:  db,
		log: log.With("component", "document_repository"),
	}
}

const documentColumns = `id, clinic_id, entity, data, updated_at, created_by, created_at, deleted_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO documents (id, clinic_id, entity, data, updated_at, created_by, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, doc.ClinicID, string(doc.Entity), []byte(doc.Data), doc.UpdatedAt, doc.CreatedBy, doc.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (r *DocumentRepository) Get(ctx context.Context, clinicID string, entity record.Entity, id string) (*document.Document, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE id = $1 AND clinic_id = $2 AND entity = $3 AND deleted_at IS NULL`,
		id, clinicID, string(entity))

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE documents SET data = $1, updated_at = $2
         WHERE id = $3 AND clinic_id = $4 AND entity = $5 AND deleted_at IS NULL`,
		[]byte(doc.Data), doc.UpdatedAt, doc.ID, doc.ClinicID, string(doc.Entity))
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, clinicID string, entity record.Entity, id string, at time.Time) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE documents SET deleted_at = $1
         WHERE id = $2 AND clinic_id = $3 AND entity = $4 AND deleted_at IS NULL`,
		at, id, clinicID, string(entity))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, clinicID string, entity record.Entity) ([]*document.Document, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE clinic_id = $1 AND entity = $2 AND deleted_at IS NULL
         ORDER BY updated_at DESC`,
		clinicID, string(entity))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*document.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		doc    document.Document
		entity string
		data   []byte
	)
	if err := row.Scan(&doc.ID, &doc.ClinicID, &entity, &data, &doc.UpdatedAt, &doc.CreatedBy, &doc.CreatedAt, &doc.DeletedAt); err != nil {
		return nil, err
	}
	doc.Entity = record.Entity(entity)
	doc.Data = data
	return &doc, nil
}
