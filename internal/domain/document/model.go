package document

import (
	"encoding/json"
	"time"

	"clinicsync/internal/domain/record"
)

// Document - серверная копия сущности клиники. UpdatedAt хранится в том
// виде, в каком его прислал клиент.
type Document struct {
	ID        string
	ClinicID  string
	Entity    record.Entity
	Data      json.RawMessage
	UpdatedAt time.Time
	CreatedBy string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Scope identifies the caller on whose behalf a document is touched.
type Scope struct {
	ClinicID string
	UserID   string
}
