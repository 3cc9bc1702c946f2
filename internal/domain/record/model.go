package record

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncStatus tracks where a local record is in its round-trip to the server.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusFailed  SyncStatus = "failed"
)

// LocalIDPrefix marks identifiers minted on the device.
const LocalIDPrefix = "local_"

// NewLocalID returns a fresh identifier that can never collide with a
// server-assigned one.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was generated on the device.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// LocalRecord is the offline copy of one entity instance.
//
// A record with LocalOnly set never carries a RemoteID; once the server
// accepts the CREATE the remote id is stored alongside and the local id stays
// the primary key, so references held by callers remain valid.
type LocalRecord[T any] struct {
	ID         string     `json:"id"`
	RemoteID   string     `json:"remote_id,omitempty"`
	ScopeID    string     `json:"scope_id"`
	Data       T          `json:"data"`
	SyncStatus SyncStatus `json:"sync_status"`
	LocalOnly  bool       `json:"local_only"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ServerID returns the identifier to use against the remote API, or "" when
// the record has not reached the server yet.
func (r *LocalRecord[T]) ServerID() string {
	if r.RemoteID != "" {
		return r.RemoteID
	}
	if !IsLocalID(r.ID) {
		return r.ID
	}
	return ""
}
