package conflict

import "time"

// Side names the copy that won a resolution.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Action is what the caller has to do to converge.
type Action string

const (
	// ActionPush sends local state to the server.
	ActionPush Action = "push"
	// ActionPull overwrites the local cache with remote state.
	ActionPull Action = "pull"
	// ActionNone means both sides already agree.
	ActionNone Action = "none"
)

// Version is one side of a record at comparison time.
type Version[T any] struct {
	ID        string
	UpdatedAt time.Time
	Data      T
}

// Resolution is the outcome of a comparison. Data is nil when the winning
// side is a deletion.
type Resolution[T any] struct {
	Winner Side
	Action Action
	Data   *T
}

// Deletion flags which sides are known to be deleted.
type Deletion struct {
	Local  bool
	Remote bool
}
