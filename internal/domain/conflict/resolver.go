// Package conflict decides which copy of a record survives when the local
// cache and the server disagree. Last write wins at record granularity.
package conflict

import (
	"golang.org/x/exp/slog"
)

type Resolver[T any] struct {
	log *slog.Logger
}

func NewResolver[T any](log *slog.Logger) *Resolver[T] {
	return &Resolver[T]{
		log: log.With("component", "conflict_resolver"),
	}
}

// DetectConflict reports whether both versions exist and their timestamps
// differ. Timestamps are compared at millisecond resolution, the precision
// of the local store.
func (r *Resolver[T]) DetectConflict(local, remote *Version[T]) bool {
	if local == nil || remote == nil {
		return false
	}
	return local.UpdatedAt.UnixMilli() != remote.UpdatedAt.UnixMilli()
}

// ResolveByTimestamp keeps the later version. A tie keeps local.
func (r *Resolver[T]) ResolveByTimestamp(local, remote *Version[T]) Resolution[T] {
	if remote.UpdatedAt.UnixMilli() > local.UpdatedAt.UnixMilli() {
		r.logLoser(SideLocal, local, remote)
		data := remote.Data
		return Resolution[T]{Winner: SideRemote, Action: ActionPull, Data: &data}
	}

	r.logLoser(SideRemote, local, remote)
	data := local.Data
	return Resolution[T]{Winner: SideLocal, Action: ActionPush, Data: &data}
}

// HandleDeleteConflict applies deletion precedence before falling back to
// timestamps:
//
//	remote deleted only  -> remote wins, local copy is dropped
//	local deleted only   -> local wins, deletion is pushed
//	both deleted         -> nothing to do, remote is authoritative
//	both present         -> ResolveByTimestamp
//	anything else        -> local wins and is pushed
//
// The last rule can resurrect a record the server no longer returns.
func (r *Resolver[T]) HandleDeleteConflict(local, remote *Version[T], deleted *Deletion) Resolution[T] {
	if deleted != nil {
		switch {
		case deleted.Remote && !deleted.Local:
			r.log.Info("conflict resolved: remote deletion wins", "id", versionID(local, remote))
			return Resolution[T]{Winner: SideRemote, Action: ActionPull}
		case deleted.Local && !deleted.Remote:
			r.log.Info("conflict resolved: local deletion wins", "id", versionID(local, remote))
			return Resolution[T]{Winner: SideLocal, Action: ActionPush}
		case deleted.Local && deleted.Remote:
			r.log.Debug("both sides deleted", "id", versionID(local, remote))
			return Resolution[T]{Winner: SideRemote, Action: ActionNone}
		}
	}

	if local != nil && remote != nil {
		return r.ResolveByTimestamp(local, remote)
	}

	r.log.Warn("ambiguous delete conflict, keeping local",
		"id", versionID(local, remote),
		"local_present", local != nil,
		"remote_present", remote != nil,
	)
	res := Resolution[T]{Winner: SideLocal, Action: ActionPush}
	if local != nil {
		data := local.Data
		res.Data = &data
	}
	return res
}

func (r *Resolver[T]) logLoser(loser Side, local, remote *Version[T]) {
	r.log.Info("conflict resolved by timestamp",
		"id", versionID(local, remote),
		"loser", loser,
		"local_updated_at", local.UpdatedAt,
		"remote_updated_at", remote.UpdatedAt,
	)
}

func versionID[T any](local, remote *Version[T]) string {
	if local != nil {
		return local.ID
	}
	if remote != nil {
		return remote.ID
	}
	return ""
}
