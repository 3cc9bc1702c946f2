package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type payload struct {
	Name string
}

func version(id string, ms int64, name string) *Version[payload] {
	return &Version[payload]{ID: id, UpdatedAt: time.UnixMilli(ms), Data: payload{Name: name}}
}

func TestResolver_DetectConflict(t *testing.T) {
	r := NewResolver[payload](slog.Default())

	tests := []struct {
		name   string
		local  *Version[payload]
		remote *Version[payload]
		want   bool
	}{
		{name: "same timestamp", local: version("1", 100, "a"), remote: version("1", 100, "b"), want: false},
		{name: "different timestamp", local: version("1", 100, "a"), remote: version("1", 200, "a"), want: true},
		{name: "sub-millisecond difference", local: &Version[payload]{UpdatedAt: time.UnixMilli(100)}, remote: &Version[payload]{UpdatedAt: time.UnixMilli(100).Add(time.Microsecond)}, want: false},
		{name: "missing remote", local: version("1", 100, "a"), remote: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.DetectConflict(tt.local, tt.remote))
		})
	}
}

func TestResolver_ResolveByTimestamp(t *testing.T) {
	r := NewResolver[payload](slog.Default())

	tests := []struct {
		name       string
		localMs    int64
		remoteMs   int64
		wantWinner Side
		wantAction Action
		wantName   string
	}{
		{name: "local later pushes", localMs: 200, remoteMs: 100, wantWinner: SideLocal, wantAction: ActionPush, wantName: "local"},
		{name: "remote later pulls", localMs: 100, remoteMs: 200, wantWinner: SideRemote, wantAction: ActionPull, wantName: "remote"},
		{name: "tie keeps local", localMs: 150, remoteMs: 150, wantWinner: SideLocal, wantAction: ActionPush, wantName: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			res := r.ResolveByTimestamp(version("1", tt.localMs, "local"), version("1", tt.remoteMs, "remote"))

			// Assert
			assert.Equal(t, tt.wantWinner, res.Winner)
			assert.Equal(t, tt.wantAction, res.Action)
			require.NotNil(t, res.Data)
			assert.Equal(t, tt.wantName, res.Data.Name)
		})
	}
}

func TestResolver_HandleDeleteConflict(t *testing.T) {
	r := NewResolver[payload](slog.Default())
	local := version("1", 100, "local")
	remote := version("1", 200, "remote")

	tests := []struct {
		name       string
		local      *Version[payload]
		remote     *Version[payload]
		deleted    *Deletion
		wantWinner Side
		wantAction Action
		wantData   string
	}{
		{
			name:       "remote deleted only",
			local:      local,
			deleted:    &Deletion{Remote: true},
			wantWinner: SideRemote,
			wantAction: ActionPull,
		},
		{
			name:       "local deleted only",
			remote:     remote,
			deleted:    &Deletion{Local: true},
			wantWinner: SideLocal,
			wantAction: ActionPush,
		},
		{
			name:       "both deleted",
			deleted:    &Deletion{Local: true, Remote: true},
			wantWinner: SideRemote,
			wantAction: ActionNone,
		},
		{
			name:       "both present falls back to timestamps",
			local:      local,
			remote:     remote,
			deleted:    &Deletion{},
			wantWinner: SideRemote,
			wantAction: ActionPull,
			wantData:   "remote",
		},
		{
			name:       "remote missing without flags keeps local",
			local:      local,
			wantWinner: SideLocal,
			wantAction: ActionPush,
			wantData:   "local",
		},
		{
			name:       "nothing known keeps local",
			wantWinner: SideLocal,
			wantAction: ActionPush,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.HandleDeleteConflict(tt.local, tt.remote, tt.deleted)

			assert.Equal(t, tt.wantWinner, res.Winner)
			assert.Equal(t, tt.wantAction, res.Action)
			if tt.wantData == "" {
				assert.Nil(t, res.Data)
				return
			}
			require.NotNil(t, res.Data)
			assert.Equal(t, tt.wantData, res.Data.Name)
		})
	}
}
