package session

import (
	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/models"
)

// State is one immutable snapshot of the resolver. Snapshots are replaced,
// never modified.
type State struct {
	// Loading is true until the first session check has fully completed.
	Loading bool
	// Resolving is true while a session is known but its identity has not
	// been derived yet.
	Resolving bool
	Session   *models.Session
	Identity  *access.Identity
	// Seq is the session-change sequence the snapshot belongs to.
	Seq uint64
}

func (s State) Authenticated() bool {
	return s.Session != nil
}

// GateState is what access.Decide needs. A session whose identity is still
// resolving counts as loading so no gate decides on partial data.
func (s State) GateState() access.GateState {
	if s.Loading || s.Resolving {
		return access.GateState{Loading: true}
	}
	return access.GateState{Identity: s.Identity}
}

func (s State) settled() bool {
	return !s.Loading && !s.Resolving
}
