package access

import "net/url"

// Fixed routes the gate redirects to.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

type Outcome int

const (
	// OutcomeWait means identity is still loading; nothing gated may render yet.
	OutcomeWait Outcome = iota
	OutcomeRender
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWait:
		return "wait"
	case OutcomeRender:
		return "render"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// GateState is what the gate needs to know about the current session.
type GateState struct {
	Loading  bool
	Identity *Identity
}

// Decision is the result of evaluating a protected navigation. Location is set
// only for OutcomeRedirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Unauthenticated reports a redirect to the login page.
func (d Decision) Unauthenticated() bool {
	return d.Outcome == OutcomeRedirect && d.Location != UnauthorizedPath
}

// Forbidden reports a redirect to the unauthorized page.
func (d Decision) Forbidden() bool {
	return d.Outcome == OutcomeRedirect && d.Location == UnauthorizedPath
}

// Decide evaluates a navigation to intended for a route that asks for reqs.
// Authentication is checked strictly before any role requirement, and role
// requirements are checked super admin first, then hr manager, then admin.
func Decide(state GateState, intended string, reqs ...Requirement) Decision {
	if state.Loading {
		return Decision{Outcome: OutcomeWait}
	}
	if state.Identity == nil {
		return Decision{Outcome: OutcomeRedirect, Location: LoginLocation(intended)}
	}

	for _, req := range ordered(reqs) {
		if !state.Identity.Satisfies(req) {
			return Decision{Outcome: OutcomeRedirect, Location: UnauthorizedPath}
		}
	}
	return Decision{Outcome: OutcomeRender}
}

// LoginLocation builds the login redirect that preserves the intended destination.
func LoginLocation(intended string) string {
	if intended == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"redirect": {intended}}.Encode()
}

var precedence = []Requirement{RequireSuperAdmin, RequireHRManager, RequireAdmin, RequireAuthenticated}

func ordered(reqs []Requirement) []Requirement {
	if len(reqs) <= 1 {
		return reqs
	}
	want := make(map[Requirement]bool, len(reqs))
	for _, r := range reqs {
		want[r] = true
	}
	out := make([]Requirement, 0, len(reqs))
	for _, r := range precedence {
		if want[r] {
			out = append(out, r)
			delete(want, r)
		}
	}
	for _, r := range reqs {
		if want[r] {
			out = append(out, r)
			delete(want, r)
		}
	}
	return out
}
