package models

import "strings"

// UnverifiedPrincipal marks records whose submitter could not be
// authenticated. It is a valid CreatedBy value, not an error state.
const UnverifiedPrincipal = "unverified"

// Principal is an authenticated submitter. Ephemeral: derived from a verified
// proof for the duration of one request, never persisted.
type Principal struct {
	ID          string
	DisplayName string
}

// AuthOutcome is the explicit result of authenticating a submission. The
// permissive write path consumes it instead of branching on an error.
type AuthOutcome struct {
	Principal Principal
	Verified  bool
}

// ActorID is the value stamped into Record.CreatedBy.
func (o AuthOutcome) ActorID() string {
	if !o.Verified {
		return UnverifiedPrincipal
	}
	return o.Principal.ID
}

// DisplayName builds a human-readable name from name parts, falling back to
// the username when both are empty.
func DisplayName(first, last, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return username
	}
	return name
}
