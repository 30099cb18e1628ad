package result

import "strings"

// Role is the semantic position of a target in the presentation
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

const (
	primaryToken   = "genetic"
	secondaryToken = "subclass"
)

// Roles names the targets playing the primary (disease) and secondary
// (subclass) roles. An empty name means no target could be assigned.
type Roles struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Target returns the name bound to role
func (r Roles) Target(role Role) string {
	if role == RoleSecondary {
		return r.Secondary
	}
	return r.Primary
}

// Candidates lists the target names of a result: the explicit targets when
// present, otherwise the confidence keys in response order.
func Candidates(r *PredictionResult) []string {
	if r == nil {
		return nil
	}
	if len(r.Targets) > 0 {
		return append([]string(nil), r.Targets...)
	}
	return r.Confidences.Keys()
}

// Resolve assigns roles for a result. Every surface that needs a role goes
// through here; the assignment is recomputed on each call.
func Resolve(r *PredictionResult) Roles {
	return ResolveTargets(Candidates(r))
}

// ResolveTargets assigns roles over a candidate list. Primary is the first
// name containing "genetic", else the first candidate. Secondary is the first
// name containing "subclass", else the second candidate, else the first.
// Matching is a case-insensitive substring test.
func ResolveTargets(candidates []string) Roles {
	var roles Roles
	if len(candidates) == 0 {
		return roles
	}

	roles.Primary = candidates[0]
	if t, ok := firstContaining(candidates, primaryToken); ok {
		roles.Primary = t
	}

	switch t, ok := firstContaining(candidates, secondaryToken); {
	case ok:
		roles.Secondary = t
	case len(candidates) > 1:
		roles.Secondary = candidates[1]
	default:
		roles.Secondary = candidates[0]
	}
	return roles
}

func firstContaining(candidates []string, token string) (string, bool) {
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), token) {
			return c, true
		}
	}
	return "", false
}
