// Package roles is the single source of truth for role names, aliases, and
// the admission hierarchy. Claims arrive flat from the identity verifier;
// admission is hierarchical: developer > admin > election_manager > member.
// Unknown role names grant nothing.
package roles

import "strings"

type Role string

const (
	RoleMember          Role = "member"
	RoleElectionManager Role = "election_manager"
	RoleEventManager    Role = "event_manager"
	RoleAdmin           Role = "admin"
	RoleDeveloper       Role = "developer"
)

// aliases maps legacy claim names onto canonical roles. The upstream claim
// source still emits meeting_election_manager and superuser.
var aliases = map[string]Role{
	"meeting_election_manager": RoleElectionManager,
	"superuser":                RoleDeveloper,
}

// rank orders the admission hierarchy. event_manager sits beside
// election_manager: same rank, not interchangeable.
var rank = map[Role]int{
	RoleMember:          1,
	RoleElectionManager: 2,
	RoleEventManager:    2,
	RoleAdmin:           3,
	RoleDeveloper:       4,
}

// Normalize resolves raw claim strings to canonical roles, dropping names
// this process does not recognise.
func Normalize(raw []string) []Role {
	resolved := make([]Role, 0, len(raw))
	seen := make(map[Role]bool, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		role := Role(name)
		if canonical, ok := aliases[name]; ok {
			role = canonical
		}
		if _, known := rank[role]; !known {
			continue
		}
		if !seen[role] {
			seen[role] = true
			resolved = append(resolved, role)
		}
	}
	return resolved
}

// Admits reports whether any held role satisfies the required role. A held
// role satisfies a requirement of strictly lower rank or the exact role;
// peer roles at the same rank do not satisfy each other.
func Admits(held []Role, required Role) bool {
	need, known := rank[required]
	if !known {
		return false
	}
	for _, role := range held {
		have, ok := rank[role]
		if !ok {
			continue
		}
		if role == required || have > need {
			return true
		}
	}
	return false
}

// IsManager reports whether the role set admits election-management
// operations (listing hidden elections, reading open results).
func IsManager(held []Role) bool {
	return Admits(held, RoleElectionManager)
}
