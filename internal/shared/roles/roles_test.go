package roles

import "testing"

func TestNormalizeResolvesAliasesAndDropsUnknown(t *testing.T) {
	got := Normalize([]string{"Member", "meeting_election_manager", "SUPERUSER", "janitor", "member"})
	want := []Role{RoleMember, RoleElectionManager, RoleDeveloper}
	if len(got) != len(want) {
		t.Fatalf("normalized roles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalized roles = %v, want %v", got, want)
		}
	}
}

func TestAdmitsIsMonotonic(t *testing.T) {
	// Every role a lower rank holds is admitted for every higher rank.
	ladder := []Role{RoleMember, RoleElectionManager, RoleAdmin, RoleDeveloper}
	for i, required := range ladder {
		for j, held := range ladder {
			got := Admits([]Role{held}, required)
			want := j >= i
			if got != want {
				t.Fatalf("Admits(%s, %s) = %v, want %v", held, required, got, want)
			}
		}
	}
}

func TestAdmitsPeersAreNotInterchangeable(t *testing.T) {
	if Admits([]Role{RoleEventManager}, RoleElectionManager) {
		t.Fatalf("event_manager must not stand in for election_manager")
	}
	if !Admits([]Role{RoleAdmin}, RoleElectionManager) {
		t.Fatalf("admin outranks election_manager")
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	if Admits([]Role{Role("janitor")}, RoleMember) {
		t.Fatalf("unknown role must not admit member operations")
	}
}

func TestIsManager(t *testing.T) {
	if !IsManager([]Role{RoleElectionManager}) {
		t.Fatalf("election_manager is a manager")
	}
	if !IsManager([]Role{RoleDeveloper}) {
		t.Fatalf("developer is a manager")
	}
	if IsManager([]Role{RoleMember}) {
		t.Fatalf("member is not a manager")
	}
}
