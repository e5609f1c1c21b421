// Package services holds the pure domain rules shared by commands and
// queries: admission (visibility + eligibility) and the tally engines.
package services

import (
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/internal/shared/roles"
)

// Caller is the verified subject as the elections domain sees it.
type Caller struct {
	MemberUID string
	IsMember  bool
	Roles     []roles.Role
}

// CanSee reports whether the caller may observe the election at all. Hidden
// elections behave as nonexistent for non-managers regardless of status.
func CanSee(election entities.Election, caller Caller) bool {
	if election.Hidden && !roles.IsManager(caller.Roles) {
		return false
	}
	return true
}

// CheckVoteAdmission runs the admission sequence for a ballot attempt:
// visibility, state, then the eligibility dispatch.
func CheckVoteAdmission(election entities.Election, caller Caller) error {
	if !CanSee(election, caller) {
		return domainerrors.ErrElectionNotFound
	}
	if !election.AcceptsBallots() {
		return domainerrors.ErrElectionNotOpen
	}
	switch election.Eligibility {
	case entities.EligibilityAll:
		return nil
	case entities.EligibilityMembers:
		if caller.IsMember {
			return nil
		}
	case entities.EligibilityAdmins:
		if roles.Admits(caller.Roles, roles.RoleAdmin) {
			return nil
		}
	case entities.EligibilityCommittee:
		if election.IsCommitteeMember(caller.MemberUID) {
			return nil
		}
	}
	return domainerrors.ErrNotEligible
}

// CanReadResults gates the results endpoint: managers any time, everyone
// else only once the election is closed or archived.
func CanReadResults(election entities.Election, caller Caller) bool {
	if roles.IsManager(caller.Roles) {
		return true
	}
	if !CanSee(election, caller) {
		return false
	}
	return election.Status == entities.StatusClosed || election.Status == entities.StatusArchived
}
