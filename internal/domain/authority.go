package domain

import "time"

// AuthorityType enumerates the fixed responder hierarchy.
type AuthorityType string

const (
	AuthorityWarden                AuthorityType = "WARDEN"
	AuthorityDeputyWarden          AuthorityType = "DEPUTY_WARDEN"
	AuthoritySeniorDeputyWarden    AuthorityType = "SENIOR_DEPUTY_WARDEN"
	AuthorityHeadOfDepartment      AuthorityType = "HEAD_OF_DEPARTMENT"
	AuthorityAdminOfficer          AuthorityType = "ADMIN_OFFICER"
	AuthorityDisciplinaryCommittee AuthorityType = "DISCIPLINARY_COMMITTEE"
	AuthorityAdmin                 AuthorityType = "ADMIN"
)

// authorityLevels maps each type to its seniority. Higher means more senior.
var authorityLevels = map[AuthorityType]int{
	AuthorityWarden:                1,
	AuthorityHeadOfDepartment:      1,
	AuthorityAdminOfficer:          1,
	AuthorityDeputyWarden:          2,
	AuthorityDisciplinaryCommittee: 2,
	AuthoritySeniorDeputyWarden:    3,
	AuthorityAdmin:                 4,
}

// Level returns the seniority for the type, 0 for unknown types.
func (t AuthorityType) Level() int {
	return authorityLevels[t]
}

// Valid reports whether t is a known authority type.
func (t AuthorityType) Valid() bool {
	_, ok := authorityLevels[t]
	return ok
}

// AuthorityTypes lists every known type, useful for exhaustive checks.
func AuthorityTypes() []AuthorityType {
	return []AuthorityType{
		AuthorityWarden,
		AuthorityDeputyWarden,
		AuthoritySeniorDeputyWarden,
		AuthorityHeadOfDepartment,
		AuthorityAdminOfficer,
		AuthorityDisciplinaryCommittee,
		AuthorityAdmin,
	}
}

// Authority is a node in the responder hierarchy that owns tickets.
// Type and level are immutable after creation; authorities are
// deactivated rather than deleted.
type Authority struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Type         AuthorityType
	Level        int
	Department   *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
