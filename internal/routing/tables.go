package routing

import (
	"github.com/spec-kit/grievance-service/internal/domain"
)

// categoryDefaults maps each grievance category to the authority type that
// handles it by default. Loaded once; never mutated at runtime.
var categoryDefaults = map[domain.GrievanceCategory]domain.AuthorityType{
	domain.CategoryHostel:         domain.AuthorityWarden,
	domain.CategoryMess:           domain.AuthorityWarden,
	domain.CategoryAcademic:       domain.AuthorityHeadOfDepartment,
	domain.CategoryInfrastructure: domain.AuthorityAdminOfficer,
	domain.CategoryAdministration: domain.AuthorityAdminOfficer,
	domain.CategoryHarassment:     domain.AuthorityDisciplinaryCommittee,
	domain.CategoryGeneral:        domain.AuthorityAdminOfficer,
}

// categoryFallbacks lists alternate types tried in order when no active
// authority of the default type exists.
var categoryFallbacks = map[domain.GrievanceCategory][]domain.AuthorityType{
	domain.CategoryHostel:         {domain.AuthorityDeputyWarden, domain.AuthoritySeniorDeputyWarden},
	domain.CategoryMess:           {domain.AuthorityDeputyWarden, domain.AuthoritySeniorDeputyWarden},
	domain.CategoryAcademic:       {domain.AuthorityAdminOfficer, domain.AuthorityAdmin},
	domain.CategoryInfrastructure: {domain.AuthorityAdmin},
	domain.CategoryAdministration: {domain.AuthorityAdmin},
	domain.CategoryHarassment:     {domain.AuthoritySeniorDeputyWarden, domain.AuthorityAdmin},
	domain.CategoryGeneral:        {domain.AuthorityAdmin},
}

// departmentScoped marks categories whose routing filters candidates by the
// ticket's originating department.
var departmentScoped = map[domain.GrievanceCategory]bool{
	domain.CategoryAcademic: true,
}

// escalationRules maps authority type to its declared successor. The table is
// a forest: every type has at most one successor and ADMIN maps to itself,
// marking the root.
var escalationRules = map[domain.AuthorityType]domain.AuthorityType{
	domain.AuthorityWarden:                domain.AuthorityDeputyWarden,
	domain.AuthorityDeputyWarden:          domain.AuthoritySeniorDeputyWarden,
	domain.AuthoritySeniorDeputyWarden:    domain.AuthorityAdmin,
	domain.AuthorityHeadOfDepartment:      domain.AuthoritySeniorDeputyWarden,
	domain.AuthorityAdminOfficer:          domain.AuthoritySeniorDeputyWarden,
	domain.AuthorityDisciplinaryCommittee: domain.AuthorityAdmin,
	domain.AuthorityAdmin:                 domain.AuthorityAdmin,
}

// CandidateTypes returns the default type followed by the ordered fallback
// list for a category. Unknown categories route as GENERAL.
func CandidateTypes(category domain.GrievanceCategory) []domain.AuthorityType {
	def, ok := categoryDefaults[category]
	if !ok {
		category = domain.CategoryGeneral
		def = categoryDefaults[category]
	}
	types := make([]domain.AuthorityType, 0, 1+len(categoryFallbacks[category]))
	types = append(types, def)
	types = append(types, categoryFallbacks[category]...)
	return types
}

// DepartmentScoped reports whether routing for the category filters by
// department.
func DepartmentScoped(category domain.GrievanceCategory) bool {
	return departmentScoped[category]
}

// SuccessorType looks up the declared escalation successor for a type.
func SuccessorType(t domain.AuthorityType) (domain.AuthorityType, bool) {
	next, ok := escalationRules[t]
	return next, ok
}
