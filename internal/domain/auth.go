package domain

// SubjectType differentiates user vs authority tokens.
type SubjectType string

const (
	SubjectTypeUser      SubjectType = "USER"
	SubjectTypeAuthority SubjectType = "AUTHORITY"
)
