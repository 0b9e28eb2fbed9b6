package domain

import "time"

// Department represents an organizational unit tickets can originate from.
// Authorities with a department affinity reference it by code.
type Department struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
