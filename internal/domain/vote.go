package domain

import "time"

// VoteType is the direction of a peer vote.
type VoteType string

const (
	VoteUp   VoteType = "UP"
	VoteDown VoteType = "DOWN"
)

// Vote is one (ticket, voter) pair. At most one row exists per pair; changing
// a vote mutates Type in place, removing a vote deletes the row.
type Vote struct {
	ID        string
	TicketID  string
	VoterID   string
	Type      VoteType
	CreatedAt time.Time
	UpdatedAt time.Time
}
