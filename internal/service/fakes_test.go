package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/classifier"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
)

// memTicketRepo is an in-memory TicketRepository with the same CAS contract
// as the SQL implementation.
type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int

	failCASFor map[string]bool
	failGetFor map[string]error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		tickets:    make(map[string]*domain.Ticket),
		failCASFor: make(map[string]bool),
		failGetFor: make(map[string]error),
	}
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("t-%d", r.seq)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if ticket.LastStatusChangeAt.IsZero() {
		ticket.LastStatusChangeAt = now
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failGetFor[id]; ok {
		return nil, err
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ExternalKey == key {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.SubmitterID != nil && ticket.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.AssignedAuthorityID != nil &&
			(ticket.AssignedAuthorityID == nil || *ticket.AssignedAuthorityID != *filter.AssignedAuthorityID) {
			continue
		}
		if filter.Visibility != nil && ticket.Visibility != *filter.Visibility {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *memTicketRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusClosed {
			continue
		}
		if ticket.LastStatusChangeAt.Before(cutoff) {
			out = append(out, *ticket)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memTicketRepo) UpdateStatusCAS(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCASFor[ticket.ID] {
		return pgx.ErrNoRows
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.Status != expected {
		return pgx.ErrNoRows
	}
	copied := *ticket
	copied.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) UpdatePriority(ctx context.Context, id string, upvotes, downvotes int, score float64, tier domain.PriorityTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Upvotes = upvotes
	stored.Downvotes = downvotes
	stored.PriorityScore = score
	stored.PriorityTier = tier
	return nil
}

// memVoteRepo is an in-memory VoteRepository keyed by (ticket, voter).
type memVoteRepo struct {
	mu    sync.Mutex
	votes map[string]*domain.Vote
	seq   int
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: make(map[string]*domain.Vote)}
}

func voteKey(ticketID, voterID string) string { return ticketID + "|" + voterID }

func (r *memVoteRepo) Create(ctx context.Context, vote *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	vote.ID = fmt.Sprintf("v-%d", r.seq)
	copied := *vote
	r.votes[voteKey(vote.TicketID, vote.VoterID)] = &copied
	return nil
}

func (r *memVoteRepo) GetByTicketVoter(ctx context.Context, ticketID, voterID string) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vote, ok := r.votes[voteKey(ticketID, voterID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *vote
	return &copied, nil
}

func (r *memVoteRepo) UpdateType(ctx context.Context, id string, t domain.VoteType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, vote := range r.votes {
		if vote.ID == id {
			vote.Type = t
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memVoteRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, vote := range r.votes {
		if vote.ID == id {
			delete(r.votes, key)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memVoteRepo) TallyForTicket(ctx context.Context, ticketID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	up, down := 0, 0
	for _, vote := range r.votes {
		if vote.TicketID != ticketID {
			continue
		}
		if vote.Type == domain.VoteUp {
			up++
		} else {
			down++
		}
	}
	return up, down, nil
}

// memStatusChangeRepo records the audit trail in memory.
type memStatusChangeRepo struct {
	mu      sync.Mutex
	records []domain.StatusChangeRecord
	seq     int
}

func newMemStatusChangeRepo() *memStatusChangeRepo {
	return &memStatusChangeRepo{}
}

func (r *memStatusChangeRepo) Create(ctx context.Context, record *domain.StatusChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	record.ID = fmt.Sprintf("sc-%d", r.seq)
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

func (r *memStatusChangeRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.StatusChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StatusChangeRecord
	for _, record := range r.records {
		if record.TicketID == ticketID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *memStatusChangeRepo) forTicket(ticketID string) []domain.StatusChangeRecord {
	out, _ := r.ListByTicket(context.Background(), ticketID, 0, 0)
	return out
}

// memDepartmentRepo serves a fixed department table.
type memDepartmentRepo struct {
	departments map[string]domain.Department
}

func newMemDepartmentRepo(departments ...domain.Department) *memDepartmentRepo {
	repo := &memDepartmentRepo{departments: make(map[string]domain.Department)}
	for _, d := range departments {
		repo.departments[d.Code] = d
	}
	return repo
}

func (r *memDepartmentRepo) Create(ctx context.Context, department *domain.Department) error {
	r.departments[department.Code] = *department
	return nil
}

func (r *memDepartmentRepo) GetByCode(ctx context.Context, code string) (*domain.Department, error) {
	department, ok := r.departments[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &department, nil
}

func (r *memDepartmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, d := range r.departments {
		out = append(out, d)
	}
	return out, nil
}

// memDirectory is a fixed authority roster backing the resolver.
type memDirectory struct {
	authorities []domain.Authority
}

func (d *memDirectory) GetByID(ctx context.Context, id string) (*domain.Authority, error) {
	for i := range d.authorities {
		if d.authorities[i].ID == id {
			copied := d.authorities[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d *memDirectory) ListActiveByType(ctx context.Context, t domain.AuthorityType) ([]domain.Authority, error) {
	var out []domain.Authority
	for _, a := range d.authorities {
		if a.Type == t && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *memDirectory) ListActiveAbove(ctx context.Context, level int) ([]domain.Authority, error) {
	var out []domain.Authority
	for _, a := range d.authorities {
		if a.Level > level && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

// stubClassifier returns canned results, or errors when broken.
type stubClassifier struct {
	classification classifier.Classification
	verdict        classifier.SpamVerdict
	broken         bool
}

func (s *stubClassifier) Categorize(ctx context.Context, text, extra string) (classifier.Classification, error) {
	if s.broken {
		return classifier.Classification{}, fmt.Errorf("classifier unavailable")
	}
	return s.classification, nil
}

func (s *stubClassifier) Rephrase(ctx context.Context, text string) (string, error) {
	if s.broken {
		return "", fmt.Errorf("classifier unavailable")
	}
	return text, nil
}

func (s *stubClassifier) DetectSpam(ctx context.Context, text string) (classifier.SpamVerdict, error) {
	if s.broken {
		return classifier.SpamVerdict{}, fmt.Errorf("classifier unavailable")
	}
	return s.verdict, nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func testAuthority(id string, t domain.AuthorityType, department *string) domain.Authority {
	return domain.Authority{
		ID:         id,
		Type:       t,
		Level:      t.Level(),
		Department: department,
		Active:     true,
	}
}
