package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/routing"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

type escalationFixture struct {
	service    *EscalationService
	tickets    *memTicketRepo
	changes    *memStatusChangeRepo
	dispatcher *captureDispatcher
	metrics    *observability.Metrics
}

func newEscalationFixture(t *testing.T, roster ...domain.Authority) *escalationFixture {
	t.Helper()
	tickets := newMemTicketRepo()
	changes := newMemStatusChangeRepo()
	dispatcher := &captureDispatcher{}
	metrics := observability.NewMetrics()
	svc := NewEscalationService(EscalationDependencies{
		TicketRepo:       tickets,
		StatusChangeRepo: changes,
		Resolver:         routing.NewResolver(&memDirectory{authorities: roster}, nil),
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Config: config.EscalationConfig{
			StaleAfterDays:     3,
			ItemTimeoutSeconds: 5,
			BatchLimit:         100,
		},
	})
	return &escalationFixture{service: svc, tickets: tickets, changes: changes, dispatcher: dispatcher, metrics: metrics}
}

func (fx *escalationFixture) seedTicket(t *testing.T, assignedTo *string, status domain.TicketStatus, lastChange time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		SubmitterID:         "user-1",
		Category:            domain.CategoryHostel,
		Subject:             "subject",
		Body:                "body",
		Visibility:          domain.VisibilityPublic,
		Status:              status,
		BasePriority:        domain.PriorityMedium,
		AssignedAuthorityID: assignedTo,
		LastStatusChangeAt:  lastChange,
	}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))
	return ticket
}

func TestManualEscalateBySubmitter(t *testing.T) {
	fx := newEscalationFixture(t,
		testAuthority("warden-1", domain.AuthorityWarden, nil),
		testAuthority("dw-1", domain.AuthorityDeputyWarden, nil),
	)
	ticket := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, time.Time{})

	updated, err := fx.service.Escalate(context.Background(), UserActor("user-1"), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, updated.Status)
	require.NotNil(t, updated.AssignedAuthorityID)
	assert.Equal(t, "dw-1", *updated.AssignedAuthorityID)

	records := fx.changes.forTicket(ticket.ID)
	require.Len(t, records, 1)
	assert.Equal(t, domain.TicketStatusRaised, records[0].OldStatus)
	assert.Equal(t, domain.TicketStatusEscalated, records[0].NewStatus)

	published := fx.dispatcher.byType(events.EventTicketEscalated)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.TicketEscalatedPayload)
	assert.Equal(t, "dw-1", payload.NewAuthorityID)
	assert.False(t, payload.Automatic)
}

func TestManualEscalatePermissions(t *testing.T) {
	fx := newEscalationFixture(t,
		testAuthority("warden-1", domain.AuthorityWarden, nil),
		testAuthority("dw-1", domain.AuthorityDeputyWarden, nil),
	)
	ticket := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, time.Time{})

	_, err := fx.service.Escalate(context.Background(), UserActor("user-2"), ticket.ID)
	assert.True(t, apperrors.HasCode(err, "PERMISSION_DENIED"))

	other := testAuthority("dw-1", domain.AuthorityDeputyWarden, nil)
	_, err = fx.service.Escalate(context.Background(), AuthorityActor(&other), ticket.ID)
	assert.True(t, apperrors.HasCode(err, "PERMISSION_DENIED"))

	assigned := testAuthority("warden-1", domain.AuthorityWarden, nil)
	_, err = fx.service.Escalate(context.Background(), AuthorityActor(&assigned), ticket.ID)
	assert.NoError(t, err)
}

func TestManualEscalateChainExhausted(t *testing.T) {
	fx := newEscalationFixture(t, testAuthority("admin-1", domain.AuthorityAdmin, nil))
	ticket := fx.seedTicket(t, strPtr("admin-1"), domain.TicketStatusRaised, time.Time{})

	_, err := fx.service.Escalate(context.Background(), UserActor("user-1"), ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))

	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRaised, stored.Status, "an exhausted chain leaves the ticket untouched")
}

func TestRunSweepEscalatesStaleTickets(t *testing.T) {
	fx := newEscalationFixture(t,
		testAuthority("warden-1", domain.AuthorityWarden, nil),
		testAuthority("dw-1", domain.AuthorityDeputyWarden, nil),
	)
	stale := time.Now().Add(-4 * 24 * time.Hour)

	old := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, stale)
	fresh := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, time.Now())

	report, err := fx.service.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	escalated, err := fx.tickets.GetByID(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, escalated.Status)
	assert.Equal(t, "dw-1", *escalated.AssignedAuthorityID)

	untouched, err := fx.tickets.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRaised, untouched.Status)
}

func TestRunSweepPartialFailure(t *testing.T) {
	fx := newEscalationFixture(t,
		testAuthority("warden-1", domain.AuthorityWarden, nil),
		testAuthority("dw-1", domain.AuthorityDeputyWarden, nil),
		testAuthority("admin-1", domain.AuthorityAdmin, nil),
	)
	stale := time.Now().Add(-4 * 24 * time.Hour)

	ok1 := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, stale)
	ok2 := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusInProgress, stale)
	// assigned to the root: nowhere to go
	topped := fx.seedTicket(t, strPtr("admin-1"), domain.TicketStatusRaised, stale)

	report, err := fx.service.RunSweep(context.Background())
	require.NoError(t, err, "one unresolvable ticket never aborts the pass")
	assert.Equal(t, 2, report.Escalated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.Items, 3)

	for _, id := range []string{ok1.ID, ok2.ID} {
		stored, err := fx.tickets.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusEscalated, stored.Status)
	}
	stored, err := fx.tickets.GetByID(context.Background(), topped.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRaised, stored.Status)

	escalated, skipped, failed := fx.metrics.SweepTotals()
	assert.Equal(t, int64(2), escalated)
	assert.Equal(t, int64(1), skipped)
	assert.Equal(t, int64(0), failed)
}

func TestRunSweepRoutesUnassignedTickets(t *testing.T) {
	fx := newEscalationFixture(t, testAuthority("warden-1", domain.AuthorityWarden, nil))
	stale := time.Now().Add(-4 * 24 * time.Hour)

	orphan := fx.seedTicket(t, nil, domain.TicketStatusRaised, stale)

	report, err := fx.service.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)

	stored, err := fx.tickets.GetByID(context.Background(), orphan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAuthorityID)
	assert.Equal(t, "warden-1", *stored.AssignedAuthorityID)
}

func TestRunSweepSkipsConcurrentlyModifiedTickets(t *testing.T) {
	fx := newEscalationFixture(t,
		testAuthority("warden-1", domain.AuthorityWarden, nil),
		testAuthority("dw-1", domain.AuthorityDeputyWarden, nil),
	)
	stale := time.Now().Add(-4 * 24 * time.Hour)

	healthy := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, stale)
	racing := fx.seedTicket(t, strPtr("warden-1"), domain.TicketStatusRaised, stale)
	fx.tickets.failCASFor[racing.ID] = true

	report, err := fx.service.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 1, report.Skipped, "a lost CAS race means someone else acted; skip, don't fail")

	stored, err := fx.tickets.GetByID(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, stored.Status)
}
