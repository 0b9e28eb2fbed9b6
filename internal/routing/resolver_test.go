package routing

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// fakeDirectory serves a fixed roster of authorities.
type fakeDirectory struct {
	authorities []domain.Authority
}

func (d *fakeDirectory) GetByID(ctx context.Context, id string) (*domain.Authority, error) {
	for i := range d.authorities {
		if d.authorities[i].ID == id {
			return &d.authorities[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d *fakeDirectory) ListActiveByType(ctx context.Context, t domain.AuthorityType) ([]domain.Authority, error) {
	var out []domain.Authority
	for _, a := range d.authorities {
		if a.Type == t && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListActiveAbove(ctx context.Context, level int) ([]domain.Authority, error) {
	var out []domain.Authority
	for _, a := range d.authorities {
		if a.Level > level && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func authority(id string, t domain.AuthorityType, department *string) domain.Authority {
	return domain.Authority{
		ID:         id,
		Type:       t,
		Level:      t.Level(),
		Department: department,
		Active:     true,
	}
}

func TestResolvePicksCategoryDefault(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("warden-1", domain.AuthorityWarden, nil),
		authority("admin-1", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryHostel, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "warden-1", pick.ID)
}

func TestResolveWalksFallbackChain(t *testing.T) {
	// no warden on the roster: hostel falls to deputy warden
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("dw-1", domain.AuthorityDeputyWarden, nil),
		authority("admin-1", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryHostel, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "dw-1", pick.ID)
}

func TestResolveDepartmentAffinity(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("hod-cs", domain.AuthorityHeadOfDepartment, strPtr("CS")),
		authority("hod-me", domain.AuthorityHeadOfDepartment, strPtr("ME")),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryAcademic, strPtr("ME"), false)
	require.NoError(t, err)
	assert.Equal(t, "hod-me", pick.ID)
}

func TestResolveScopedCategorySkipsWrongDepartment(t *testing.T) {
	// academic is department scoped: a HOD bound to another department never
	// receives the ticket, the chain falls through to the admin officer
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("hod-cs", domain.AuthorityHeadOfDepartment, strPtr("CS")),
		authority("ao-1", domain.AuthorityAdminOfficer, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryAcademic, strPtr("ME"), false)
	require.NoError(t, err)
	assert.Equal(t, "ao-1", pick.ID)
}

func TestResolveUnknownCategoryRoutesAsGeneral(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("ao-1", domain.AuthorityAdminOfficer, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.GrievanceCategory("NONSENSE"), nil, false)
	require.NoError(t, err)
	assert.Equal(t, "ao-1", pick.ID)
}

func TestResolveNoAuthority(t *testing.T) {
	r := NewResolver(&fakeDirectory{}, nil)

	_, err := r.Resolve(context.Background(), domain.CategoryHostel, nil, false)
	assert.ErrorIs(t, err, ErrNoAuthority)
}

func TestResolveAgainstAuthorityEscalatesOneHop(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("warden-1", domain.AuthorityWarden, nil),
		authority("dw-1", domain.AuthorityDeputyWarden, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryHostel, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "dw-1", pick.ID, "accused type's superior must own the complaint")
}

func TestResolveAgainstAuthorityKeepsBaseAtRoot(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("admin-1", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	pick, err := r.Resolve(context.Background(), domain.CategoryGeneral, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", pick.ID)
}

func TestNextAuthorityFollowsDeclaredSuccessor(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("warden-1", domain.AuthorityWarden, nil),
		authority("dw-1", domain.AuthorityDeputyWarden, nil),
		authority("admin-1", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	next, err := r.NextAuthority(context.Background(), "warden-1")
	require.NoError(t, err)
	assert.Equal(t, "dw-1", next.ID)
}

func TestNextAuthorityLevelFallback(t *testing.T) {
	// the declared successor type has no active member; the ladder skips to
	// the lowest strictly-higher level
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("warden-1", domain.AuthorityWarden, nil),
		authority("sdw-1", domain.AuthoritySeniorDeputyWarden, nil),
		authority("admin-1", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	next, err := r.NextAuthority(context.Background(), "warden-1")
	require.NoError(t, err)
	assert.Equal(t, "sdw-1", next.ID)
}

func TestNextAuthorityPrefersDepartmentMatch(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("hod-cs", domain.AuthorityHeadOfDepartment, strPtr("CS")),
		authority("sdw-me", domain.AuthoritySeniorDeputyWarden, strPtr("ME")),
		authority("sdw-cs", domain.AuthoritySeniorDeputyWarden, strPtr("CS")),
	}}
	r := NewResolver(dir, nil)

	next, err := r.NextAuthority(context.Background(), "hod-cs")
	require.NoError(t, err)
	assert.Equal(t, "sdw-cs", next.ID)
}

func TestNextAuthorityRootTerminates(t *testing.T) {
	dir := &fakeDirectory{authorities: []domain.Authority{
		authority("admin-1", domain.AuthorityAdmin, nil),
		authority("admin-2", domain.AuthorityAdmin, nil),
	}}
	r := NewResolver(dir, nil)

	_, err := r.NextAuthority(context.Background(), "admin-1")
	assert.ErrorIs(t, err, ErrNoAuthority, "the root never escalates to a peer")
}

func TestNextAuthorityMonotonicLevels(t *testing.T) {
	roster := []domain.Authority{
		authority("warden-1", domain.AuthorityWarden, nil),
		authority("dw-1", domain.AuthorityDeputyWarden, nil),
		authority("sdw-1", domain.AuthoritySeniorDeputyWarden, nil),
		authority("admin-1", domain.AuthorityAdmin, nil),
	}
	r := NewResolver(&fakeDirectory{authorities: roster}, nil)

	// walking from the bottom must strictly climb and terminate
	current := roster[0]
	for hops := 0; hops < len(roster); hops++ {
		next, err := r.NextAuthority(context.Background(), current.ID)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoAuthority)
			assert.Equal(t, domain.AuthorityAdmin, current.Type)
			return
		}
		require.Greater(t, next.Level, current.Level)
		current = *next
	}
	t.Fatal("escalation chain did not terminate")
}
