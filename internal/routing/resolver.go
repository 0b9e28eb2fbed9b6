package routing

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ErrNoAuthority signals that no qualifying authority exists. Callers must
// treat it as "leave unassigned" or "stop escalating", never as a hard
// failure to surface to the submitter.
var ErrNoAuthority = errors.New("no qualifying authority")

// Directory is the read surface the resolver needs over the authority store.
type Directory interface {
	GetByID(ctx context.Context, id string) (*domain.Authority, error)
	ListActiveByType(ctx context.Context, t domain.AuthorityType) ([]domain.Authority, error)
	ListActiveAbove(ctx context.Context, level int) ([]domain.Authority, error)
}

// Resolver maps tickets onto the authority hierarchy and walks it upward for
// escalations.
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver constructs a resolver.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve picks the responsible authority for a category and optional
// department. When the ticket is against an authority, the base pick is
// escalated one hop so the accused party never owns its own complaint.
// Returns ErrNoAuthority when no fallback type has an active member.
func (r *Resolver) Resolve(ctx context.Context, category domain.GrievanceCategory, department *string, againstAuthority bool) (*domain.Authority, error) {
	base, err := r.resolveBase(ctx, category, department)
	if err != nil {
		return nil, err
	}
	if !againstAuthority {
		return base, nil
	}

	next, err := r.NextAuthority(ctx, base.ID)
	if errors.Is(err, ErrNoAuthority) {
		// Already at the top of the chain. The base pick is the least bad
		// owner left.
		r.logger.Warn("no authority above accused, keeping base assignment",
			zap.String("authority_id", base.ID),
			zap.String("authority_type", string(base.Type)))
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (r *Resolver) resolveBase(ctx context.Context, category domain.GrievanceCategory, department *string) (*domain.Authority, error) {
	scoped := DepartmentScoped(category)
	for _, t := range CandidateTypes(category) {
		candidates, err := r.dir.ListActiveByType(ctx, t)
		if err != nil {
			return nil, err
		}
		if pick := pickCandidate(candidates, department, scoped); pick != nil {
			return pick, nil
		}
	}
	return nil, ErrNoAuthority
}

// pickCandidate selects from active authorities of one type. For scoped
// categories an authority with a department affinity only qualifies when it
// matches the ticket's department; department-less authorities always
// qualify. An exact department match always wins over a department-less one.
func pickCandidate(candidates []domain.Authority, department *string, scoped bool) *domain.Authority {
	var fallback *domain.Authority
	for i := range candidates {
		c := &candidates[i]
		if c.Department != nil && department != nil && *c.Department == *department {
			return c
		}
		if c.Department != nil && scoped {
			continue
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback
}

// NextAuthority finds the authority the current one escalates to: the
// declared successor type first, preferring a department match, then any
// active authority with a strictly higher level. The result always has a
// higher level than the input; the root returns ErrNoAuthority.
func (r *Resolver) NextAuthority(ctx context.Context, currentAuthorityID string) (*domain.Authority, error) {
	current, err := r.dir.GetByID(ctx, currentAuthorityID)
	if err != nil {
		return nil, err
	}

	if successor, ok := SuccessorType(current.Type); ok && successor != current.Type {
		candidates, err := r.dir.ListActiveByType(ctx, successor)
		if err != nil {
			return nil, err
		}
		if pick := pickSuccessor(candidates, current); pick != nil {
			return pick, nil
		}
	}

	// No rule, rule target empty, or the self-looping root: fall back to the
	// level ladder.
	candidates, err := r.dir.ListActiveAbove(ctx, current.Level)
	if err != nil {
		return nil, err
	}
	if pick := pickByLevel(candidates, current); pick != nil {
		return pick, nil
	}
	return nil, ErrNoAuthority
}

// pickSuccessor chooses among active members of the declared successor type.
// The level guard keeps escalation monotonic even if the directory holds a
// mislevelled row.
func pickSuccessor(candidates []domain.Authority, current *domain.Authority) *domain.Authority {
	var first *domain.Authority
	for i := range candidates {
		c := &candidates[i]
		if c.ID == current.ID || c.Level <= current.Level {
			continue
		}
		if departmentsMatch(c, current) {
			return c
		}
		if first == nil {
			first = c
		}
	}
	return first
}

// pickByLevel implements the numeric fallback: strictly higher level,
// ascending level, department match wins ties.
func pickByLevel(candidates []domain.Authority, current *domain.Authority) *domain.Authority {
	eligible := make([]domain.Authority, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == current.ID || c.Level <= current.Level {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Level != eligible[j].Level {
			return eligible[i].Level < eligible[j].Level
		}
		return departmentsMatch(&eligible[i], current) && !departmentsMatch(&eligible[j], current)
	})
	return &eligible[0]
}

func departmentsMatch(a *domain.Authority, b *domain.Authority) bool {
	return a.Department != nil && b.Department != nil && *a.Department == *b.Department
}
