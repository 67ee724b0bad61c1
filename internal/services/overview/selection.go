package overview

import "maturity/internal/domain"

// rank orders assessment kinds for roll-up. Zero means the assessment never
// represents its unit.
func rank(a domain.Assessment) int {
    switch {
    case a.Type == domain.TypeModeration:
        return 2
    case a.Type == domain.TypeSelfAssessment && a.IsActive:
        return 1
    }
    return 0
}

// Outranks reports whether a is preferred over b: moderations beat
// self-assessments whatever their activation, then the newest wins, then
// the greater id.
func Outranks(a, b domain.Assessment) bool {
    if ra, rb := rank(a), rank(b); ra != rb {
        return ra > rb
    }
    if !a.CreatedAt.Equal(b.CreatedAt) {
        return a.CreatedAt.After(b.CreatedAt)
    }
    return a.ID > b.ID
}

// SelectAuthoritative picks the assessment that speaks for one unit and
// pillar. ok is false when no candidate qualifies.
func SelectAuthoritative(candidates []domain.Assessment) (best domain.Assessment, ok bool) {
    for _, c := range candidates {
        if rank(c) == 0 {
            continue
        }
        if !ok || Outranks(c, best) {
            best, ok = c, true
        }
    }
    return best, ok
}
