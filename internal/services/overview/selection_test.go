package overview

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"

    "maturity/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestSelectAuthoritative(t *testing.T) {
    self := domain.Assessment{ID: "sa", Type: domain.TypeSelfAssessment, IsActive: true, OverallScore: 3.2, CreatedAt: t0.Add(time.Hour)}
    mod := domain.Assessment{ID: "mod", Type: domain.TypeModeration, OverallScore: 4.1, CreatedAt: t0}
    stale := domain.Assessment{ID: "old", Type: domain.TypeSelfAssessment, CreatedAt: t0.Add(2 * time.Hour)}
    base := domain.Assessment{ID: "base", Type: domain.TypeBaseline, IsActive: true, CreatedAt: t0.Add(3 * time.Hour)}

    best, ok := SelectAuthoritative([]domain.Assessment{self, stale, mod, base})
    assert.True(t, ok)
    assert.Equal(t, "mod", best.ID, "moderation wins even when older and inactive")

    best, ok = SelectAuthoritative([]domain.Assessment{stale, self, base})
    assert.True(t, ok)
    assert.Equal(t, "sa", best.ID)

    _, ok = SelectAuthoritative([]domain.Assessment{stale, base})
    assert.False(t, ok)
    _, ok = SelectAuthoritative(nil)
    assert.False(t, ok)
}

func TestOutranksTieBreaks(t *testing.T) {
    older := domain.Assessment{ID: "z", Type: domain.TypeModeration, CreatedAt: t0}
    newer := domain.Assessment{ID: "a", Type: domain.TypeModeration, CreatedAt: t0.Add(time.Minute)}
    assert.True(t, Outranks(newer, older))
    assert.False(t, Outranks(older, newer))

    twin := newer
    twin.ID = "b"
    assert.True(t, Outranks(twin, newer))
    assert.False(t, Outranks(newer, twin))

    best, _ := SelectAuthoritative([]domain.Assessment{twin, older, newer})
    assert.Equal(t, "b", best.ID)
    best, _ = SelectAuthoritative([]domain.Assessment{newer, twin, older})
    assert.Equal(t, "b", best.ID, "order independent")
}
