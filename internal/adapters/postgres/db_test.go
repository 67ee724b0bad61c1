package postgres

import (
    "errors"
    "fmt"
    "testing"

    "github.com/jackc/pgx/v5/pgconn"
    "github.com/stretchr/testify/assert"

    "maturity/internal/domain"
)

func TestMapError(t *testing.T) {
    for _, code := range []string{codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected} {
        err := mapError("assessments.activate", fmt.Errorf("exec: %w", &pgconn.PgError{Code: code}))
        assert.True(t, domain.IsConflict(err), code)
    }

    nf := domain.NotFound("assessments.get", "assessment", "a1")
    assert.Same(t, nf, mapError("op", nf))

    other := mapError("op", &pgconn.PgError{Code: "42P01"})
    _, isDomain := domain.KindOf(other)
    assert.False(t, isDomain)
    var pgErr *pgconn.PgError
    assert.True(t, errors.As(other, &pgErr))
    assert.Contains(t, other.Error(), "op: ")
}
