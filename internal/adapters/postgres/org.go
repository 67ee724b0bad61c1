package postgres

import (
    "context"
    "fmt"

    "github.com/jackc/pgx/v5"

    "maturity/internal/domain"
)

// OrgRepository

func (db *DB) ListUnits(ctx context.Context) ([]domain.OrgUnit, error) {
    rows, err := db.Pool.Query(ctx, `SELECT id, name, level, COALESCE(parent_id, '') FROM org_units ORDER BY id`)
    if err != nil {
        return nil, fmt.Errorf("listing org units: %w", err)
    }
    return pgx.CollectRows(rows, scanUnit)
}

// Lineage walks parent links upward with a bounded recursive query.
func (db *DB) Lineage(ctx context.Context, unitID string) ([]domain.OrgUnit, error) {
    rows, err := db.Pool.Query(ctx, `
        WITH RECURSIVE chain AS (
            SELECT id, name, level, parent_id, 0 AS depth
            FROM org_units WHERE id = $1
            UNION ALL
            SELECT u.id, u.name, u.level, u.parent_id, c.depth + 1
            FROM org_units u JOIN chain c ON u.id = c.parent_id
            WHERE c.depth < 8
        )
        SELECT id, name, level, COALESCE(parent_id, '') FROM chain ORDER BY depth DESC
    `, unitID)
    if err != nil {
        return nil, fmt.Errorf("loading lineage: %w", err)
    }
    units, err := pgx.CollectRows(rows, scanUnit)
    if err != nil {
        return nil, fmt.Errorf("loading lineage: %w", err)
    }
    if len(units) == 0 {
        return nil, domain.NotFound("org.lineage", "org unit", unitID)
    }
    return units, nil
}

func scanUnit(row pgx.CollectableRow) (domain.OrgUnit, error) {
    var u domain.OrgUnit
    var level int16
    err := row.Scan(&u.ID, &u.Name, &level, &u.ParentID)
    u.Level = domain.OrgLevel(level)
    return u, err
}
