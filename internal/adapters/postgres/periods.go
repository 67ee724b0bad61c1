package postgres

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5"

    "maturity/internal/domain"
)

// PeriodRepository

const periodCols = `id, name, start_date, end_date, status, target_level, target_id`

func (db *DB) GetPeriod(ctx context.Context, periodID string) (domain.AssessmentPeriod, error) {
    rows, err := db.Pool.Query(ctx, `SELECT `+periodCols+` FROM assessment_periods WHERE id = $1`, periodID)
    if err != nil {
        return domain.AssessmentPeriod{}, fmt.Errorf("loading period: %w", err)
    }
    p, err := pgx.CollectExactlyOneRow(rows, scanPeriod)
    if errors.Is(err, pgx.ErrNoRows) {
        return p, domain.NotFound("periods.get", "period", periodID)
    }
    return p, err
}

func (db *DB) ListOpenPeriods(ctx context.Context, at time.Time) ([]domain.AssessmentPeriod, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT `+periodCols+` FROM assessment_periods
        WHERE status = 'open' AND start_date <= $1 AND end_date >= $1
        ORDER BY start_date DESC, id`, at)
    if err != nil {
        return nil, fmt.Errorf("listing open periods: %w", err)
    }
    return pgx.CollectRows(rows, scanPeriod)
}

func scanPeriod(row pgx.CollectableRow) (domain.AssessmentPeriod, error) {
    var p domain.AssessmentPeriod
    var status string
    var level int16
    err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &status, &level, &p.TargetID)
    p.Status = domain.PeriodStatus(status)
    p.TargetLevel = domain.OrgLevel(level)
    return p, err
}
