package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/jackc/pgx/v5"

    "maturity/internal/domain"
)

// CatalogRepository

func (db *DB) ListPillars(ctx context.Context) ([]domain.Pillar, error) {
    rows, err := db.Pool.Query(ctx, `SELECT id, code, name, description FROM pillars ORDER BY code`)
    if err != nil {
        return nil, fmt.Errorf("listing pillars: %w", err)
    }
    return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Pillar, error) {
        var p domain.Pillar
        err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description)
        return p, err
    })
}

// LoadPillar reads the whole questionnaire of one pillar in four ordered
// queries and stitches the tree together.
func (db *DB) LoadPillar(ctx context.Context, pillarID string) (domain.FullPillar, error) {
    var full domain.FullPillar
    err := db.Pool.QueryRow(ctx, `SELECT id, code, name, description FROM pillars WHERE id = $1`, pillarID).
        Scan(&full.ID, &full.Code, &full.Name, &full.Description)
    if errors.Is(err, pgx.ErrNoRows) {
        return full, domain.NotFound("catalog.load", "pillar", pillarID)
    }
    if err != nil {
        return full, fmt.Errorf("loading pillar: %w", err)
    }

    stageIdx := map[string]int{}
    rows, err := db.Pool.Query(ctx, `
        SELECT id, code, name, position FROM stages
        WHERE pillar_id = $1 ORDER BY position`, pillarID)
    if err != nil {
        return full, fmt.Errorf("loading stages: %w", err)
    }
    full.Stages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Stage, error) {
        var s domain.Stage
        err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Position)
        return s, err
    })
    if err != nil {
        return full, fmt.Errorf("loading stages: %w", err)
    }
    for i, s := range full.Stages {
        stageIdx[s.ID] = i
    }

    type themeLoc struct{ stage, theme int }
    themeIdx := map[string]themeLoc{}
    rows, err = db.Pool.Query(ctx, `
        SELECT t.id, t.stage_id, t.code, t.name, t.position
        FROM themes t JOIN stages s ON s.id = t.stage_id
        WHERE s.pillar_id = $1 ORDER BY s.position, t.position`, pillarID)
    if err != nil {
        return full, fmt.Errorf("loading themes: %w", err)
    }
    defer rows.Close()
    for rows.Next() {
        var t domain.Theme
        var stageID string
        if err := rows.Scan(&t.ID, &stageID, &t.Code, &t.Name, &t.Position); err != nil {
            return full, fmt.Errorf("scanning theme: %w", err)
        }
        si := stageIdx[stageID]
        full.Stages[si].Themes = append(full.Stages[si].Themes, t)
        themeIdx[t.ID] = themeLoc{si, len(full.Stages[si].Themes) - 1}
    }
    if err := rows.Err(); err != nil {
        return full, fmt.Errorf("loading themes: %w", err)
    }

    qrows, err := db.Pool.Query(ctx, `
        SELECT q.id, q.theme_id, q.code, q.text, q.audit_guidelines
        FROM questions q
        JOIN themes t ON t.id = q.theme_id
        JOIN stages s ON s.id = t.stage_id
        WHERE s.pillar_id = $1 ORDER BY s.position, t.position, q.position`, pillarID)
    if err != nil {
        return full, fmt.Errorf("loading questions: %w", err)
    }
    defer qrows.Close()
    for qrows.Next() {
        var q domain.Question
        var themeID string
        if err := qrows.Scan(&q.ID, &themeID, &q.Code, &q.Text, &q.AuditGuidelines); err != nil {
            return full, fmt.Errorf("scanning question: %w", err)
        }
        loc := themeIdx[themeID]
        th := &full.Stages[loc.stage].Themes[loc.theme]
        th.Questions = append(th.Questions, q)
    }
    if err := qrows.Err(); err != nil {
        return full, fmt.Errorf("loading questions: %w", err)
    }
    return full, nil
}
