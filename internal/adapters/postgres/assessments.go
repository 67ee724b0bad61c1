package postgres

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/jackc/pgx/v5"

    "maturity/internal/domain"
    "maturity/internal/ports"
)

var (
    _ ports.CatalogRepository    = (*DB)(nil)
    _ ports.OrgRepository        = (*DB)(nil)
    _ ports.PeriodRepository     = (*DB)(nil)
    _ ports.AssessmentRepository = (*DB)(nil)
)

const assessmentCols = `id, org_unit_id, pillar_id, period_id, type, label, is_active,
    overall_score, scores_by_stage, scores_by_theme, parent_assessment_id, created_at, created_by`

const answerCols = `assessment_id, question_id, checked_guidelines, is_qualified, comments, evidence, updated_at, updated_by`

// querier is satisfied by both the pool and a transaction.
type querier interface {
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (db *DB) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
    return getAssessment(ctx, db.Pool, "assessments.get", id, false)
}

func (db *DB) ListAssessments(ctx context.Context, f ports.AssessmentFilter) ([]domain.Assessment, error) {
    var (
        where []string
        args  []any
    )
    if f.OrgUnitID != "" {
        args = append(args, f.OrgUnitID)
        where = append(where, fmt.Sprintf("org_unit_id = $%d", len(args)))
    }
    if f.PillarID != "" {
        args = append(args, f.PillarID)
        where = append(where, fmt.Sprintf("pillar_id = $%d", len(args)))
    }
    q := `SELECT ` + assessmentCols + ` FROM assessments`
    if len(where) > 0 {
        q += ` WHERE ` + strings.Join(where, " AND ")
    }
    q += ` ORDER BY created_at, id`
    rows, err := db.Pool.Query(ctx, q, args...)
    if err != nil {
        return nil, fmt.Errorf("listing assessments: %w", err)
    }
    return pgx.CollectRows(rows, scanAssessment)
}

func (db *DB) ListAnswers(ctx context.Context, assessmentID string) (map[string]domain.Answer, error) {
    if _, err := db.GetAssessment(ctx, assessmentID); err != nil {
        return nil, err
    }
    return listAnswers(ctx, db.Pool, assessmentID)
}

func (db *DB) CreateActiveSelf(ctx context.Context, a domain.Assessment, answers []domain.Answer) error {
    a.Type = domain.TypeSelfAssessment
    a.IsActive = true
    return db.inTx(ctx, "assessments.create_active", func(tx pgx.Tx) error {
        if err := lockUnitPillar(ctx, tx, a.OrgUnitID, a.PillarID); err != nil {
            return err
        }
        if err := deactivateSelf(ctx, tx, a.OrgUnitID, a.PillarID, a.ID); err != nil {
            return err
        }
        return insertAssessment(ctx, tx, a, answers)
    })
}

func (db *DB) CreateDetached(ctx context.Context, a domain.Assessment, answers []domain.Answer) error {
    return db.inTx(ctx, "assessments.create", func(tx pgx.Tx) error {
        return insertAssessment(ctx, tx, a, answers)
    })
}

// Activate serializes on the (unit, pillar) advisory lock before touching
// rows, so two activations of siblings queue instead of deadlocking. The
// partial unique index catches anything that slips past.
func (db *DB) Activate(ctx context.Context, id string) (domain.Assessment, error) {
    const op = "assessments.activate"
    var out domain.Assessment
    err := db.inTx(ctx, op, func(tx pgx.Tx) error {
        a, err := getAssessment(ctx, tx, op, id, false)
        if err != nil {
            return err
        }
        if err := lockUnitPillar(ctx, tx, a.OrgUnitID, a.PillarID); err != nil {
            return err
        }
        a, err = getAssessment(ctx, tx, op, id, true)
        if err != nil {
            return err
        }
        if err := deactivateSelf(ctx, tx, a.OrgUnitID, a.PillarID, a.ID); err != nil {
            return err
        }
        if _, err := tx.Exec(ctx, `UPDATE assessments SET is_active = true WHERE id = $1`, id); err != nil {
            return err
        }
        a.IsActive = true
        out = a
        return nil
    })
    return out, err
}

func (db *DB) UpdateAnswer(ctx context.Context, assessmentID string, fn ports.AnswerMutation) (domain.Assessment, domain.Answer, error) {
    const op = "answers.update"
    var (
        outA   domain.Assessment
        outAns domain.Answer
    )
    err := db.inTx(ctx, op, func(tx pgx.Tx) error {
        a, err := getAssessment(ctx, tx, op, assessmentID, true)
        if err != nil {
            return err
        }
        current, err := listAnswers(ctx, tx, assessmentID)
        if err != nil {
            return err
        }
        ans, scores, err := fn(a, current)
        if err != nil {
            return err
        }
        ans.AssessmentID = assessmentID
        if err := upsertAnswer(ctx, tx, ans); err != nil {
            return err
        }
        a.ApplyScores(scores)
        if _, err := tx.Exec(ctx, `
            UPDATE assessments SET overall_score = $2, scores_by_stage = $3, scores_by_theme = $4
            WHERE id = $1`, a.ID, a.OverallScore, a.ScoresByStage, a.ScoresByTheme); err != nil {
            return err
        }
        outA, outAns = a, ans
        return nil
    })
    return outA, outAns, err
}

func lockUnitPillar(ctx context.Context, tx pgx.Tx, unitID, pillarID string) error {
    _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, unitID+"/"+pillarID)
    return err
}

func deactivateSelf(ctx context.Context, tx pgx.Tx, unitID, pillarID, keep string) error {
    _, err := tx.Exec(ctx, `
        UPDATE assessments SET is_active = false
        WHERE org_unit_id = $1 AND pillar_id = $2 AND type = 'self_assessment'
          AND is_active AND id <> $3`, unitID, pillarID, keep)
    return err
}

func getAssessment(ctx context.Context, q querier, op, id string, forUpdate bool) (domain.Assessment, error) {
    sql := `SELECT ` + assessmentCols + ` FROM assessments WHERE id = $1`
    if forUpdate {
        sql += ` FOR UPDATE`
    }
    rows, err := q.Query(ctx, sql, id)
    if err != nil {
        return domain.Assessment{}, fmt.Errorf("%s: %w", op, err)
    }
    a, err := pgx.CollectExactlyOneRow(rows, scanAssessment)
    if errors.Is(err, pgx.ErrNoRows) {
        return a, domain.NotFound(op, "assessment", id)
    }
    return a, err
}

func insertAssessment(ctx context.Context, tx pgx.Tx, a domain.Assessment, answers []domain.Answer) error {
    if a.ScoresByStage == nil {
        a.ScoresByStage = map[string]float64{}
    }
    if a.ScoresByTheme == nil {
        a.ScoresByTheme = map[string]float64{}
    }
    _, err := tx.Exec(ctx, `INSERT INTO assessments (`+assessmentCols+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
        a.ID, a.OrgUnitID, a.PillarID, a.PeriodID, string(a.Type), a.Label, a.IsActive,
        a.OverallScore, a.ScoresByStage, a.ScoresByTheme, a.ParentAssessmentID, a.CreatedAt, a.CreatedBy)
    if err != nil {
        return err
    }
    if len(answers) == 0 {
        return nil
    }
    b := &pgx.Batch{}
    for _, ans := range answers {
        ans.AssessmentID = a.ID
        queueAnswer(b, ans)
    }
    return tx.SendBatch(ctx, b).Close()
}

const upsertAnswerSQL = `INSERT INTO answers (` + answerCols + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (assessment_id, question_id) DO UPDATE SET
        checked_guidelines = EXCLUDED.checked_guidelines,
        is_qualified = EXCLUDED.is_qualified,
        comments = EXCLUDED.comments,
        evidence = EXCLUDED.evidence,
        updated_at = EXCLUDED.updated_at,
        updated_by = EXCLUDED.updated_by`

func answerArgs(ans domain.Answer) []any {
    checked := ans.CheckedGuidelines
    if checked == nil {
        checked = []string{}
    }
    evidence := ans.Evidence
    if evidence == nil {
        evidence = []domain.Evidence{}
    }
    return []any{ans.AssessmentID, ans.QuestionID, checked, ans.IsQualified, ans.Comments, evidence, ans.UpdatedAt, ans.UpdatedBy}
}

func queueAnswer(b *pgx.Batch, ans domain.Answer) {
    b.Queue(upsertAnswerSQL, answerArgs(ans)...)
}

func upsertAnswer(ctx context.Context, tx pgx.Tx, ans domain.Answer) error {
    _, err := tx.Exec(ctx, upsertAnswerSQL, answerArgs(ans)...)
    return err
}

func listAnswers(ctx context.Context, q querier, assessmentID string) (map[string]domain.Answer, error) {
    rows, err := q.Query(ctx, `SELECT `+answerCols+` FROM answers WHERE assessment_id = $1`, assessmentID)
    if err != nil {
        return nil, fmt.Errorf("listing answers: %w", err)
    }
    list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Answer, error) {
        var a domain.Answer
        err := row.Scan(&a.AssessmentID, &a.QuestionID, &a.CheckedGuidelines, &a.IsQualified,
            &a.Comments, &a.Evidence, &a.UpdatedAt, &a.UpdatedBy)
        return a, err
    })
    if err != nil {
        return nil, fmt.Errorf("listing answers: %w", err)
    }
    out := make(map[string]domain.Answer, len(list))
    for _, a := range list {
        out[a.QuestionID] = a
    }
    return out, nil
}

func scanAssessment(row pgx.CollectableRow) (domain.Assessment, error) {
    var a domain.Assessment
    var typ string
    err := row.Scan(&a.ID, &a.OrgUnitID, &a.PillarID, &a.PeriodID, &typ, &a.Label, &a.IsActive,
        &a.OverallScore, &a.ScoresByStage, &a.ScoresByTheme, &a.ParentAssessmentID, &a.CreatedAt, &a.CreatedBy)
    a.Type = domain.AssessmentType(typ)
    return a, err
}
