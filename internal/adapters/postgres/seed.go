package postgres

import (
    "context"

    "github.com/jackc/pgx/v5"

    "maturity/internal/seed"
)

// ApplySeed upserts the catalog, org tree and periods of sd. Existing rows
// are overwritten; rows missing from sd are left alone.
func (db *DB) ApplySeed(ctx context.Context, sd seed.Seed) error {
    return db.inTx(ctx, "seed.apply", func(tx pgx.Tx) error {
        b := &pgx.Batch{}
        for _, p := range sd.Pillars {
            b.Queue(`INSERT INTO pillars (id, code, name, description) VALUES ($1, $2, $3, $4)
                ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, description = EXCLUDED.description`,
                p.ID, p.Code, p.Name, p.Description)
            for _, s := range p.Stages {
                b.Queue(`INSERT INTO stages (id, pillar_id, code, name, position) VALUES ($1, $2, $3, $4, $5)
                    ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, position = EXCLUDED.position`,
                    s.ID, p.ID, s.Code, s.Name, s.Position)
                for _, t := range s.Themes {
                    b.Queue(`INSERT INTO themes (id, stage_id, code, name, position) VALUES ($1, $2, $3, $4, $5)
                        ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, position = EXCLUDED.position`,
                        t.ID, s.ID, t.Code, t.Name, t.Position)
                    for i, q := range t.Questions {
                        guidelines := q.AuditGuidelines
                        if guidelines == nil {
                            guidelines = []string{}
                        }
                        b.Queue(`INSERT INTO questions (id, theme_id, code, text, audit_guidelines, position) VALUES ($1, $2, $3, $4, $5, $6)
                            ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, text = EXCLUDED.text,
                                audit_guidelines = EXCLUDED.audit_guidelines, position = EXCLUDED.position`,
                            q.ID, t.ID, q.Code, q.Text, guidelines, i+1)
                    }
                }
            }
        }
        for _, u := range sd.Units {
            var parent *string
            if u.ParentID != "" {
                p := u.ParentID
                parent = &p
            }
            b.Queue(`INSERT INTO org_units (id, name, level, parent_id) VALUES ($1, $2, $3, $4)
                ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, level = EXCLUDED.level, parent_id = EXCLUDED.parent_id`,
                u.ID, u.Name, int16(u.Level), parent)
        }
        for _, p := range sd.Periods {
            b.Queue(`INSERT INTO assessment_periods (id, name, start_date, end_date, status, target_level, target_id)
                VALUES ($1, $2, $3, $4, $5, $6, $7)
                ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, start_date = EXCLUDED.start_date,
                    end_date = EXCLUDED.end_date, status = EXCLUDED.status,
                    target_level = EXCLUDED.target_level, target_id = EXCLUDED.target_id`,
                p.ID, p.Name, p.StartDate, p.EndDate, string(p.Status), int16(p.TargetLevel), p.TargetID)
        }
        return tx.SendBatch(ctx, b).Close()
    })
}
