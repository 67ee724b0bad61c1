package postgres

import (
    "context"
    "os"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "maturity/internal/catalog"
    "maturity/internal/domain"
    "maturity/internal/ports"
    "maturity/internal/seed"
    "maturity/internal/services/lifecycle"
)

// These tests need a disposable Postgres; set DATABASE_URL to run them.
func openTestDB(t *testing.T) *DB {
    t.Helper()
    url := os.Getenv("DATABASE_URL")
    if url == "" {
        t.Skip("DATABASE_URL not set")
    }
    ctx := context.Background()
    db, err := Connect(ctx, url)
    require.NoError(t, err)
    t.Cleanup(db.Close)
    require.NoError(t, db.Migrate(ctx))
    return db
}

type pgFixture struct {
    db       *DB
    pillar   domain.FullPillar
    unitID   string
    periodID string
}

// seedFixture writes a pillar, a department lineage and an open period under
// fresh ids so runs never collide.
func seedFixture(t *testing.T, db *DB) pgFixture {
    t.Helper()
    sfx := uuid.NewString()[:8]
    pillar := domain.FullPillar{
        Pillar: domain.Pillar{ID: "p-" + sfx, Code: "P-" + sfx, Name: "Pillar"},
        Stages: []domain.Stage{{ID: "s-" + sfx, Code: "S1", Position: 1, Themes: []domain.Theme{
            {ID: "t-" + sfx, Code: "T1", Position: 1, Questions: []domain.Question{
                {ID: "q-" + sfx, Code: "Q1", AuditGuidelines: []string{"g1"}},
            }},
        }}},
    }
    now := time.Now().UTC()
    sd := seed.Seed{
        Pillars: []domain.FullPillar{pillar},
        Units: []domain.OrgUnit{
            {ID: "ent-" + sfx, Name: "Group", Level: domain.LevelEnterprise},
            {ID: "site-" + sfx, Name: "Site", Level: domain.LevelSite, ParentID: "ent-" + sfx},
            {ID: "dept-" + sfx, Name: "Dept", Level: domain.LevelDepartment, ParentID: "site-" + sfx},
        },
        Periods: []domain.AssessmentPeriod{{ID: "per-" + sfx, Name: "Now", Status: domain.PeriodOpen,
            StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0),
            TargetLevel: domain.LevelSite, TargetID: "site-" + sfx}},
    }
    require.NoError(t, db.ApplySeed(context.Background(), sd))
    return pgFixture{db: db, pillar: pillar, unitID: "dept-" + sfx, periodID: "per-" + sfx}
}

func (f pgFixture) activeSelf(t *testing.T) []string {
    t.Helper()
    list, err := f.db.ListAssessments(context.Background(), ports.AssessmentFilter{OrgUnitID: f.unitID, PillarID: f.pillar.ID})
    require.NoError(t, err)
    var ids []string
    for _, a := range list {
        if a.Type == domain.TypeSelfAssessment && a.IsActive {
            ids = append(ids, a.ID)
        }
    }
    return ids
}

func TestPostgresRoundTrip(t *testing.T) {
    db := openTestDB(t)
    f := seedFixture(t, db)
    ctx := context.Background()

    loaded, err := db.LoadPillar(ctx, f.pillar.ID)
    require.NoError(t, err)
    assert.Equal(t, f.pillar.Stages[0].Themes[0].Questions[0].AuditGuidelines, loaded.Stages[0].Themes[0].Questions[0].AuditGuidelines)

    lineage, err := db.Lineage(ctx, f.unitID)
    require.NoError(t, err)
    require.Len(t, lineage, 3)
    assert.Equal(t, domain.LevelEnterprise, lineage[0].Level)
    assert.Equal(t, f.unitID, lineage[2].ID)

    a := domain.Assessment{ID: uuid.NewString(), OrgUnitID: f.unitID, PillarID: f.pillar.ID, PeriodID: "p",
        Label: "first", CreatedAt: time.Now().UTC()}
    require.NoError(t, db.CreateActiveSelf(ctx, a, []domain.Answer{{QuestionID: f.pillar.Stages[0].Themes[0].Questions[0].ID,
        CheckedGuidelines: []string{"g1"}, IsQualified: true, Evidence: []domain.Evidence{{Name: "doc", URL: "https://x.example"}}}}))
    answers, err := db.ListAnswers(ctx, a.ID)
    require.NoError(t, err)
    require.Len(t, answers, 1)
    for _, ans := range answers {
        assert.True(t, ans.IsQualified)
        assert.Equal(t, "doc", ans.Evidence[0].Name)
    }

    _, err = db.GetAssessment(ctx, "missing-"+a.ID)
    assert.True(t, domain.IsNotFound(err))
}

func TestPartialUniqueIndexRejectsSecondActive(t *testing.T) {
    db := openTestDB(t)
    f := seedFixture(t, db)
    ctx := context.Background()

    first := domain.Assessment{ID: uuid.NewString(), OrgUnitID: f.unitID, PillarID: f.pillar.ID, PeriodID: "p",
        Label: "first", CreatedAt: time.Now().UTC()}
    require.NoError(t, db.CreateActiveSelf(ctx, first, nil))

    second := first
    second.ID = uuid.NewString()
    err := db.inTx(ctx, "test.insert_active", func(tx pgx.Tx) error {
        return insertAssessment(ctx, tx, second, nil)
    })
    require.Error(t, err)
    assert.True(t, domain.IsConflict(err))
    assert.Equal(t, []string{first.ID}, f.activeSelf(t))
}

func TestConcurrentActivationPostgres(t *testing.T) {
    db := openTestDB(t)
    f := seedFixture(t, db)
    ctx := context.Background()

    reg, err := catalog.New(f.pillar)
    require.NoError(t, err)
    svc := lifecycle.New(db, db, db, reg, zap.NewNop(), lifecycle.WithRetries(10, 5*time.Millisecond))

    in := lifecycle.BlankInput{OrgUnitID: f.unitID, PillarID: f.pillar.ID, PeriodID: f.periodID, Label: "seed"}
    var seeded []string
    for i := 0; i < 3; i++ {
        a, err := svc.CreateBlank(ctx, in)
        require.NoError(t, err)
        seeded = append(seeded, a.ID)
    }

    const workers = 12
    var wg sync.WaitGroup
    errs := make(chan error, workers)
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            var err error
            if i%2 == 0 {
                _, err = svc.CreateBlank(ctx, in)
            } else {
                _, err = svc.SetActive(ctx, seeded[i%len(seeded)])
            }
            errs <- err
        }(i)
    }
    wg.Wait()
    close(errs)
    for err := range errs {
        assert.NoError(t, err)
    }
    assert.Len(t, f.activeSelf(t), 1)
}
