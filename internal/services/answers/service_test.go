package answers

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "maturity/internal/adapters/memory"
    "maturity/internal/catalog"
    "maturity/internal/domain"
)

// Stage A has one theme of two questions, stage B one question.
var twoStage = domain.FullPillar{
    Pillar: domain.Pillar{ID: "p", Code: "P"},
    Stages: []domain.Stage{
        {ID: "a", Code: "A", Position: 1, Themes: []domain.Theme{{ID: "ta", Questions: []domain.Question{
            {ID: "a1", Code: "A1", AuditGuidelines: []string{"written", "signed"}},
            {ID: "a2", Code: "A2", AuditGuidelines: []string{"written"}},
        }}}},
        {ID: "b", Code: "B", Position: 2, Themes: []domain.Theme{{ID: "tb", Questions: []domain.Question{
            {ID: "b1", Code: "B1", AuditGuidelines: []string{"measured"}},
        }}}},
    },
}

func newService(t *testing.T, assessments ...domain.Assessment) (*Service, *memory.Store) {
    t.Helper()
    st := memory.New()
    for _, a := range assessments {
        st.PutAssessment(a)
    }
    reg, err := catalog.New(twoStage)
    require.NoError(t, err)
    return New(st, reg, zap.NewNop()), st
}

func active(id string) domain.Assessment {
    return domain.Assessment{ID: id, OrgUnitID: "d", PillarID: "p", Type: domain.TypeSelfAssessment, IsActive: true}
}

func qualify(guidelines ...string) Patch {
    yes := true
    return Patch{CheckedGuidelines: &guidelines, IsQualified: &yes, UpdatedBy: "alice"}
}

func TestStageGateBlocksLaterStage(t *testing.T) {
    svc, _ := newService(t, active("x"))
    ctx := context.Background()

    a, ans, err := svc.Update(ctx, "x", "a2", qualify("written"))
    require.NoError(t, err)
    assert.True(t, ans.IsQualified)
    assert.Equal(t, "alice", ans.UpdatedBy)
    assert.Equal(t, 2.5, a.ScoresByStage["a"])
    assert.Equal(t, 2.5, a.ScoresByTheme["ta"])
    assert.Equal(t, 1.25, a.OverallScore)

    _, _, err = svc.Update(ctx, "x", "b1", qualify("measured"))
    require.Error(t, err)
    assert.True(t, domain.IsPolicy(err))
    assert.Contains(t, err.Error(), `stage "B" is locked`)
    assert.Contains(t, err.Error(), "2.50")

    _, _, err = svc.Update(ctx, "x", "a1", qualify("written", "signed"))
    require.NoError(t, err)
    a, _, err = svc.Update(ctx, "x", "b1", qualify("measured"))
    require.NoError(t, err)
    assert.Equal(t, 5.0, a.OverallScore)
}

func TestQualificationNeedsAllGuidelines(t *testing.T) {
    svc, _ := newService(t, active("x"))
    ctx := context.Background()

    _, _, err := svc.Update(ctx, "x", "a1", qualify("written"))
    require.Error(t, err)
    assert.True(t, domain.IsValidation(err))

    _, ans, err := svc.Update(ctx, "x", "a1", qualify("signed", "written", "signed"))
    require.NoError(t, err)
    assert.Equal(t, []string{"written", "signed"}, ans.CheckedGuidelines, "deduplicated in question order")
    assert.True(t, ans.IsQualified)

    partial := []string{"written"}
    a, ans, err := svc.Update(ctx, "x", "a1", Patch{CheckedGuidelines: &partial})
    require.NoError(t, err)
    assert.False(t, ans.IsQualified, "unchecking a guideline drops qualification")
    assert.Zero(t, a.OverallScore)

    _, _, err = svc.Update(ctx, "x", "a1", qualify("written", "stamped"))
    require.Error(t, err)
    assert.True(t, domain.IsValidation(err))
    assert.Contains(t, err.Error(), "stamped")
}

func TestPatchKeepsUntouchedFields(t *testing.T) {
    svc, _ := newService(t, active("x"))
    ctx := context.Background()

    comment := "checked on the floor"
    evidence := []domain.Evidence{{Name: "photo", URL: "https://files.example/p.jpg"}}
    _, _, err := svc.Update(ctx, "x", "a2", Patch{Comments: &comment, Evidence: &evidence})
    require.NoError(t, err)

    _, ans, err := svc.Update(ctx, "x", "a2", qualify("written"))
    require.NoError(t, err)
    assert.Equal(t, comment, ans.Comments)
    assert.Equal(t, evidence, ans.Evidence)

    no := false
    _, ans, err = svc.Update(ctx, "x", "a2", Patch{IsQualified: &no})
    require.NoError(t, err)
    assert.False(t, ans.IsQualified)
    assert.Equal(t, []string{"written"}, ans.CheckedGuidelines)
}

func TestReadOnlyAssessments(t *testing.T) {
    inactive := active("old")
    inactive.IsActive = false
    baseline := active("base")
    baseline.Type, baseline.IsActive = domain.TypeBaseline, false
    activeBaseline := active("base-on")
    activeBaseline.Type = domain.TypeBaseline
    mod := active("mod")
    mod.Type, mod.IsActive = domain.TypeModeration, false
    svc, _ := newService(t, inactive, baseline, activeBaseline, mod)
    ctx := context.Background()

    for _, id := range []string{"old", "base", "base-on"} {
        _, _, err := svc.Update(ctx, id, "a2", qualify("written"))
        require.Error(t, err)
        assert.True(t, domain.IsPolicy(err), id)
    }

    _, _, err := svc.Update(ctx, "mod", "a2", qualify("written"))
    assert.NoError(t, err, "moderations stay editable while inactive")
}

func TestUpdateNotFound(t *testing.T) {
    svc, _ := newService(t, active("x"))
    ctx := context.Background()

    _, _, err := svc.Update(ctx, "missing", "a1", qualify())
    assert.True(t, domain.IsNotFound(err))
    _, _, err = svc.Update(ctx, "x", "zz", qualify())
    assert.True(t, domain.IsNotFound(err))
}

func TestSheet(t *testing.T) {
    inactive := active("old")
    inactive.IsActive = false
    svc, _ := newService(t, active("x"), inactive)
    ctx := context.Background()

    sheet, err := svc.Sheet(ctx, "x")
    require.NoError(t, err)
    assert.Equal(t, map[string]bool{"a": true, "b": false}, sheet.EditableStages)
    assert.Empty(t, sheet.Answers)

    _, _, err = svc.Update(ctx, "x", "a1", qualify("written", "signed"))
    require.NoError(t, err)
    _, _, err = svc.Update(ctx, "x", "a2", qualify("written"))
    require.NoError(t, err)

    sheet, err = svc.Sheet(ctx, "x")
    require.NoError(t, err)
    assert.Equal(t, map[string]bool{"a": true, "b": true}, sheet.EditableStages)
    assert.Len(t, sheet.Answers, 2)
    assert.Equal(t, 5.0, sheet.Scores.PerStage["a"])

    sheet, err = svc.Sheet(ctx, "old")
    require.NoError(t, err)
    assert.Equal(t, map[string]bool{"a": false, "b": false}, sheet.EditableStages)

    _, err = svc.Sheet(ctx, "missing")
    assert.True(t, domain.IsNotFound(err))
}
