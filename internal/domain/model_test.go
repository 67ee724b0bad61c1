package domain

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestPeriodCovers(t *testing.T) {
    start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
    end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
    mid := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
    lineage := []string{"ent", "entity-a", "site-1", "dept-x"}

    enterprise := AssessmentPeriod{Status: PeriodOpen, StartDate: start, EndDate: end, TargetLevel: LevelEnterprise}
    assert.True(t, enterprise.Covers(mid, lineage))
    assert.True(t, enterprise.Covers(start, lineage))
    assert.True(t, enterprise.Covers(end, lineage))
    assert.False(t, enterprise.Covers(end.Add(time.Second), lineage))
    assert.False(t, enterprise.Covers(start.Add(-time.Second), lineage))

    closed := enterprise
    closed.Status = PeriodClosed
    assert.False(t, closed.Covers(mid, lineage))

    site := enterprise
    site.TargetLevel = LevelSite
    site.TargetID = "site-1"
    assert.True(t, site.Covers(mid, lineage))
    assert.False(t, site.Covers(mid, []string{"ent", "entity-b", "site-2", "dept-y"}))

    untargetedSite := enterprise
    untargetedSite.TargetLevel = LevelSite
    assert.False(t, untargetedSite.Covers(mid, lineage))
}

func TestFullPillarLocateAndSort(t *testing.T) {
    p := FullPillar{
        Pillar: Pillar{ID: "p"},
        Stages: []Stage{
            {ID: "s2", Position: 2, Themes: []Theme{{ID: "t2", Questions: []Question{{ID: "q2"}}}}},
            {ID: "s1", Position: 1, Themes: []Theme{
                {ID: "t1b", Position: 2, Questions: []Question{{ID: "q1b"}}},
                {ID: "t1a", Position: 1, Questions: []Question{{ID: "q1a"}, {ID: "q1c"}}},
            }},
        },
    }
    p.SortStructure()
    assert.Equal(t, []string{"s1", "s2"}, p.StageIDs())
    assert.Equal(t, "t1a", p.Stages[0].Themes[0].ID)
    assert.Equal(t, 4, p.QuestionCount())

    q, idx, ok := p.Locate("q2")
    assert.True(t, ok)
    assert.Equal(t, "q2", q.ID)
    assert.Equal(t, 1, idx)

    _, idx, ok = p.Locate("missing")
    assert.False(t, ok)
    assert.Equal(t, -1, idx)
}

func TestAssessmentEditable(t *testing.T) {
    assert.True(t, Assessment{Type: TypeSelfAssessment, IsActive: true}.Editable())
    assert.False(t, Assessment{Type: TypeSelfAssessment}.Editable())
    assert.True(t, Assessment{Type: TypeModeration}.Editable())
    assert.False(t, Assessment{Type: TypeBaseline}.Editable())
    assert.False(t, Assessment{Type: TypeBaseline, IsActive: true}.Editable())
}

func TestAnswerCloneDoesNotAlias(t *testing.T) {
    a := Answer{CheckedGuidelines: []string{"g1"}, Evidence: []Evidence{{Name: "doc", URL: "https://x"}}}
    c := a.Clone()
    c.CheckedGuidelines[0] = "changed"
    c.Evidence[0].Name = "changed"
    assert.Equal(t, "g1", a.CheckedGuidelines[0])
    assert.Equal(t, "doc", a.Evidence[0].Name)
}
