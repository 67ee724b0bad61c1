package domain

import (
    "sort"
    "time"
)

// Core domain models shared by services and adapters. HTTP payloads are
// declared next to the handlers; keep these free of transport concerns.

type Pillar struct {
    ID          string `json:"id" yaml:"id"`
    Code        string `json:"code" yaml:"code"`
    Name        string `json:"name" yaml:"name"`
    Description string `json:"description,omitempty" yaml:"description"`
}

type Stage struct {
    ID       string  `json:"id" yaml:"id"`
    Code     string  `json:"code" yaml:"code"`
    Name     string  `json:"name" yaml:"name"`
    Position int     `json:"position" yaml:"position"`
    Themes   []Theme `json:"themes" yaml:"themes"`
}

type Theme struct {
    ID        string     `json:"id" yaml:"id"`
    Code      string     `json:"code" yaml:"code"`
    Name      string     `json:"name" yaml:"name"`
    Position  int        `json:"position" yaml:"position"`
    Questions []Question `json:"questions" yaml:"questions"`
}

type Question struct {
    ID              string   `json:"id" yaml:"id"`
    Code            string   `json:"code" yaml:"code"`
    Text            string   `json:"text" yaml:"text"`
    AuditGuidelines []string `json:"auditGuidelines" yaml:"auditGuidelines"`
}

// FullPillar is the complete questionnaire tree of one pillar with stages in
// gating order.
type FullPillar struct {
    Pillar `yaml:",inline"`
    Stages []Stage `json:"stages" yaml:"stages"`
}

// StageIDs returns stage ids in gating order.
func (p FullPillar) StageIDs() []string {
    ids := make([]string, len(p.Stages))
    for i, s := range p.Stages {
        ids[i] = s.ID
    }
    return ids
}

// Locate finds the question and the index of the stage that holds it.
func (p FullPillar) Locate(questionID string) (q Question, stageIndex int, ok bool) {
    for i, s := range p.Stages {
        for _, t := range s.Themes {
            for _, q := range t.Questions {
                if q.ID == questionID {
                    return q, i, true
                }
            }
        }
    }
    return Question{}, -1, false
}

// QuestionCount is the number of questions across all stages.
func (p FullPillar) QuestionCount() int {
    n := 0
    for _, s := range p.Stages {
        for _, t := range s.Themes {
            n += len(t.Questions)
        }
    }
    return n
}

// SortStructure orders stages and themes by position. Stores return rows in
// arbitrary order; gating depends on this ordering.
func (p *FullPillar) SortStructure() {
    sort.SliceStable(p.Stages, func(i, j int) bool { return p.Stages[i].Position < p.Stages[j].Position })
    for i := range p.Stages {
        themes := p.Stages[i].Themes
        sort.SliceStable(themes, func(a, b int) bool { return themes[a].Position < themes[b].Position })
    }
}

type Evidence struct {
    Name string `json:"name" yaml:"name"`
    URL  string `json:"url" yaml:"url"`
}

type Answer struct {
    AssessmentID      string     `json:"assessmentId"`
    QuestionID        string     `json:"questionId"`
    CheckedGuidelines []string   `json:"checkedGuidelines"`
    IsQualified       bool       `json:"isQualified"`
    Comments          string     `json:"comments,omitempty"`
    Evidence          []Evidence `json:"evidence,omitempty"`
    UpdatedAt         time.Time  `json:"updatedAt"`
    UpdatedBy         string     `json:"updatedBy,omitempty"`
}

// Clone deep-copies slices so copied answers never alias their source.
func (a Answer) Clone() Answer {
    out := a
    out.CheckedGuidelines = append([]string(nil), a.CheckedGuidelines...)
    out.Evidence = append([]Evidence(nil), a.Evidence...)
    return out
}

type AssessmentType string

const (
    TypeSelfAssessment AssessmentType = "self_assessment"
    TypeModeration     AssessmentType = "moderation"
    TypeBaseline       AssessmentType = "baseline"
)

var validTypes = map[AssessmentType]bool{
    TypeSelfAssessment: true,
    TypeModeration:     true,
    TypeBaseline:       true,
}

func (t AssessmentType) Valid() bool { return validTypes[t] }

type Assessment struct {
    ID                 string             `json:"id"`
    OrgUnitID          string             `json:"orgUnitId"`
    PillarID           string             `json:"pillarId"`
    PeriodID           string             `json:"periodId"`
    Type               AssessmentType     `json:"type"`
    Label              string             `json:"label"`
    IsActive           bool               `json:"isActive"`
    OverallScore       float64            `json:"overallScore"`
    ScoresByStage      map[string]float64 `json:"scoresByStage"`
    ScoresByTheme      map[string]float64 `json:"scoresByTheme"`
    ParentAssessmentID *string            `json:"parentAssessmentId,omitempty"`
    CreatedAt          time.Time          `json:"createdAt"`
    CreatedBy          string             `json:"createdBy,omitempty"`
}

// ApplyScores overwrites the denormalized score fields.
func (a *Assessment) ApplyScores(s ScoreSet) {
    a.OverallScore = s.Overall
    a.ScoresByStage = copyScores(s.PerStage)
    a.ScoresByTheme = copyScores(s.PerTheme)
}

// Scores returns the denormalized score fields as a ScoreSet.
func (a Assessment) Scores() ScoreSet {
    return ScoreSet{Overall: a.OverallScore, PerStage: copyScores(a.ScoresByStage), PerTheme: copyScores(a.ScoresByTheme)}
}

// Editable reports whether answers may be changed at all: moderations and
// the active self-assessment accept edits. Baselines never do.
func (a Assessment) Editable() bool {
    return a.Type == TypeModeration || (a.Type == TypeSelfAssessment && a.IsActive)
}

// ScoreSet is the output of the score calculator.
type ScoreSet struct {
    Overall  float64            `json:"overall"`
    PerStage map[string]float64 `json:"perStage"`
    PerTheme map[string]float64 `json:"perTheme"`
}

func copyScores(in map[string]float64) map[string]float64 {
    out := make(map[string]float64, len(in))
    for k, v := range in {
        out[k] = v
    }
    return out
}

type PeriodStatus string

const (
    PeriodOpen   PeriodStatus = "open"
    PeriodClosed PeriodStatus = "closed"
)

type AssessmentPeriod struct {
    ID          string       `json:"id" yaml:"id"`
    Name        string       `json:"name" yaml:"name"`
    StartDate   time.Time    `json:"startDate" yaml:"startDate"`
    EndDate     time.Time    `json:"endDate" yaml:"endDate"`
    Status      PeriodStatus `json:"status" yaml:"status"`
    TargetLevel OrgLevel     `json:"targetLevel" yaml:"targetLevel"`
    TargetID    string       `json:"targetId,omitempty" yaml:"targetId"`
}

// Covers reports whether the period is open at now for a unit whose
// ancestry (root first, unit last) is given.
func (p AssessmentPeriod) Covers(now time.Time, lineage []string) bool {
    if p.Status != PeriodOpen {
        return false
    }
    if now.Before(p.StartDate) || now.After(p.EndDate) {
        return false
    }
    if p.TargetID == "" {
        return p.TargetLevel == LevelEnterprise
    }
    for _, id := range lineage {
        if id == p.TargetID {
            return true
        }
    }
    return false
}

type OrgLevel int

const (
    LevelEnterprise OrgLevel = 1
    LevelEntity     OrgLevel = 2
    LevelSite       OrgLevel = 3
    LevelDepartment OrgLevel = 4
)

func (l OrgLevel) String() string {
    switch l {
    case LevelEnterprise:
        return "enterprise"
    case LevelEntity:
        return "entity"
    case LevelSite:
        return "site"
    case LevelDepartment:
        return "department"
    }
    return "unknown"
}

type OrgUnit struct {
    ID       string   `json:"id" yaml:"id"`
    Name     string   `json:"name" yaml:"name"`
    Level    OrgLevel `json:"level" yaml:"level"`
    ParentID string   `json:"parentId,omitempty" yaml:"parentId"`
}
