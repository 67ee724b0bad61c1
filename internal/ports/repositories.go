package ports

import (
    "context"
    "time"

    "maturity/internal/domain"
)

// CatalogRepository reads the questionnaire structure.
type CatalogRepository interface {
    ListPillars(ctx context.Context) ([]domain.Pillar, error)
    LoadPillar(ctx context.Context, pillarID string) (domain.FullPillar, error)
}

// OrgRepository reads the organizational tree.
type OrgRepository interface {
    ListUnits(ctx context.Context) ([]domain.OrgUnit, error)
    // Lineage returns the unit's ancestors root first, ending with the unit itself.
    Lineage(ctx context.Context, unitID string) ([]domain.OrgUnit, error)
}

// PeriodRepository reads assessment periods.
type PeriodRepository interface {
    GetPeriod(ctx context.Context, periodID string) (domain.AssessmentPeriod, error)
    ListOpenPeriods(ctx context.Context, at time.Time) ([]domain.AssessmentPeriod, error)
}

// AssessmentFilter narrows List; empty fields match everything.
type AssessmentFilter struct {
    OrgUnitID string
    PillarID  string
}

// AnswerMutation receives the locked assessment and its current answers and
// returns the answer to store together with the recomputed score fields.
type AnswerMutation func(a domain.Assessment, answers map[string]domain.Answer) (domain.Answer, domain.ScoreSet, error)

// AssessmentRepository persists assessments and their answers. Methods that
// change activation must run the deactivate/activate pair atomically and
// return a domain conflict error when a concurrent caller wins.
type AssessmentRepository interface {
    GetAssessment(ctx context.Context, id string) (domain.Assessment, error)
    ListAssessments(ctx context.Context, f AssessmentFilter) ([]domain.Assessment, error)
    ListAnswers(ctx context.Context, assessmentID string) (map[string]domain.Answer, error)

    // CreateActiveSelf inserts a as the active self-assessment of its
    // (unit, pillar) with the given answers, deactivating the previous one.
    CreateActiveSelf(ctx context.Context, a domain.Assessment, answers []domain.Answer) error
    // CreateDetached inserts a without touching any other assessment.
    CreateDetached(ctx context.Context, a domain.Assessment, answers []domain.Answer) error
    // Activate deactivates the active self-assessment of the target's
    // (unit, pillar) and marks the target active.
    Activate(ctx context.Context, id string) (domain.Assessment, error)

    // UpdateAnswer locks the assessment, applies fn and stores the answer
    // and score fields in one transaction.
    UpdateAnswer(ctx context.Context, assessmentID string, fn AnswerMutation) (domain.Assessment, domain.Answer, error)
}
