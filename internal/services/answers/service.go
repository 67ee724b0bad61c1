package answers

import (
    "context"
    "sort"
    "time"

    "go.uber.org/zap"

    "maturity/internal/domain"
    "maturity/internal/ports"
    "maturity/internal/scoring"
)

// Patch carries the fields an editor changes; nil fields keep their value.
type Patch struct {
    CheckedGuidelines *[]string
    IsQualified       *bool
    Comments          *string
    Evidence          *[]domain.Evidence
    UpdatedBy         string
}

// Sheet is the read view of one assessment with live stage gating.
type Sheet struct {
    Assessment     domain.Assessment        `json:"assessment"`
    Answers        map[string]domain.Answer `json:"answers"`
    Scores         domain.ScoreSet          `json:"liveScores"`
    EditableStages map[string]bool          `json:"editableStages"`
}

type Service struct {
    repo    ports.AssessmentRepository
    catalog ports.Catalog
    log     *zap.Logger
    now     func() time.Time
}

func New(repo ports.AssessmentRepository, catalog ports.Catalog, log *zap.Logger) *Service {
    return &Service{repo: repo, catalog: catalog, log: log, now: time.Now}
}

// Update applies p to one answer. Gating is evaluated against the answers as
// they are inside the write transaction, and the rescored fields are stored
// with the answer.
func (s *Service) Update(ctx context.Context, assessmentID, questionID string, p Patch) (domain.Assessment, domain.Answer, error) {
    const op = "answers.update"
    current, err := s.repo.GetAssessment(ctx, assessmentID)
    if err != nil {
        return domain.Assessment{}, domain.Answer{}, err
    }
    pillar, ok := s.catalog.Pillar(current.PillarID)
    if !ok {
        return domain.Assessment{}, domain.Answer{}, domain.Validation(op, domain.RuleUnknownPillar,
            "assessment %q references unknown pillar %q", assessmentID, current.PillarID)
    }
    q, stageIdx, ok := pillar.Locate(questionID)
    if !ok {
        return domain.Assessment{}, domain.Answer{}, domain.NotFound(op, "question", questionID)
    }

    a, ans, err := s.repo.UpdateAnswer(ctx, assessmentID, func(a domain.Assessment, answers map[string]domain.Answer) (domain.Answer, domain.ScoreSet, error) {
        if !a.Editable() {
            return domain.Answer{}, domain.ScoreSet{}, domain.Policy(op, domain.RuleAssessmentReadOnly,
                "assessment %q (%s, active=%t) is read-only", a.ID, a.Type, a.IsActive)
        }
        live := scoring.ComputeScores(answers, pillar)
        if err := scoring.CheckStage(op, pillar, stageIdx, live.PerStage); err != nil {
            return domain.Answer{}, domain.ScoreSet{}, err
        }
        next, err := applyPatch(op, q, answers[q.ID], p)
        if err != nil {
            return domain.Answer{}, domain.ScoreSet{}, err
        }
        next.UpdatedAt = s.now().UTC()
        next.UpdatedBy = p.UpdatedBy
        answers[q.ID] = next
        return next, scoring.ComputeScores(answers, pillar), nil
    })
    if err != nil {
        return domain.Assessment{}, domain.Answer{}, err
    }
    s.log.Debug("answer updated",
        zap.String("assessment_id", assessmentID),
        zap.String("question_id", questionID),
        zap.Bool("qualified", ans.IsQualified),
        zap.Float64("overall", a.OverallScore),
    )
    return a, ans, nil
}

// Sheet returns the assessment, its answers and which stages may be edited.
func (s *Service) Sheet(ctx context.Context, assessmentID string) (Sheet, error) {
    a, err := s.repo.GetAssessment(ctx, assessmentID)
    if err != nil {
        return Sheet{}, err
    }
    answers, err := s.repo.ListAnswers(ctx, assessmentID)
    if err != nil {
        return Sheet{}, err
    }
    pillar, ok := s.catalog.Pillar(a.PillarID)
    if !ok {
        return Sheet{}, domain.Validation("answers.sheet", domain.RuleUnknownPillar,
            "assessment %q references unknown pillar %q", assessmentID, a.PillarID)
    }
    live := scoring.ComputeScores(answers, pillar)
    editable := scoring.EditableStages(live.PerStage, pillar.StageIDs())
    if !a.Editable() {
        for id := range editable {
            editable[id] = false
        }
    }
    return Sheet{Assessment: a, Answers: answers, Scores: live, EditableStages: editable}, nil
}

// applyPatch merges p over cur and enforces the qualification rule: an answer
// is qualified only when every guideline is checked.
func applyPatch(op string, q domain.Question, cur domain.Answer, p Patch) (domain.Answer, error) {
    next := cur.Clone()
    next.QuestionID = q.ID
    if p.CheckedGuidelines != nil {
        checked, err := normalizeGuidelines(op, q, *p.CheckedGuidelines)
        if err != nil {
            return domain.Answer{}, err
        }
        next.CheckedGuidelines = checked
    }
    complete := len(next.CheckedGuidelines) == len(q.AuditGuidelines)
    if p.IsQualified != nil {
        if *p.IsQualified && !complete {
            return domain.Answer{}, domain.Validation(op, domain.RuleGuidelineComplete,
                "question %q can be qualified only with all %d guidelines checked (%d checked)",
                q.Code, len(q.AuditGuidelines), len(next.CheckedGuidelines))
        }
        next.IsQualified = *p.IsQualified
    }
    if !complete {
        next.IsQualified = false
    }
    if p.Comments != nil {
        next.Comments = *p.Comments
    }
    if p.Evidence != nil {
        next.Evidence = append([]domain.Evidence(nil), (*p.Evidence)...)
    }
    return next, nil
}

// normalizeGuidelines drops duplicates, rejects unknown entries and orders
// the result like the question's guideline list.
func normalizeGuidelines(op string, q domain.Question, checked []string) ([]string, error) {
    want := make(map[string]bool, len(checked))
    for _, g := range checked {
        want[g] = true
    }
    out := make([]string, 0, len(want))
    for _, g := range q.AuditGuidelines {
        if want[g] {
            out = append(out, g)
            delete(want, g)
        }
    }
    if len(want) > 0 {
        unknown := make([]string, 0, len(want))
        for g := range want {
            unknown = append(unknown, g)
        }
        sort.Strings(unknown)
        return nil, domain.Validation(op, domain.RuleUnknownGuideline, "guidelines %q do not belong to question %q", unknown, q.Code)
    }
    return out, nil
}
