// Package memory is an in-process store used for local runs and service
// tests. One mutex guards everything, which makes every repository method
// trivially atomic.
package memory

import (
    "context"
    "sort"
    "sync"
    "time"

    "maturity/internal/domain"
    "maturity/internal/ports"
)

type Store struct {
    mu sync.RWMutex

    pillars     map[string]domain.FullPillar
    units       map[string]domain.OrgUnit
    periods     map[string]domain.AssessmentPeriod
    assessments map[string]domain.Assessment
    answers     map[string]map[string]domain.Answer // assessmentID -> questionID -> answer
}

func New() *Store {
    return &Store{
        pillars:     map[string]domain.FullPillar{},
        units:       map[string]domain.OrgUnit{},
        periods:     map[string]domain.AssessmentPeriod{},
        assessments: map[string]domain.Assessment{},
        answers:     map[string]map[string]domain.Answer{},
    }
}

var (
    _ ports.CatalogRepository    = (*Store)(nil)
    _ ports.OrgRepository        = (*Store)(nil)
    _ ports.PeriodRepository     = (*Store)(nil)
    _ ports.AssessmentRepository = (*Store)(nil)
)

// ---- seeding ----

func (s *Store) PutPillar(p domain.FullPillar) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.pillars[p.ID] = p
}

func (s *Store) PutUnit(u domain.OrgUnit) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.units[u.ID] = u
}

func (s *Store) PutPeriod(p domain.AssessmentPeriod) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.periods[p.ID] = p
}

// PutAssessment stores a record as-is, bypassing activation rules. Used for
// imports and tests.
func (s *Store) PutAssessment(a domain.Assessment, answers ...domain.Answer) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.insertLocked(a, answers)
}

// ---- catalog ----

func (s *Store) ListPillars(_ context.Context) ([]domain.Pillar, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]domain.Pillar, 0, len(s.pillars))
    for _, p := range s.pillars {
        out = append(out, p.Pillar)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
    return out, nil
}

func (s *Store) LoadPillar(_ context.Context, pillarID string) (domain.FullPillar, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    p, ok := s.pillars[pillarID]
    if !ok {
        return domain.FullPillar{}, domain.NotFound("catalog.load", "pillar", pillarID)
    }
    return p, nil
}

// ---- org ----

func (s *Store) ListUnits(_ context.Context) ([]domain.OrgUnit, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]domain.OrgUnit, 0, len(s.units))
    for _, u := range s.units {
        out = append(out, u)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *Store) Lineage(_ context.Context, unitID string) ([]domain.OrgUnit, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    u, ok := s.units[unitID]
    if !ok {
        return nil, domain.NotFound("org.lineage", "org unit", unitID)
    }
    chain := []domain.OrgUnit{u}
    seen := map[string]bool{u.ID: true}
    for u.ParentID != "" {
        parent, ok := s.units[u.ParentID]
        if !ok || seen[parent.ID] {
            break
        }
        seen[parent.ID] = true
        chain = append(chain, parent)
        u = parent
    }
    for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
        chain[i], chain[j] = chain[j], chain[i]
    }
    return chain, nil
}

// ---- periods ----

func (s *Store) GetPeriod(_ context.Context, periodID string) (domain.AssessmentPeriod, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    p, ok := s.periods[periodID]
    if !ok {
        return domain.AssessmentPeriod{}, domain.NotFound("periods.get", "period", periodID)
    }
    return p, nil
}

func (s *Store) ListOpenPeriods(_ context.Context, at time.Time) ([]domain.AssessmentPeriod, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var out []domain.AssessmentPeriod
    for _, p := range s.periods {
        if p.Status == domain.PeriodOpen && !at.Before(p.StartDate) && !at.After(p.EndDate) {
            out = append(out, p)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
    return out, nil
}

// ---- assessments ----

func (s *Store) GetAssessment(_ context.Context, id string) (domain.Assessment, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    a, ok := s.assessments[id]
    if !ok {
        return domain.Assessment{}, domain.NotFound("assessments.get", "assessment", id)
    }
    return cloneAssessment(a), nil
}

func (s *Store) ListAssessments(_ context.Context, f ports.AssessmentFilter) ([]domain.Assessment, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var out []domain.Assessment
    for _, a := range s.assessments {
        if f.OrgUnitID != "" && a.OrgUnitID != f.OrgUnitID {
            continue
        }
        if f.PillarID != "" && a.PillarID != f.PillarID {
            continue
        }
        out = append(out, cloneAssessment(a))
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (s *Store) ListAnswers(_ context.Context, assessmentID string) (map[string]domain.Answer, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if _, ok := s.assessments[assessmentID]; !ok {
        return nil, domain.NotFound("answers.list", "assessment", assessmentID)
    }
    return s.answersCopyLocked(assessmentID), nil
}

func (s *Store) CreateActiveSelf(_ context.Context, a domain.Assessment, answers []domain.Answer) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.deactivateSelfLocked(a.OrgUnitID, a.PillarID, "")
    a.Type = domain.TypeSelfAssessment
    a.IsActive = true
    s.insertLocked(a, answers)
    return nil
}

func (s *Store) CreateDetached(_ context.Context, a domain.Assessment, answers []domain.Answer) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.insertLocked(a, answers)
    return nil
}

func (s *Store) Activate(_ context.Context, id string) (domain.Assessment, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    a, ok := s.assessments[id]
    if !ok {
        return domain.Assessment{}, domain.NotFound("assessments.activate", "assessment", id)
    }
    s.deactivateSelfLocked(a.OrgUnitID, a.PillarID, id)
    a.IsActive = true
    s.assessments[id] = a
    return cloneAssessment(a), nil
}

func (s *Store) UpdateAnswer(_ context.Context, assessmentID string, fn ports.AnswerMutation) (domain.Assessment, domain.Answer, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    a, ok := s.assessments[assessmentID]
    if !ok {
        return domain.Assessment{}, domain.Answer{}, domain.NotFound("answers.update", "assessment", assessmentID)
    }
    ans, scores, err := fn(cloneAssessment(a), s.answersCopyLocked(assessmentID))
    if err != nil {
        return domain.Assessment{}, domain.Answer{}, err
    }
    ans.AssessmentID = assessmentID
    if s.answers[assessmentID] == nil {
        s.answers[assessmentID] = map[string]domain.Answer{}
    }
    s.answers[assessmentID][ans.QuestionID] = ans.Clone()
    a.ApplyScores(scores)
    s.assessments[assessmentID] = a
    return cloneAssessment(a), ans, nil
}

func (s *Store) deactivateSelfLocked(unitID, pillarID, keep string) {
    for id, a := range s.assessments {
        if id == keep || !a.IsActive || a.Type != domain.TypeSelfAssessment {
            continue
        }
        if a.OrgUnitID == unitID && a.PillarID == pillarID {
            a.IsActive = false
            s.assessments[id] = a
        }
    }
}

func (s *Store) insertLocked(a domain.Assessment, answers []domain.Answer) {
    s.assessments[a.ID] = cloneAssessment(a)
    m := make(map[string]domain.Answer, len(answers))
    for _, ans := range answers {
        ans.AssessmentID = a.ID
        m[ans.QuestionID] = ans.Clone()
    }
    s.answers[a.ID] = m
}

func (s *Store) answersCopyLocked(assessmentID string) map[string]domain.Answer {
    src := s.answers[assessmentID]
    out := make(map[string]domain.Answer, len(src))
    for k, v := range src {
        out[k] = v.Clone()
    }
    return out
}

func cloneAssessment(a domain.Assessment) domain.Assessment {
    a.ApplyScores(a.Scores())
    if a.ParentAssessmentID != nil {
        p := *a.ParentAssessmentID
        a.ParentAssessmentID = &p
    }
    return a
}
