package lifecycle

import (
    "context"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/google/uuid"
    "github.com/sethvargo/go-retry"
    "go.uber.org/zap"

    "maturity/internal/domain"
    "maturity/internal/ports"
    "maturity/internal/scoring"
)

const maxLabelLen = 120

// Service creates, copies, moderates and activates assessments.
type Service struct {
    repo    ports.AssessmentRepository
    org     ports.OrgRepository
    periods ports.PeriodRepository
    catalog ports.Catalog
    log     *zap.Logger

    now     func() time.Time
    retries uint64
    backoff time.Duration
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRetries bounds how often a lost activation race is retried.
func WithRetries(n int, base time.Duration) Option {
    return func(s *Service) {
        if n < 0 {
            n = 0
        }
        s.retries = uint64(n)
        if base > 0 {
            s.backoff = base
        }
    }
}

func New(repo ports.AssessmentRepository, org ports.OrgRepository, periods ports.PeriodRepository, catalog ports.Catalog, log *zap.Logger, opts ...Option) *Service {
    s := &Service{
        repo:    repo,
        org:     org,
        periods: periods,
        catalog: catalog,
        log:     log,
        now:     time.Now,
        retries: 3,
        backoff: 20 * time.Millisecond,
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

type BlankInput struct {
    OrgUnitID string
    PillarID  string
    PeriodID  string
    Label     string
    CreatedBy string
}

// CreateBlank starts an empty self-assessment and makes it the active one
// for its unit and pillar.
func (s *Service) CreateBlank(ctx context.Context, in BlankInput) (domain.Assessment, error) {
    const op = "lifecycle.create_blank"
    label, err := cleanLabel(op, in.Label)
    if err != nil {
        return domain.Assessment{}, err
    }
    pillar, ok := s.catalog.Pillar(in.PillarID)
    if !ok {
        return domain.Assessment{}, domain.Validation(op, domain.RuleUnknownPillar, "pillar %q is not in the catalog", in.PillarID)
    }
    lineage, err := s.departmentLineage(ctx, op, in.OrgUnitID)
    if err != nil {
        return domain.Assessment{}, err
    }
    period, err := s.periods.GetPeriod(ctx, in.PeriodID)
    if err != nil {
        return domain.Assessment{}, err
    }
    now := s.now()
    if !period.Covers(now, unitIDs(lineage)) {
        return domain.Assessment{}, domain.Validation(op, domain.RuleNoOpenPeriod,
            "period %q is not open for unit %q at %s", period.Name, in.OrgUnitID, now.UTC().Format(time.RFC3339))
    }

    a := domain.Assessment{
        ID:        uuid.NewString(),
        OrgUnitID: in.OrgUnitID,
        PillarID:  pillar.ID,
        PeriodID:  period.ID,
        Type:      domain.TypeSelfAssessment,
        Label:     label,
        IsActive:  true,
        CreatedAt: now.UTC(),
        CreatedBy: in.CreatedBy,
    }
    a.ApplyScores(scoring.ComputeScores(nil, pillar))
    if err := s.withRetry(ctx, op, func(ctx context.Context) error {
        return s.repo.CreateActiveSelf(ctx, a, nil)
    }); err != nil {
        return domain.Assessment{}, err
    }
    s.log.Info("self-assessment created",
        zap.String("assessment_id", a.ID),
        zap.String("org_unit_id", a.OrgUnitID),
        zap.String("pillar_id", a.PillarID),
        zap.String("period_id", a.PeriodID),
    )
    return a, nil
}

// CreateFromCopy starts a new active self-assessment whose answers duplicate
// the source verbatim, in the period currently open for the source's unit.
func (s *Service) CreateFromCopy(ctx context.Context, sourceID, label, createdBy string) (domain.Assessment, error) {
    const op = "lifecycle.create_from_copy"
    src, err := s.repo.GetAssessment(ctx, sourceID)
    if err != nil {
        return domain.Assessment{}, err
    }
    label, err = cleanLabel(op, label)
    if err != nil {
        return domain.Assessment{}, err
    }
    lineage, err := s.departmentLineage(ctx, op, src.OrgUnitID)
    if err != nil {
        return domain.Assessment{}, err
    }
    now := s.now()
    period, err := s.openPeriodFor(ctx, op, lineage, now)
    if err != nil {
        return domain.Assessment{}, err
    }
    answers, scores, err := s.copyAnswers(ctx, op, src)
    if err != nil {
        return domain.Assessment{}, err
    }

    a := domain.Assessment{
        ID:        uuid.NewString(),
        OrgUnitID: src.OrgUnitID,
        PillarID:  src.PillarID,
        PeriodID:  period.ID,
        Type:      domain.TypeSelfAssessment,
        Label:     label,
        IsActive:  true,
        CreatedAt: now.UTC(),
        CreatedBy: createdBy,
    }
    a.ApplyScores(scores)
    if err := s.withRetry(ctx, op, func(ctx context.Context) error {
        return s.repo.CreateActiveSelf(ctx, a, answers)
    }); err != nil {
        return domain.Assessment{}, err
    }
    s.log.Info("self-assessment copied",
        zap.String("assessment_id", a.ID),
        zap.String("source_id", src.ID),
        zap.Int("answers", len(answers)),
    )
    return a, nil
}

// CreateModeration opens an inactive auditor copy of source. No other
// assessment changes activation.
func (s *Service) CreateModeration(ctx context.Context, sourceID, label, createdBy string) (domain.Assessment, error) {
    const op = "lifecycle.create_moderation"
    src, err := s.repo.GetAssessment(ctx, sourceID)
    if err != nil {
        return domain.Assessment{}, err
    }
    if src.Type == domain.TypeModeration {
        return domain.Assessment{}, domain.Validation(op, domain.RuleModerationSource,
            "assessment %q is already a moderation", src.ID)
    }
    label, err = cleanLabel(op, label)
    if err != nil {
        return domain.Assessment{}, err
    }
    answers, scores, err := s.copyAnswers(ctx, op, src)
    if err != nil {
        return domain.Assessment{}, err
    }
    parent := src.ID
    a := domain.Assessment{
        ID:                 uuid.NewString(),
        OrgUnitID:          src.OrgUnitID,
        PillarID:           src.PillarID,
        PeriodID:           src.PeriodID,
        Type:               domain.TypeModeration,
        Label:              label,
        IsActive:           false,
        ParentAssessmentID: &parent,
        CreatedAt:          s.now().UTC(),
        CreatedBy:          createdBy,
    }
    a.ApplyScores(scores)
    if err := s.repo.CreateDetached(ctx, a, answers); err != nil {
        return domain.Assessment{}, err
    }
    s.log.Info("moderation created",
        zap.String("assessment_id", a.ID),
        zap.String("parent_id", parent),
    )
    return a, nil
}

// SetActive makes id the active assessment of its unit and pillar, keeping
// its type.
func (s *Service) SetActive(ctx context.Context, id string) (domain.Assessment, error) {
    const op = "lifecycle.set_active"
    target, err := s.repo.GetAssessment(ctx, id)
    if err != nil {
        return domain.Assessment{}, err
    }
    if target.Type == domain.TypeBaseline {
        return domain.Assessment{}, domain.Validation(op, domain.RuleActivateBaseline,
            "assessment %q is a baseline and cannot be activated", id)
    }
    var out domain.Assessment
    err = s.withRetry(ctx, op, func(ctx context.Context) error {
        a, err := s.repo.Activate(ctx, id)
        out = a
        return err
    })
    if err != nil {
        return domain.Assessment{}, err
    }
    s.log.Info("assessment activated", zap.String("assessment_id", id), zap.String("type", string(out.Type)))
    return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Assessment, error) {
    return s.repo.GetAssessment(ctx, id)
}

func (s *Service) List(ctx context.Context, f ports.AssessmentFilter) ([]domain.Assessment, error) {
    return s.repo.ListAssessments(ctx, f)
}

func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
    b := retry.WithMaxRetries(s.retries, retry.NewExponential(s.backoff))
    attempt := 0
    return retry.Do(ctx, b, func(ctx context.Context) error {
        attempt++
        err := fn(ctx)
        if domain.IsConflict(err) {
            s.log.Warn("activation race lost",
                zap.String("op", op),
                zap.Int("attempt", attempt),
                zap.Error(err),
            )
            return retry.RetryableError(err)
        }
        return err
    })
}

func (s *Service) departmentLineage(ctx context.Context, op, unitID string) ([]domain.OrgUnit, error) {
    lineage, err := s.org.Lineage(ctx, unitID)
    if err != nil {
        return nil, err
    }
    unit := lineage[len(lineage)-1]
    if unit.Level != domain.LevelDepartment {
        return nil, domain.Validation(op, domain.RuleNotDepartment,
            "unit %q is a %s; assessments belong to departments", unit.ID, unit.Level)
    }
    return lineage, nil
}

func (s *Service) openPeriodFor(ctx context.Context, op string, lineage []domain.OrgUnit, now time.Time) (domain.AssessmentPeriod, error) {
    open, err := s.periods.ListOpenPeriods(ctx, now)
    if err != nil {
        return domain.AssessmentPeriod{}, err
    }
    ids := unitIDs(lineage)
    for _, p := range open {
        if p.Covers(now, ids) {
            return p, nil
        }
    }
    unit := lineage[len(lineage)-1]
    return domain.AssessmentPeriod{}, domain.Validation(op, domain.RuleNoOpenPeriod, "no open period covers unit %q", unit.ID)
}

// copyAnswers duplicates the source's answers and scores them afresh, so the
// copy's score fields always match the answers it was given.
func (s *Service) copyAnswers(ctx context.Context, op string, src domain.Assessment) ([]domain.Answer, domain.ScoreSet, error) {
    pillar, ok := s.catalog.Pillar(src.PillarID)
    if !ok {
        return nil, domain.ScoreSet{}, domain.Validation(op, domain.RuleUnknownPillar,
            "assessment %q references unknown pillar %q", src.ID, src.PillarID)
    }
    m, err := s.repo.ListAnswers(ctx, src.ID)
    if err != nil {
        return nil, domain.ScoreSet{}, err
    }
    out := make([]domain.Answer, 0, len(m))
    for _, a := range m {
        out = append(out, a.Clone())
    }
    return out, scoring.ComputeScores(m, pillar), nil
}

func cleanLabel(op, label string) (string, error) {
    label = strings.TrimSpace(label)
    if label == "" || utf8.RuneCountInString(label) > maxLabelLen {
        return "", domain.Validation(op, domain.RuleLabel, "label must be 1-%d characters", maxLabelLen)
    }
    return label, nil
}

func unitIDs(lineage []domain.OrgUnit) []string {
    ids := make([]string, len(lineage))
    for i, u := range lineage {
        ids[i] = u.ID
    }
    return ids
}
