package overview

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "maturity/internal/domain"
    "maturity/internal/ports"
)

// CacheKey is where the latest snapshot is stored.
const CacheKey = "maturity:overview:v1"

// Snapshot is the cached roll-up together with its build time.
type Snapshot struct {
    Overview
    GeneratedAt time.Time `json:"generatedAt"`
}

// Service builds point-in-time roll-ups. Snapshots may lag concurrent
// answer edits until the next refresh.
type Service struct {
    catalog ports.Catalog
    org     ports.OrgRepository
    repo    ports.AssessmentRepository
    cache   ports.KVStore
    ttl     time.Duration
    log     *zap.Logger
    now     func() time.Time
}

// New returns a service; cache may be nil to always rebuild.
func New(catalog ports.Catalog, org ports.OrgRepository, repo ports.AssessmentRepository, cache ports.KVStore, ttl time.Duration, log *zap.Logger) *Service {
    return &Service{catalog: catalog, org: org, repo: repo, cache: cache, ttl: ttl, log: log, now: time.Now}
}

// Get serves the cached snapshot, rebuilding on a miss.
func (s *Service) Get(ctx context.Context) (Snapshot, error) {
    if s.cache != nil {
        raw, err := s.cache.Get(ctx, CacheKey)
        switch {
        case err == nil:
            var snap Snapshot
            uerr := json.Unmarshal([]byte(raw), &snap)
            if uerr == nil {
                return snap, nil
            }
            s.log.Warn("discarding unreadable overview snapshot", zap.Error(uerr))
        case !errors.Is(err, ports.ErrCacheMiss):
            s.log.Warn("overview cache read failed", zap.Error(err))
        }
    }
    return s.Refresh(ctx)
}

// Refresh rebuilds the roll-up from the stores and overwrites the cache.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
    var (
        units       []domain.OrgUnit
        assessments []domain.Assessment
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        var err error
        units, err = s.org.ListUnits(gctx)
        return err
    })
    g.Go(func() error {
        var err error
        assessments, err = s.repo.ListAssessments(gctx, ports.AssessmentFilter{})
        return err
    })
    if err := g.Wait(); err != nil {
        return Snapshot{}, err
    }

    start := s.now()
    snap := Snapshot{
        Overview:    BuildOverview(units, assessments, s.catalog.Pillars()),
        GeneratedAt: start.UTC(),
    }
    for _, d := range snap.Diagnostics {
        s.log.Warn("overview input skipped",
            zap.String("kind", string(d.Kind)),
            zap.String("org_unit_id", d.OrgUnitID),
            zap.String("assessment_id", d.AssessmentID),
            zap.String("pillar_id", d.PillarID),
            zap.String("reason", d.Message),
        )
    }
    s.log.Info("overview built",
        zap.Int("units", len(units)),
        zap.Int("assessments", len(assessments)),
        zap.Int("diagnostics", len(snap.Diagnostics)),
        zap.Duration("took", s.now().Sub(start)),
    )

    if s.cache != nil {
        raw, err := json.Marshal(snap)
        if err == nil {
            err = s.cache.Set(ctx, CacheKey, string(raw), s.ttl)
        }
        if err != nil {
            s.log.Warn("overview cache write failed", zap.Error(err))
        }
    }
    return snap, nil
}
