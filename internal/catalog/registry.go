// Package catalog loads the questionnaire structure once at startup and
// serves it as immutable input to scoring.
package catalog

import (
    "context"
    "fmt"
    "sort"

    "go.uber.org/zap"

    "maturity/internal/domain"
    "maturity/internal/ports"
)

// Registry holds every pillar keyed by id and by code. It is read-only after
// Load returns and safe for concurrent use.
type Registry struct {
    byID   map[string]domain.FullPillar
    byCode map[string]string
    order  []domain.Pillar
}

// Load reads all pillars from repo and validates their structure.
func Load(ctx context.Context, repo ports.CatalogRepository, log *zap.Logger) (*Registry, error) {
    pillars, err := repo.ListPillars(ctx)
    if err != nil {
        return nil, fmt.Errorf("listing pillars: %w", err)
    }
    r := &Registry{byID: map[string]domain.FullPillar{}, byCode: map[string]string{}}
    for _, p := range pillars {
        full, err := repo.LoadPillar(ctx, p.ID)
        if err != nil {
            return nil, fmt.Errorf("loading pillar %s: %w", p.Code, err)
        }
        if err := r.add(full); err != nil {
            return nil, err
        }
        log.Info("pillar loaded",
            zap.String("pillar_id", full.ID),
            zap.String("code", full.Code),
            zap.Int("stages", len(full.Stages)),
            zap.Int("questions", full.QuestionCount()),
        )
    }
    return r, nil
}

// New builds a registry from in-memory pillars.
func New(pillars ...domain.FullPillar) (*Registry, error) {
    r := &Registry{byID: map[string]domain.FullPillar{}, byCode: map[string]string{}}
    for _, p := range pillars {
        if err := r.add(p); err != nil {
            return nil, err
        }
    }
    return r, nil
}

func (r *Registry) add(p domain.FullPillar) error {
    if p.ID == "" {
        return fmt.Errorf("pillar %q has no id", p.Code)
    }
    if _, dup := r.byID[p.ID]; dup {
        return fmt.Errorf("duplicate pillar id %s", p.ID)
    }
    if _, dup := r.byCode[p.Code]; dup && p.Code != "" {
        return fmt.Errorf("duplicate pillar code %s", p.Code)
    }
    p.SortStructure()
    if err := validate(p); err != nil {
        return fmt.Errorf("pillar %s: %w", p.Code, err)
    }
    r.byID[p.ID] = p
    if p.Code != "" {
        r.byCode[p.Code] = p.ID
    }
    r.order = append(r.order, p.Pillar)
    sort.SliceStable(r.order, func(i, j int) bool { return r.order[i].Code < r.order[j].Code })
    return nil
}

func validate(p domain.FullPillar) error {
    seen := map[string]bool{}
    for _, s := range p.Stages {
        for _, t := range s.Themes {
            for _, q := range t.Questions {
                if seen[q.ID] {
                    return fmt.Errorf("question %s appears twice", q.ID)
                }
                seen[q.ID] = true
                guide := map[string]bool{}
                for _, g := range q.AuditGuidelines {
                    if guide[g] {
                        return fmt.Errorf("question %s repeats guideline %q", q.Code, g)
                    }
                    guide[g] = true
                }
            }
        }
    }
    return nil
}

// Pillars lists pillar headers ordered by code.
func (r *Registry) Pillars() []domain.Pillar {
    return append([]domain.Pillar(nil), r.order...)
}

// Pillar returns the full tree for a pillar id.
func (r *Registry) Pillar(id string) (domain.FullPillar, bool) {
    p, ok := r.byID[id]
    return p, ok
}

// ByCode resolves a pillar by its code.
func (r *Registry) ByCode(code string) (domain.FullPillar, bool) {
    id, ok := r.byCode[code]
    if !ok {
        return domain.FullPillar{}, false
    }
    return r.Pillar(id)
}
