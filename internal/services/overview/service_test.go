package overview

import (
    "context"
    "encoding/json"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "maturity/internal/adapters/memory"
    "maturity/internal/catalog"
    "maturity/internal/domain"
    "maturity/internal/ports"
)

type mapKV struct {
    mu   sync.Mutex
    data map[string]string
    ttl  time.Duration
    sets int
}

func newMapKV() *mapKV { return &mapKV{data: map[string]string{}} }

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v, ok := m.data[key]
    if !ok {
        return "", ports.ErrCacheMiss
    }
    return v, nil
}

func (m *mapKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.data[key] = value
    m.ttl = ttl
    m.sets++
    return nil
}

func newOverviewService(t *testing.T, kv ports.KVStore) (*Service, *memory.Store) {
    t.Helper()
    st := memory.New()
    for _, u := range units() {
        st.PutUnit(u)
    }
    reg, err := catalog.New(
        domain.FullPillar{Pillar: domain.Pillar{ID: "A", Code: "A"}},
        domain.FullPillar{Pillar: domain.Pillar{ID: "B", Code: "B"}},
    )
    require.NoError(t, err)
    return New(reg, st, st, kv, time.Minute, zap.NewNop()), st
}

func TestGetCachesSnapshot(t *testing.T) {
    kv := newMapKV()
    svc, st := newOverviewService(t, kv)
    ctx := context.Background()
    st.PutAssessment(scored("x", "d1", "A", domain.TypeSelfAssessment, true, 3, map[string]float64{"s1": 3}))

    snap, err := svc.Get(ctx)
    require.NoError(t, err)
    assert.Equal(t, 3.0, snap.Root.Scores["A"].Score)
    assert.Equal(t, 1, kv.sets)
    assert.Equal(t, time.Minute, kv.ttl)

    st.PutAssessment(scored("m", "d1", "A", domain.TypeModeration, false, 5, nil))
    cached, err := svc.Get(ctx)
    require.NoError(t, err)
    assert.Equal(t, 3.0, cached.Root.Scores["A"].Score, "served from cache")
    assert.Equal(t, 3.0, cached.Root.Find("d1").Scores["A"].Stages["s1"])

    fresh, err := svc.Refresh(ctx)
    require.NoError(t, err)
    assert.Equal(t, 5.0, fresh.Root.Scores["A"].Score)
    again, err := svc.Get(ctx)
    require.NoError(t, err)
    assert.Equal(t, 5.0, again.Root.Scores["A"].Score)
}

func TestGetRebuildsUnreadableEntry(t *testing.T) {
    kv := newMapKV()
    kv.data[CacheKey] = "{not json"
    svc, _ := newOverviewService(t, kv)

    snap, err := svc.Get(context.Background())
    require.NoError(t, err)
    assert.Equal(t, "ent", snap.Root.ID)

    var decoded Snapshot
    require.NoError(t, json.Unmarshal([]byte(kv.data[CacheKey]), &decoded))
    assert.Equal(t, "ent", decoded.Root.ID)
}

func TestGetWithoutCache(t *testing.T) {
    svc, _ := newOverviewService(t, nil)
    fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
    svc.now = func() time.Time { return fixed }

    snap, err := svc.Get(context.Background())
    require.NoError(t, err)
    assert.Equal(t, fixed, snap.GeneratedAt)
}

type failingOrg struct{ ports.OrgRepository }

func (failingOrg) ListUnits(context.Context) ([]domain.OrgUnit, error) {
    return nil, errors.New("connection refused")
}

func TestRefreshPropagatesLoadErrors(t *testing.T) {
    svc, _ := newOverviewService(t, newMapKV())
    svc.org = failingOrg{}
    _, err := svc.Refresh(context.Background())
    assert.ErrorContains(t, err, "connection refused")
}
