package main

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "go.uber.org/zap"

    httpadapter "maturity/internal/adapters/http"
    "maturity/internal/adapters/memory"
    pg "maturity/internal/adapters/postgres"
    "maturity/internal/cache"
    "maturity/internal/catalog"
    "maturity/internal/config"
    "maturity/internal/logging"
    "maturity/internal/ports"
    "maturity/internal/seed"
    "maturity/internal/services/answers"
    "maturity/internal/services/lifecycle"
    "maturity/internal/services/overview"
    "maturity/internal/workers/overviewrunner"
)

// store is everything the services need from a backend.
type store interface {
    ports.CatalogRepository
    ports.OrgRepository
    ports.PeriodRepository
    ports.AssessmentRepository
}

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "maturity")
    if err != nil {
        log.Fatalf("logger: %v", err)
    }
    defer func() { _ = logger.Sync() }()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    if err := run(ctx, cancel, cfg, logger); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config, logger *zap.Logger) error {
    st, closeStore, err := openStore(ctx, cfg, logger)
    if err != nil {
        return err
    }
    defer closeStore()

    registry, err := catalog.Load(ctx, st, logger)
    if err != nil {
        return fmt.Errorf("loading catalog: %w", err)
    }

    var kv ports.KVStore
    if cfg.RedisAddr != "" {
        client, err := cache.NewRedisClient(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
        if err != nil {
            return fmt.Errorf("redis: %w", err)
        }
        defer client.Close()
        kv = cache.NewRedisKVStore(client)
        logger.Info("overview cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.OverviewCacheTTL))
    }

    lc := lifecycle.New(st, st, st, registry, logger, lifecycle.WithRetries(cfg.ActivationRetries, 0))
    ans := answers.New(st, registry, logger)
    ov := overview.New(registry, st, st, kv, cfg.OverviewCacheTTL, logger)

    go overviewrunner.Run(ctx, overviewrunner.RefresherFunc(func(ctx context.Context) error {
        _, err := ov.Refresh(ctx)
        return err
    }), cfg.OverviewRefreshInterval, logger)

    srv := httpadapter.New(registry, lc, ans, ov, logger)
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())
    httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

    errCh := make(chan error, 1)
    go func() { errCh <- httpSrv.ListenAndServe() }()
    logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        logger.Info("shutting down", zap.String("signal", sig.String()))
        cancel()
        shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
        defer done()
        return httpSrv.Shutdown(shutdownCtx)
    case err := <-errCh:
        if errors.Is(err, http.ErrServerClosed) {
            return nil
        }
        return fmt.Errorf("server error: %w", err)
    }
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store, func(), error) {
    var sd *seed.Seed
    if cfg.CatalogSeedFile != "" {
        s, err := seed.LoadFile(cfg.CatalogSeedFile)
        if err != nil {
            return nil, nil, err
        }
        sd = &s
    }

    if cfg.StoreDriver == config.DriverMemory {
        st := memory.New()
        st.Apply(*sd)
        logger.Info("memory store seeded",
            zap.Int("pillars", len(sd.Pillars)),
            zap.Int("units", len(sd.Units)),
            zap.Int("periods", len(sd.Periods)),
        )
        return st, func() {}, nil
    }

    db, err := pg.Connect(ctx, cfg.DatabaseURL)
    if err != nil {
        return nil, nil, fmt.Errorf("db connect: %w", err)
    }
    if cfg.MigrateOnStart {
        if err := db.Migrate(ctx); err != nil {
            db.Close()
            return nil, nil, fmt.Errorf("migrate: %w", err)
        }
        logger.Info("migrations applied")
    }
    if sd != nil {
        if err := db.ApplySeed(ctx, *sd); err != nil {
            db.Close()
            return nil, nil, fmt.Errorf("seed: %w", err)
        }
        logger.Info("seed applied", zap.String("file", cfg.CatalogSeedFile))
    }
    return db, db.Close, nil
}
