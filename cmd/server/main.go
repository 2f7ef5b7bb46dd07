package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/rs/zerolog"

    "github.com/iliyamo/miniapp-auth/internal/auth"
    "github.com/iliyamo/miniapp-auth/internal/config"
    "github.com/iliyamo/miniapp-auth/internal/database"
    "github.com/iliyamo/miniapp-auth/internal/handler"
    "github.com/iliyamo/miniapp-auth/internal/logger"
    "github.com/iliyamo/miniapp-auth/internal/metrics"
    "github.com/iliyamo/miniapp-auth/internal/middleware"
    "github.com/iliyamo/miniapp-auth/internal/queue"
    "github.com/iliyamo/miniapp-auth/internal/repository"
    "github.com/iliyamo/miniapp-auth/internal/router"
    "github.com/iliyamo/miniapp-auth/internal/service"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg.Env, cfg.LogLevel, os.Stdout)

    if err := run(cfg, log); err != nil {
        log.Fatal().Err(err).Msg("server stopped")
    }
    log.Info().Msg("server stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return err
    }
    defer db.Close()

    if cfg.DBMigrate {
        url := database.MigrationURL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err := database.RunMigrations(url); err != nil {
            return err
        }
        log.Info().Msg("migrations applied")
    }

    rdb := config.NewRedisClient(log)
    if rdb != nil {
        defer rdb.Close()
    }

    minter, err := auth.NewMinter(cfg.TokenDigest)
    if err != nil {
        return err
    }

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    collector := metrics.NewCollector(reg)

    tenants := repository.NewTenantRepo(db)
    counters := repository.NewCounterStore(rdb)
    gw := auth.NewGateway(auth.Deps{
        Tenants:      tenants,
        Users:        repository.NewUserRepo(db),
        Counters:     counters,
        Exchange:     auth.NewComponentExchange(rdb, cfg.ProviderBaseURL, cfg.ComponentAppID, cfg.ProviderTimeout),
        Minter:       minter,
        SessionTTL:   cfg.SessionTTL,
        StoreTimeout: cfg.StoreTimeout,
        Metrics:      collector,
        Logger:       log,
    })

    var events handler.LoginPublisher
    if cfg.EventsEnabled {
        pub, err := service.NewEventPublisher(cfg.RabbitURL)
        if err != nil {
            log.Warn().Err(err).Msg("login events disabled: broker unreachable")
        } else {
            defer pub.Close()
            events = pub
        }
    }
    if cfg.AuditConsumer {
        go func() {
            if err := queue.StartLoginConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
                log.Error().Err(err).Msg("login consumer exited")
            }
        }()
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(middleware.RequestLogger(log))

    router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb}, metrics.Handler(reg))
    router.RegisterAuth(e,
        handler.NewAuthHandler(tenants, counters, events, log),
        gw,
        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
    )

    addr := ":" + cfg.Port
    errc := make(chan error, 1)
    go func() {
        log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errc <- err
        }
        close(errc)
    }()

    select {
    case err := <-errc:
        return err
    case <-ctx.Done():
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    return e.Shutdown(shutdownCtx)
}
