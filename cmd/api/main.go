package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/skincareplus/internal/auth"
	"github.com/geocoder89/skincareplus/internal/config"
	"github.com/geocoder89/skincareplus/internal/db"
	httpx "github.com/geocoder89/skincareplus/internal/http"
	"github.com/geocoder89/skincareplus/internal/http/handlers"
	"github.com/geocoder89/skincareplus/internal/maintenance"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/geocoder89/skincareplus/internal/redisclient"
	"github.com/geocoder89/skincareplus/internal/repo/memory"
	"github.com/geocoder89/skincareplus/internal/repo/postgres"
	"github.com/geocoder89/skincareplus/internal/security"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "skincareplus-api"

// stores groups the repositories so both drivers wire the router the same way.
type stores struct {
	appointments    handlers.AppointmentsRepo
	analyses        handlers.AnalysesRepo
	recommendations handlers.RecommendationsRepo
}

type userStore interface {
	auth.CredentialStore
	handlers.UserLister
}

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("config loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing := cfg.OTelEndpoint != ""
	if tracing {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: serviceName,
			Environment: cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.PingFunc{}

	var (
		st       stores
		users    userStore
		pool     *pgxpool.Pool
		denylist auth.Denylist
		sweep    func() int
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory stores; data is lost on restart")
		analyses := memory.NewAnalysesRepo()
		users = memory.NewUsersRepo()
		st = stores{
			appointments:    memory.NewAppointmentsRepo(),
			analyses:        analyses,
			recommendations: analyses.Recommendations(),
		}
	default:
		err = maintenance.Retry(ctx, 5, time.Second, 10*time.Second, func(ctx context.Context) error {
			var err error
			pool, err = db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
			if err != nil {
				log.Warn("db connect failed, retrying", "err", err)
			}
			return err
		})
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool, "up"); err != nil {
				log.Error("migrations failed", "err", err)
				os.Exit(1)
			}
		}

		users = postgres.NewUsersRepo(pool, prom)
		st = stores{
			appointments:    postgres.NewAppointmentsRepo(pool, prom),
			analyses:        postgres.NewAnalysesRepo(pool, prom),
			recommendations: postgres.NewRecommendationsRepo(pool, prom),
		}
		checks["postgres"] = pool.Ping
	}

	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rc.Close()

		denylist = auth.NewRedisDenylist(rc.Raw())
		checks["redis"] = rc.Ping
	} else {
		mem := auth.NewMemoryDenylist()
		denylist = mem
		sweep = mem.Sweep
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL())

	authSvc, err := auth.NewService(users, hasher, tokens, denylist, prom, log)
	if err != nil {
		log.Error("auth service init failed", "err", err)
		os.Exit(1)
	}

	seedCtx, cancelSeed := context.WithTimeout(ctx, 5*time.Second)
	if err := db.EnsureAdminUser(seedCtx, users, hasher, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	cancelSeed()

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(log, httpx.Deps{
		Env:              cfg.Env,
		ServiceName:      serviceName,
		Tracing:          tracing,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		RateLimitAuthRPM: cfg.RateLimitAuthRPM,
		RateLimitAPIRPM:  cfg.RateLimitAPIRPM,
		Prom:             prom,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Auth:             authSvc,
		Users:            users,
		Appointments:     st.appointments,
		Analyses:         st.analyses,
		Recommendations:  st.recommendations,
		HealthChecks:     checks,
		IsShuttingDown:   shuttingDown.Load,
	})

	// background housekeeping for the in-memory denylist
	var runner *maintenance.Runner
	if sweep != nil {
		runner = maintenance.New(log, maintenance.Task{
			Name:     "revoked_tokens",
			Interval: time.Minute,
			Run:      func(context.Context) (int, error) { return sweep(), nil },
		}).OnSwept(func(_ string, n int) {
			prom.RevokedSwept.Add(float64(n))
		})
	}

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if runner != nil {
			runner.Run(ctx)
		}
	}()

	// server set up
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shuttingDown.Store(true)
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		<-runnerDone
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
