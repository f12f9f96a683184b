// Command server runs the vital-records registry API: session-based
// authentication, birth/death registration workflow, certificate
// verification, document uploads, and dashboard statistics.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"vitalreg/internal/audit"
	"vitalreg/internal/auth/cache"
	authhandler "vitalreg/internal/auth/handler"
	"vitalreg/internal/auth/lockout"
	authservice "vitalreg/internal/auth/service"
	authstore "vitalreg/internal/auth/store"
	sessionstore "vitalreg/internal/auth/store/session"
	userstore "vitalreg/internal/auth/store/user"
	"vitalreg/internal/document"
	"vitalreg/internal/notify"
	"vitalreg/internal/platform/config"
	"vitalreg/internal/platform/httpserver"
	"vitalreg/internal/platform/logger"
	"vitalreg/internal/platform/metrics"
	"vitalreg/internal/platform/middleware"
	"vitalreg/internal/platform/postgres"
	"vitalreg/internal/platform/redis"
	"vitalreg/internal/platform/tracing"
	reghandler "vitalreg/internal/registration/handler"
	regservice "vitalreg/internal/registration/service"
	regstore "vitalreg/internal/registration/store"
	"vitalreg/internal/stats"
	"vitalreg/internal/verification"
)

const (
	serviceName     = "vitalreg"
	shutdownTimeout = 10 * time.Second
	auditBuffer     = 1024
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, serviceName, cfg.Environment)
	if err != nil {
		log.Error("tracing init failed", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	var (
		users     authstore.UserStore
		sessions  authstore.SessionStore
		lockouts  lockout.Store
		births    regstore.BirthStore
		deaths    regstore.DeathStore
		counter   regstore.CounterStore
		documents document.Store
		auditLog  audit.Store
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		sessions = sessionstore.NewPostgres(db)
		lockouts = lockout.NewPostgresStore(db)
		births = regstore.NewPostgresBirthStore(db)
		deaths = regstore.NewPostgresDeathStore(db)
		counter = regstore.NewPostgresCounter(db)
		documents = document.NewPostgresStore(db)
		auditLog = audit.NewPostgresStore(db)
	} else {
		users = userstore.NewInMemory()
		sessions = sessionstore.NewInMemory()
		lockouts = lockout.NewInMemoryStore()
		births = regstore.NewInMemoryBirthStore()
		deaths = regstore.NewInMemoryDeathStore()
		counter = regstore.NewInMemoryCounter()
		documents = document.NewInMemoryStore()
		auditLog = audit.NewInMemoryStore()
	}

	var identities cache.IdentityCache
	if redisClient != nil {
		identities = cache.NewRedis(redisClient.Client, cfg.IdentityCacheTTL, log)
	} else {
		identities = cache.NewMemory(cfg.IdentityCacheTTL)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.MailAPIKey != "" {
		notifier = notify.NewResend(notify.ResendConfig{
			APIKey:     cfg.MailAPIKey,
			BaseURL:    cfg.MailBaseURL,
			From:       cfg.MailFrom,
			AppBaseURL: cfg.AppBaseURL,
		})
	} else {
		log.Warn("MAIL_API_KEY not set, email notifications disabled")
	}

	publisher := audit.NewPublisher(auditBuffer, func() {
		log.Warn("audit event dropped, buffer full")
	})
	auditWorker := audit.NewWorker(auditLog, publisher.Inbox(), log)

	authSvc := authservice.New(authservice.Config{
		Users:         users,
		Sessions:      sessions,
		Identities:    identities,
		Lockouts:      lockout.New(lockout.Config{Store: lockouts, Logger: log}),
		Notifier:      notifier,
		Publisher:     publisher,
		Metrics:       m,
		Logger:        log,
		SessionTTL:    cfg.SessionTTL,
		Preauthorized: cfg.PreauthorizedIdentities,
	})
	regSvc := regservice.New(regservice.Config{
		Births:    births,
		Deaths:    deaths,
		Counter:   counter,
		Publisher: publisher,
		Metrics:   m,
		Logger:    log,
	})
	verifySvc := verification.New(verification.Config{
		Births:    births,
		Deaths:    deaths,
		Publisher: publisher,
		Metrics:   m,
		Logger:    log,
	})
	statsSvc := stats.New(stats.Config{
		Births: births,
		Deaths: deaths,
		Logger: log,
	})
	docSvc := document.New(document.Config{
		Store:       documents,
		Storage:     document.NewDiskStorage(cfg.UploadDir),
		Publisher:   publisher,
		Logger:      log,
		MaxFileSize: cfg.UploadMaxBytes,
	})

	cookie := middleware.CookieConfig{
		Name:   cfg.SessionCookieName,
		TTL:    cfg.SessionTTL,
		Secure: cfg.Environment == "production",
	}

	authHandler := authhandler.New(authSvc, cookie, log)
	regHandler := reghandler.New(regSvc, log)
	verifyHandler := verification.NewHandler(verifySvc, log)
	statsHandler := stats.NewHandler(statsSvc, log)
	docHandler := document.NewHandler(docSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", handleHealth(db, redisClient))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler.Register(r)
	verifyHandler.Register(r)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireSession(authSvc, cookie, log))
		authHandler.RegisterAuthed(authed)
		regHandler.Register(authed)
		statsHandler.Register(authed)
		docHandler.Register(authed)

		authed.Group(func(review chi.Router) {
			review.Use(middleware.RequireRole("admin", "registrar"))
			regHandler.RegisterReview(review)
		})
	})

	srv := httpserver.New(cfg.Addr, otelhttp.NewHandler(r, "http.server"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		return authSvc.RunSessionPruner(gctx, cfg.SessionSweep)
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// handleHealth reports liveness plus the state of the optional backends.
func handleHealth(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
