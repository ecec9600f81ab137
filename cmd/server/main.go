package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/api"
	"github.com/piccplatform/ar-collections/internal/classifier"
	"github.com/piccplatform/ar-collections/internal/config"
	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/history"
	"github.com/piccplatform/ar-collections/internal/ingest"
	"github.com/piccplatform/ar-collections/internal/mailer"
	"github.com/piccplatform/ar-collections/internal/pipeline"
	"github.com/piccplatform/ar-collections/internal/render"
	"github.com/piccplatform/ar-collections/internal/repository/memory"
	"github.com/piccplatform/ar-collections/internal/repository/postgres"
	"github.com/piccplatform/ar-collections/internal/resolver"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

const sendWorkerInterval = 30 * time.Second

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openStore picks the draft store: Postgres when a database URL is
// configured, otherwise an in-memory store for local runs.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Entry) (queue.Store, error) {
	if cfg.URL == "" {
		log.Warn("no database configured, drafts are held in memory and lost on restart")
		return memory.NewDraftStore(), nil
	}

	db, err := postgres.Open(cfg.URL, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	store := postgres.NewDraftStore(db)

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(schemaCtx); err != nil {
		return nil, err
	}
	log.Info("postgres draft store ready")
	return store, nil
}

// openGuard connects the Redis cooldown guard. A missing Redis is a warning,
// not a startup failure: the batch still builds, it just cannot skip
// recently-mailed customers.
func openGuard(ctx context.Context, cfg config.RedisConfig, cooldown time.Duration, log *logrus.Entry) *history.Guard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Addr).Warn("redis unreachable, send cooldown disabled")
		rdb.Close()
		return nil
	}
	log.WithField("addr", cfg.Addr).Info("redis connected, send cooldown enabled")
	return history.New(rdb, cooldown)
}

// newRebuild returns the function the regenerate endpoint calls: reload the
// workbooks and run the full batch pipeline.
func newRebuild(cfg *config.Config, builder *pipeline.Builder, log *logrus.Entry) api.RebuildFunc {
	return func(ctx context.Context) ([]domain.Draft, error) {
		invoices, err := ingest.LoadAgingReport(cfg.Ingest.AgingReportPath, cfg.Ingest.AgingSheetName)
		if err != nil {
			return nil, err
		}

		res, err := builder.Build(ctx, invoices)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"invoices": res.Tiers.TotalInvoices,
			"drafts":   len(res.Drafts),
		}).Info("aging report processed")
		return res.Drafts, nil
	}
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	setupLogging(cfg.Logging)
	log := logrus.WithField("component", "server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open draft store")
	}
	queueSvc := queue.NewService(store)

	cooldown := time.Duration(cfg.Email.CooldownDays) * 24 * time.Hour
	guard := openGuard(ctx, cfg.Redis, cooldown, log)

	tiers, err := classifier.New(classifier.Boundaries{
		UpcomingMax:    cfg.Tiers.UpcomingMax,
		RecentlyDueMax: cfg.Tiers.RecentlyDueMax,
		MinLeadDays:    cfg.Tiers.MinLeadDays,
	})
	if err != nil {
		log.WithError(err).Fatal("bad tier boundaries")
	}

	renderer, err := render.New(cfg.Email.TemplateDir)
	if err != nil {
		log.WithError(err).Fatal("failed to load email templates")
	}

	var contacts []domain.Contact
	if cfg.Ingest.ContactsPath != "" {
		contacts, err = ingest.LoadContacts(cfg.Ingest.ContactsPath, cfg.Ingest.ContactsSheetName)
		if err != nil {
			log.WithError(err).Fatal("failed to load contact directory")
		}
	} else {
		log.Warn("no contact workbook configured, every draft will need manual review")
	}
	var fallback []domain.FallbackContact
	if cfg.Ingest.FallbackPath != "" {
		fallback, err = ingest.LoadFallback(cfg.Ingest.FallbackPath, cfg.Ingest.FallbackSheetName)
		if err != nil {
			log.WithError(err).Fatal("failed to load fallback directory")
		}
	}
	log.WithFields(logrus.Fields{
		"contacts": len(contacts),
		"fallback": len(fallback),
	}).Info("contact directory loaded")

	res := resolver.New(contacts, resolver.Options{
		FuzzyThreshold:   cfg.Resolver.FuzzyThreshold,
		HighTrustSources: cfg.Resolver.HighTrustSources,
		LowTrustSources:  cfg.Resolver.LowTrustSources,
		Fallback:         fallback,
	})
	cc := resolver.NewCCBuilder(cfg.Resolver.AlwaysCC, cfg.Resolver.HandlerEmails)

	var checker pipeline.RecentSendChecker
	switch {
	case guard != nil:
		checker = guard
	default:
		if pg, ok := store.(*postgres.DraftStore); ok {
			checker = history.NewStoreGuard(pg, cooldown)
			log.Info("cooldown checks fall back to sent rows in postgres")
		}
	}
	builder := pipeline.NewBuilder(tiers, res, cc, renderer, checker)
	rebuild := newRebuild(cfg, builder, log)

	// Seed the queue at startup so reviewers land on a populated dashboard.
	if cfg.Ingest.AgingReportPath != "" {
		if drafts, err := rebuild(ctx); err != nil {
			log.WithError(err).Error("initial batch build failed, queue starts empty")
		} else if err := queueSvc.Load(ctx, drafts); err != nil {
			log.WithError(err).Fatal("failed to load initial batch")
		} else {
			log.WithField("drafts", len(drafts)).Info("initial batch loaded")
		}
	} else {
		log.Warn("no aging report configured, starting with an empty queue")
	}

	m, err := mailer.New(ctx, cfg.SES, cfg.Email)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize mailer")
	}
	var recorder mailer.SendRecorder
	if guard != nil {
		recorder = guard
	}
	worker := mailer.NewWorker(queueSvc, m, recorder, sendWorkerInterval)
	go worker.Run(ctx)

	server := api.NewServer(queueSvc, rebuild)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(cfg.ListenAddr()); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-done
	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("server stopped")
}
