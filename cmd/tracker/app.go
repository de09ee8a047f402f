package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"canteen-tracker/internal/analytics"
	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/config"
	"canteen-tracker/internal/coupon"
	"canteen-tracker/internal/database"
	"canteen-tracker/internal/eta"
	"canteen-tracker/internal/export"
	"canteen-tracker/internal/model"
	"canteen-tracker/internal/notify"
	"canteen-tracker/internal/payment"
	"canteen-tracker/internal/repository"
	"canteen-tracker/internal/scheduler"
	"canteen-tracker/internal/service"
	"canteen-tracker/internal/session"
	"canteen-tracker/internal/store"
	"canteen-tracker/internal/tracker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// app holds every wired component of one tracker process.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	session   *session.Session
	scheduler *scheduler.Scheduler
	notifier  *notify.Emitter
	tracker   *tracker.Tracker
	orders    service.OrderService
	payments  service.PaymentService
	analytics service.AnalyticsService
	pool      *pgxpool.Pool
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, out io.Writer) (*app, error) {
	sess, err := session.New(
		cfg.Session.Token,
		cfg.Session.UserID,
		session.WithUsername(cfg.Session.Username),
		session.WithEmail(cfg.Session.Email),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		session: sess,
	}

	client := backend.NewClient(
		cfg.Backend.BaseURL,
		sess,
		logger,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLocation(cfg.BackendLocation()),
	)

	a.notifier = notify.New(logger, notify.WithTTL(cfg.Notification.TTL), notify.WithSink(consoleSink(out)))
	a.scheduler = scheduler.New(logger)

	// Journal is optional; without it coupons live for the lifetime of the process.
	var couponStore coupon.Store = coupon.NewMemoryStore(64)
	var trackerOpts []tracker.Option
	if cfg.Database.Enabled {
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize journal database: %w", err)
		}
		a.pool = pool

		if err := database.Migrate(ctx, pool, logger); err != nil {
			a.Close()
			return nil, err
		}

		couponStore = repository.NewCouponRepository(pool, logger)
		trackerOpts = append(trackerOpts, tracker.WithJournal(repository.NewTransitionRepository(pool, logger)))
	} else {
		logger.Info().Msg("journal disabled, coupons are kept in memory")
	}

	a.tracker = tracker.New(
		client,
		a.scheduler,
		store.New(logger),
		eta.New(client, cfg.Polling.ETAConcurrency, logger),
		a.notifier,
		sess.UserID(),
		tracker.Config{
			OrderInterval:     cfg.Polling.OrderInterval,
			QueueInterval:     cfg.Polling.QueueInterval,
			ETAInterval:       cfg.Polling.ETAInterval,
			AnalyticsInterval: cfg.Polling.AnalyticsInterval,
			QueueHighWater:    cfg.Polling.QueueHighWater,
			QueueLowWater:     cfg.Polling.QueueLowWater,
		},
		logger,
		trackerOpts...,
	)

	wallet := coupon.NewWallet(couponStore, sess.UserID(), logger, coupon.WithLookup(client))
	workflow := payment.New(client, a.notifier, sess.UserID(), logger)

	a.orders = service.NewOrderService(client, a.tracker, a.notifier, sess, logger)
	a.payments = service.NewPaymentService(workflow, wallet, a.tracker, logger)
	a.analytics = service.NewAnalyticsService(
		analytics.New(cfg.AnalyticsLocation()),
		a.tracker,
		client,
		newExporter(ctx, cfg, logger),
		sess.UserID(),
		cfg.Analytics.WindowDays,
		logger,
	)

	return a, nil
}

// newExporter uses S3 when enabled and reachable, with the export directory as fallback.
func newExporter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) export.Exporter {
	var s3Exporter export.Exporter
	if cfg.S3.Enabled {
		exp, err := export.NewS3Exporter(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 exporter, falling back to local file system only")
		} else {
			s3Exporter = exp
		}
	} else {
		logger.Info().Str("dir", cfg.S3.ExportDir).Msg("using local file system for report export (S3 disabled)")
	}

	return export.NewFallbackExporter(s3Exporter, export.NewFileExporter(cfg.S3.ExportDir, logger), cfg.S3.Prefix, cfg.S3.Enabled, logger)
}

// Close stops every cycle and releases held resources.
func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	a.session.Close()
}

func consoleSink(out io.Writer) notify.Sink {
	return func(n model.Notification) {
		fmt.Fprintf(out, "%s [%s] %s\n", n.CreatedAt.Format(time.TimeOnly), strings.ToUpper(string(n.Severity)), n.Message)
	}
}
