package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/alias"
	"github.com/Ramsey-B/fern/internal/repositories/candidate"
	"github.com/Ramsey-B/fern/internal/repositories/employee"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

// app holds the started dependencies and the services built on them.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	emitter  *events.Emitter

	candidates *candidate.Repository
	aliases    *alias.Repository
	employees  *employee.Repository
	matcher    *matching.Service
	gate       *middleware.Authorizer

	containerID string

	shutdownTracing func(context.Context) error
}

type appOptions struct {
	migrate bool
	redis   bool
	kafka   bool
}

// newApp starts dependencies with backoff, wires repositories and the matching
// service, and registers them in the request DI container.
func newApp(ctx context.Context, cfg *config.Config, logger ectologger.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    cfg.AppName,
		ServiceVersion: cfg.Version,
		Enabled:        cfg.TracingEnabled,
		OTLP: exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
		},
	})
	if err != nil {
		return nil, err
	}
	a.shutdownTracing = shutdownTracing

	a.startup = startup.NewStartup(logger, cfg.StartupMaxAttempts)
	a.startup.AddDependency(startup.Dependency{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg.DatabaseDSN(), database.PoolConfig{
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		StopFn: func(context.Context) error {
			return a.db.Close()
		},
	})

	if opts.migrate {
		a.startup.AddDependency(startup.Dependency{
			Name:    "migrations",
			Needs:   []string{"database"},
			StartFn: func(context.Context) error { return runMigrations(cfg, logger, a.db) },
		})
	}

	if opts.redis && cfg.RedisEnabled {
		a.startup.AddDependency(startup.Dependency{
			Name: "redis",
			StartFn: func(context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFn: func(context.Context) error {
				return a.redis.Close()
			},
		})
	}

	if opts.kafka && cfg.KafkaEnabled {
		a.startup.AddDependency(startup.Dependency{
			Name: "kafka",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFn: func(context.Context) error {
				return a.producer.Close()
			},
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		_ = a.startup.Stop(context.Background())
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	if err := a.wire(); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	var publisher events.Publisher
	if a.producer != nil {
		publisher = a.producer
	}
	a.emitter = events.NewEmitter(publisher, cfg.EventPublishTimeout, a.logger)

	a.candidates = candidate.NewRepository(a.db, a.logger)
	a.aliases = alias.NewRepository(a.db, a.logger, cfg.AliasCacheTTL)
	a.employees = employee.NewRepository(a.db, a.logger)

	a.matcher = matching.NewService(a.logger, a.candidates, a.aliases, matching.Config{
		History: matching.HistoryConfig{
			ScoreThreshold:    cfg.HistoryScoreThreshold,
			AgeWindow:         cfg.HistoryAgeWindow,
			PoolMinSimilarity: cfg.HistoryPoolMinSimilarity,
			IncludeSelf:       cfg.HistoryIncludeSelf,
		},
		Bulk: matching.BulkConfig{
			DefaultThreshold:   cfg.BulkDefaultThreshold,
			DefaultSampleLimit: cfg.BulkDefaultSampleLimit,
			MaxSampleLimit:     cfg.BulkMaxSampleLimit,
			MaxNames:           cfg.BulkMaxNames,
		},
		RecomputeBatchSize: cfg.RecomputeBatchSize,
		RecomputeLockTTL:   cfg.RecomputeLockTTL,
	}).WithNotifier(a.emitter)

	if a.redis != nil {
		a.matcher.WithLocker(redis.NewLocker(a.redis, ""))
		if cfg.BulkPoolCacheTTL > 0 {
			a.matcher.WithPoolCache(redis.NewPoolCache(a.redis, cfg.BulkPoolCacheTTL))
		}
	}

	a.gate = middleware.NewAuthorizer(a.logger, a.employees, cfg.BootstrapAdminEmails)

	container, err := newContainer(a)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	a.containerID = container.GetContainerID()
	return nil
}

// close stops dependencies in reverse order and flushes spans.
func (a *app) close(ctx context.Context) error {
	// flush pending events before the writer closes
	if a.emitter != nil {
		a.emitter.Wait()
	}
	err := a.startup.Stop(ctx)
	if tracingErr := a.shutdownTracing(ctx); tracingErr != nil {
		a.logger.WithContext(ctx).WithError(tracingErr).Warn("failed to flush traces")
	}
	return err
}

func runMigrations(cfg *config.Config, logger ectologger.Logger, db database.DB) error {
	if cfg.DatabaseMigrationVersion < 0 {
		return fmt.Errorf("DB_MIGRATION_VERSION must not be negative")
	}
	svc := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return svc.MigratePostgres(db.SQLDB(), cfg.DatabaseName)
}
