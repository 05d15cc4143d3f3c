package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pratik-mahalle/cloudops/internal/api/handlers"
	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/repository/dynamo"
	"github.com/pratik-mahalle/cloudops/internal/repository/postgres"
	"github.com/pratik-mahalle/cloudops/internal/worker"
	"github.com/pratik-mahalle/cloudops/migrations"
)

// store bundles the repositories of one record store backend
type store struct {
	metrics   metric.Repository
	costs     cost.Repository
	anomalies anomaly.Repository
	alerts    alert.Repository
	expirers  []worker.Expirer
	ping      handlers.Check
	close     func()
}

func openStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, log *logger.Logger) (*store, error) {
	if cfg.Database.Driver == "dynamodb" {
		client := dynamo.New(awsCfg, dynamo.TablesFromConfig(cfg.AWS))
		if err := client.Ping(ctx); err != nil {
			log.WarnWithErr(err, "DynamoDB tables not reachable, run cmd/migrate to create them")
		}
		return &store{
			metrics:   dynamo.NewMetricRepository(client),
			costs:     dynamo.NewCostRepository(client),
			anomalies: dynamo.NewAnomalyRepository(client),
			alerts:    dynamo.NewAlertRepository(client),
			ping:      client.Ping,
			close:     func() {},
		}, nil
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := postgres.RunMigrations(db, migrations.FS())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.WithFields(map[string]interface{}{"migrations": applied}).Info("Applied migrations")
	}

	s := &store{
		metrics:   postgres.NewMetricRepository(db),
		costs:     postgres.NewCostRepository(db),
		anomalies: postgres.NewAnomalyRepository(db),
		alerts:    postgres.NewAlertRepository(db),
		ping:      db.PingContext,
		close:     func() { db.Close() },
	}
	for _, repo := range []interface{}{s.metrics, s.costs, s.anomalies, s.alerts} {
		if e, ok := repo.(worker.Expirer); ok {
			s.expirers = append(s.expirers, e)
		}
	}
	return s, nil
}
