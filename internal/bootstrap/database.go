package bootstrap

import (
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jt828/wolam/internal/repository"
	"github.com/jt828/wolam/pkg/observability"
	obsImpl "github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/jt828/wolam/pkg/resilience"
	resilienceImpl "github.com/jt828/wolam/pkg/resilience/implementation"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	// DB is nil when jobs are kept in memory.
	DB                *gorm.DB
	Policy            resilience.Policy
	UnitOfWorkFactory repository.UnitOfWorkFactory
}

// InitializeDatabase opens the Postgres job store for dsn. An empty dsn
// selects the in-memory store.
func InitializeDatabase(dsn string, meter observability.Meter, log observability.Logger) (*Database, error) {
	if dsn == "" {
		log.Info("DATABASE_DSN not set, keeping generation jobs in memory")
		return &Database{UnitOfWorkFactory: repository.NewMemoryUnitOfWorkFactory()}, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.Use(obsImpl.NewStoreMetricsPlugin(meter)); err != nil {
		return nil, err
	}

	policy := resilienceImpl.NewPolicy("postgresql",
		resilience.WithMaxRetries(3),
		resilience.WithInterval(100*time.Millisecond),
		resilience.WithRetryable(IsTransientDBError),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		}),
	)

	return &Database{
		DB:                db,
		Policy:            policy,
		UnitOfWorkFactory: repository.NewTransactionDbUnitOfWorkFactory(db, policy),
	}, nil
}

// IsTransientDBError reports whether a failed query is worth retrying.
func IsTransientDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001": // serialization_failure
			return true
		case "40P01": // deadlock_detected
			return true
		case "08006": // connection_failure
			return true
		case "08001": // sqlclient_unable_to_establish_sqlconnection
			return true
		case "08004": // sqlserver_rejected_establishment_of_sqlconnection
			return true
		}
	}

	var netErr *net.OpError
	return errors.As(err, &netErr)
}
