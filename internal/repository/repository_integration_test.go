//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/jt828/wolam/internal/constant"
	"github.com/jt828/wolam/internal/repository"
	"github.com/jt828/wolam/pkg/idempotency"
	"github.com/jt828/wolam/pkg/model"
	"github.com/jt828/wolam/pkg/resilience"
	resilienceImpl "github.com/jt828/wolam/pkg/resilience/implementation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type testDB struct {
	db        *gorm.DB
	container *tcpostgres.PostgresContainer
}

func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithInitScripts("testdata/init_schema.sql"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	return &testDB{db: db, container: pgContainer}
}

func TestTransactionDbUnitOfWork_JobLifecycle(t *testing.T) {
	tdb := setupTestDB(t)
	ctx := context.Background()
	factory := repository.NewTransactionDbUnitOfWorkFactory(tdb.db, resilienceImpl.NewPolicy("test",
		resilience.WithMaxRetries(0),
	))
	require.NoError(t, factory.Ping(ctx))

	now := time.Now().UTC().Truncate(time.Second)
	uow, err := factory.New(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.GenerationJobRepository().Insert(ctx, &model.GenerationJob{
		Id:          1,
		MetricCount: 25,
		Region:      "eu-gb",
		Environment: "development",
		Status:      constant.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	require.NoError(t, uow.IdempotencyRecordRepository().Insert(ctx, &idempotency.Record{
		Id:           100,
		RequestType:  string(constant.RequestTypeCreateMetrics),
		ReferenceId:  1,
		ResponseData: `{"id":"1"}`,
		CreatedAt:    now,
	}))
	require.NoError(t, uow.Commit(ctx))

	t.Run("committed job is readable", func(t *testing.T) {
		uow, err := factory.New(ctx)
		require.NoError(t, err)
		defer uow.Abort(ctx)

		job, err := uow.GenerationJobRepository().Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, 25, job.MetricCount)
		assert.Equal(t, constant.JobStatusPending, job.Status)

		record, err := uow.IdempotencyRecordRepository().Get(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, int64(1), record.ReferenceId)
	})

	t.Run("aborted progress is discarded", func(t *testing.T) {
		uow, err := factory.New(ctx)
		require.NoError(t, err)
		require.NoError(t, uow.GenerationJobRepository().UpdateProgress(ctx, 1, constant.JobStatusRunning, 10))
		require.NoError(t, uow.Abort(ctx))

		uow, err = factory.New(ctx)
		require.NoError(t, err)
		defer uow.Abort(ctx)
		job, err := uow.GenerationJobRepository().Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, job.CompletedUnits)
	})

	t.Run("committed progress is stored", func(t *testing.T) {
		uow, err := factory.New(ctx)
		require.NoError(t, err)
		require.NoError(t, uow.GenerationJobRepository().UpdateProgress(ctx, 1, constant.JobStatusCompleted, 25))
		require.NoError(t, uow.Commit(ctx))

		uow, err = factory.New(ctx)
		require.NoError(t, err)
		defer uow.Abort(ctx)
		job, err := uow.GenerationJobRepository().Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, constant.JobStatusCompleted, job.Status)
		assert.Equal(t, 25, job.CompletedUnits)
	})
}

func TestGenerationJobRepository_RetryOnDBPause(t *testing.T) {
	tdb := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, tdb.db.Create(&model.GenerationJobDataEntity{
		Id:          1,
		MetricCount: 5,
		Region:      "eu-gb",
		Environment: "development",
		Status:      constant.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	policy := resilienceImpl.NewPolicy("test",
		resilience.WithMaxRetries(5),
		resilience.WithInterval(500*time.Millisecond),
		resilience.WithTripAfter(1000),
		resilience.WithRetryable(func(err error) bool {
			return true
		}),
	)
	repo := repository.NewGenerationJobRepository(tdb.db, policy, false)

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err)
	containerID := tdb.container.GetContainerID()

	require.NoError(t, dockerClient.ContainerPause(ctx, containerID))
	go func() {
		time.Sleep(2 * time.Second)
		_ = dockerClient.ContainerUnpause(ctx, containerID)
	}()

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	job, err := repo.Get(queryCtx, 1)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 5, job.MetricCount)
}
