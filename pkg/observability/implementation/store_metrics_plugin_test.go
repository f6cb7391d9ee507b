package implementation_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/jt828/wolam/pkg/observability/observabilitytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestStoreMetricsPlugin(t *testing.T) {
	meter, reg := observabilitytest.NewMeter()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(implementation.NewStoreMetricsPlugin(meter)))

	mock.ExpectExec(`UPDATE main.generation_jobs SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE main.generation_jobs SET status`).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, db.Exec(`UPDATE main.generation_jobs SET status = 'cancelled'`).Error)
	require.Error(t, db.Exec(`UPDATE main.generation_jobs SET status = 'cancelled'`).Error)
	require.NoError(t, mock.ExpectationsWereMet())

	op := map[string]string{"operation": "raw"}

	total := observabilitytest.Find(t, reg, "wolam_job_store_queries_total", op)
	require.NotNil(t, total)
	assert.Equal(t, 2.0, total.GetCounter().GetValue())

	failed := observabilitytest.Find(t, reg, "wolam_job_store_query_errors_total", op)
	require.NotNil(t, failed)
	assert.Equal(t, 1.0, failed.GetCounter().GetValue())

	latency := observabilitytest.Find(t, reg, "wolam_job_store_query_duration_seconds", op)
	require.NotNil(t, latency)
	assert.Equal(t, uint64(2), latency.GetHistogram().GetSampleCount())
}
