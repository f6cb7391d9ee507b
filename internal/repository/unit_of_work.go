package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jt828/wolam/pkg/idempotency"
	"github.com/jt828/wolam/pkg/resilience"
	"gorm.io/gorm"
)

// ErrDuplicateKey reports an insert of a key that is already stored, either
// at Insert or, for the in-memory store, at Commit.
var ErrDuplicateKey = errors.New("duplicate key")

const pgUniqueViolation = "23505"

func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}

type UnitOfWork interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
	GenerationJobRepository() GenerationJobRepository
	IdempotencyRecordRepository() idempotency.RecordRepository
}

type transactionDbUnitOfWork struct {
	tx                              *gorm.DB
	policy                          resilience.Policy
	generationJobRepository         GenerationJobRepository
	generationJobRepositoryOnce     sync.Once
	idempotencyRecordRepository     idempotency.RecordRepository
	idempotencyRecordRepositoryOnce sync.Once
}

func (u *transactionDbUnitOfWork) GenerationJobRepository() GenerationJobRepository {
	u.generationJobRepositoryOnce.Do(func() {
		u.generationJobRepository = NewGenerationJobRepository(u.tx, u.policy, false)
	})
	return u.generationJobRepository
}

func (u *transactionDbUnitOfWork) IdempotencyRecordRepository() idempotency.RecordRepository {
	u.idempotencyRecordRepositoryOnce.Do(func() {
		u.idempotencyRecordRepository = NewIdempotencyRecordRepository(u.tx, u.policy, false)
	})
	return u.idempotencyRecordRepository
}

func (u *transactionDbUnitOfWork) Commit(ctx context.Context) error {
	return u.tx.WithContext(ctx).Commit().Error
}

func (u *transactionDbUnitOfWork) Abort(ctx context.Context) error {
	return u.tx.WithContext(ctx).Rollback().Error
}
