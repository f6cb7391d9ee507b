package repository

import (
	"context"

	"github.com/jt828/wolam/pkg/resilience"
	"gorm.io/gorm"
)

type UnitOfWorkFactory interface {
	New(ctx context.Context) (UnitOfWork, error)
	Ping(ctx context.Context) error
}

type transactionDbUnitOfWorkFactory struct {
	db     *gorm.DB
	policy resilience.Policy
}

func NewTransactionDbUnitOfWorkFactory(db *gorm.DB, policy resilience.Policy) UnitOfWorkFactory {
	return &transactionDbUnitOfWorkFactory{db: db, policy: policy}
}

func (f *transactionDbUnitOfWorkFactory) New(ctx context.Context) (UnitOfWork, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &transactionDbUnitOfWork{tx: tx, policy: f.policy}, nil
}

func (f *transactionDbUnitOfWorkFactory) Ping(ctx context.Context) error {
	sqlDB, err := f.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
