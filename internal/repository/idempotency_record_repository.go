package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/idempotency"
	"github.com/jt828/wolam/pkg/model"
	"github.com/jt828/wolam/pkg/resilience"
	"gorm.io/gorm"
)

type IdempotencyRecordRepositoryImpl struct {
	db              *gorm.DB
	policy          resilience.Policy
	notFoundAsError bool
}

func NewIdempotencyRecordRepository(db *gorm.DB, policy resilience.Policy, notFoundAsError bool) idempotency.RecordRepository {
	return &IdempotencyRecordRepositoryImpl{db: db, policy: policy, notFoundAsError: notFoundAsError}
}

func (r *IdempotencyRecordRepositoryImpl) Get(ctx context.Context, id int64) (*idempotency.Record, error) {
	var record *idempotency.Record
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var entity model.IdempotencyRecordDataEntity
		if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if r.notFoundAsError {
					return fmt.Errorf("idempotency record %d: %w", id, apperror.ErrNotFound)
				}
				return nil
			}
			return err
		}
		domain := entity.ToDomain()
		record = &domain
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *IdempotencyRecordRepositoryImpl) Insert(ctx context.Context, record *idempotency.Record) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		entity := model.IdempotencyRecordFromDomain(record)
		return translateInsertError(r.db.WithContext(ctx).Create(&entity).Error)
	})
}
