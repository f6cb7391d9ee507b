package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jt828/wolam/internal/constant"
	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/model"
	"github.com/jt828/wolam/pkg/resilience"
	"gorm.io/gorm"
)

type GenerationJobRepository interface {
	Get(ctx context.Context, id int64) (*model.GenerationJob, error)
	Insert(ctx context.Context, job *model.GenerationJob) error
	UpdateProgress(ctx context.Context, id int64, status constant.JobStatus, completedUnits int) error
}

type GenerationJobRepositoryImpl struct {
	db              *gorm.DB
	policy          resilience.Policy
	notFoundAsError bool
}

func NewGenerationJobRepository(db *gorm.DB, policy resilience.Policy, notFoundAsError bool) GenerationJobRepository {
	return &GenerationJobRepositoryImpl{db: db, policy: policy, notFoundAsError: notFoundAsError}
}

func (r *GenerationJobRepositoryImpl) Get(ctx context.Context, id int64) (*model.GenerationJob, error) {
	var job *model.GenerationJob
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var entity model.GenerationJobDataEntity
		if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if r.notFoundAsError {
					return fmt.Errorf("generation job %d: %w", id, apperror.ErrNotFound)
				}
				return nil
			}
			return err
		}
		j := entity.ToDomain()
		job = &j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *GenerationJobRepositoryImpl) Insert(ctx context.Context, job *model.GenerationJob) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		entity := model.GenerationJobFromDomain(job)
		return translateInsertError(r.db.WithContext(ctx).Create(&entity).Error)
	})
}

func (r *GenerationJobRepositoryImpl) UpdateProgress(ctx context.Context, id int64, status constant.JobStatus, completedUnits int) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		result := r.db.WithContext(ctx).
			Model(&model.GenerationJobDataEntity{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":          status,
				"completed_units": completedUnits,
				"updated_at":      time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("generation job %d: %w", id, apperror.ErrNotFound)
		}
		return nil
	})
}
