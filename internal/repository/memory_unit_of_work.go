package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jt828/wolam/internal/constant"
	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/idempotency"
	"github.com/jt828/wolam/pkg/model"
)

var errUnitOfWorkDone = errors.New("unit of work already committed or aborted")

// memoryStore keeps jobs for the lifetime of the process. It is the job store
// when no database is configured.
type memoryStore struct {
	mu      sync.RWMutex
	jobs    map[int64]model.GenerationJob
	records map[int64]idempotency.Record
}

type memoryUnitOfWorkFactory struct {
	store *memoryStore
}

func NewMemoryUnitOfWorkFactory() UnitOfWorkFactory {
	return &memoryUnitOfWorkFactory{store: &memoryStore{
		jobs:    make(map[int64]model.GenerationJob),
		records: make(map[int64]idempotency.Record),
	}}
}

func (f *memoryUnitOfWorkFactory) New(ctx context.Context) (UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryUnitOfWork{store: f.store}, nil
}

func (f *memoryUnitOfWorkFactory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// memoryUnitOfWork reads committed state plus its own staged writes. Staged
// writes become visible to others on Commit and are dropped on Abort.
type memoryUnitOfWork struct {
	store *memoryStore

	mu      sync.Mutex
	done    bool
	jobs    map[int64]model.GenerationJob
	records map[int64]idempotency.Record
}

func (u *memoryUnitOfWork) GenerationJobRepository() GenerationJobRepository {
	return memoryGenerationJobRepository{u: u}
}

func (u *memoryUnitOfWork) IdempotencyRecordRepository() idempotency.RecordRepository {
	return memoryIdempotencyRecordRepository{u: u}
}

func (u *memoryUnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	// idempotency records are insert-only; a concurrent commit of the same
	// id wins and this one fails like a primary key violation would.
	for id := range u.records {
		if _, exists := u.store.records[id]; exists {
			return fmt.Errorf("idempotency record %d: %w", id, ErrDuplicateKey)
		}
	}
	for id, job := range u.jobs {
		u.store.jobs[id] = job
	}
	for id, record := range u.records {
		u.store.records[id] = record
	}
	return nil
}

func (u *memoryUnitOfWork) Abort(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true
	u.jobs, u.records = nil, nil
	return nil
}

func (u *memoryUnitOfWork) job(id int64) (model.GenerationJob, bool) {
	if job, ok := u.jobs[id]; ok {
		return job, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	job, ok := u.store.jobs[id]
	return job, ok
}

func (u *memoryUnitOfWork) record(id int64) (idempotency.Record, bool) {
	if record, ok := u.records[id]; ok {
		return record, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	record, ok := u.store.records[id]
	return record, ok
}

type memoryGenerationJobRepository struct {
	u *memoryUnitOfWork
}

func (r memoryGenerationJobRepository) Get(ctx context.Context, id int64) (*model.GenerationJob, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	job, ok := r.u.job(id)
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (r memoryGenerationJobRepository) Insert(ctx context.Context, job *model.GenerationJob) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return errUnitOfWorkDone
	}
	if _, exists := r.u.job(job.Id); exists {
		return fmt.Errorf("generation job %d: %w", job.Id, ErrDuplicateKey)
	}
	if r.u.jobs == nil {
		r.u.jobs = make(map[int64]model.GenerationJob)
	}
	r.u.jobs[job.Id] = *job
	return nil
}

func (r memoryGenerationJobRepository) UpdateProgress(ctx context.Context, id int64, status constant.JobStatus, completedUnits int) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return errUnitOfWorkDone
	}
	job, ok := r.u.job(id)
	if !ok {
		return fmt.Errorf("generation job %d: %w", id, apperror.ErrNotFound)
	}
	job.Status = status
	job.CompletedUnits = completedUnits
	job.UpdatedAt = time.Now().UTC()
	if r.u.jobs == nil {
		r.u.jobs = make(map[int64]model.GenerationJob)
	}
	r.u.jobs[id] = job
	return nil
}

type memoryIdempotencyRecordRepository struct {
	u *memoryUnitOfWork
}

func (r memoryIdempotencyRecordRepository) Get(ctx context.Context, id int64) (*idempotency.Record, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	record, ok := r.u.record(id)
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r memoryIdempotencyRecordRepository) Insert(ctx context.Context, record *idempotency.Record) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return errUnitOfWorkDone
	}
	if _, exists := r.u.record(record.Id); exists {
		return fmt.Errorf("idempotency record %d: %w", record.Id, ErrDuplicateKey)
	}
	if r.u.records == nil {
		r.u.records = make(map[int64]idempotency.Record)
	}
	r.u.records[record.Id] = *record
	return nil
}
