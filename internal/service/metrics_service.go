package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jt828/wolam/internal/constant"
	"github.com/jt828/wolam/internal/metrics"
	"github.com/jt828/wolam/internal/repository"
	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/idempotency"
	"github.com/jt828/wolam/pkg/model"
	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/snowflake"
	"golang.org/x/sync/errgroup"
)

// ErrJobPoolFull is returned by Submit when every job slot is taken.
var ErrJobPoolFull = fmt.Errorf("generation job pool is full: %w", apperror.ErrUnavailable)

var errServiceClosed = fmt.Errorf("metrics service is shutting down: %w", apperror.ErrUnavailable)

// GenerateParams carries the createMetrics form values. MetricCount is the
// raw submitted value; it is parsed and bounded by the service.
type GenerateParams struct {
	MetricCount string
	Environment string
	Region      string
}

// CreateMetricsRequest carries the raw createMetrics form. Async and
// IdempotencyId are parsed after the call has been counted.
type CreateMetricsRequest struct {
	Params        GenerateParams
	Async         string
	IdempotencyId string
}

// CreateMetricsResult holds Completed for a synchronous run, Job for a
// scheduled one.
type CreateMetricsResult struct {
	Completed int
	Job       *model.GenerationJob
	Replayed  bool
}

type MetricsService interface {
	// Create serves one createMetrics call: synchronous generation, or a
	// background job when Async is true.
	Create(ctx context.Context, req CreateMetricsRequest) (CreateMetricsResult, error)
	// Generate runs MetricCount generation units in the caller's goroutine
	// and returns how many completed.
	Generate(ctx context.Context, params GenerateParams) (int, error)
	// Submit schedules a background generation job. With a positive
	// idempotencyId a repeated submission returns the first job and true.
	Submit(ctx context.Context, idempotencyId int64, params GenerateParams) (*model.GenerationJob, bool, error)
	GetJob(ctx context.Context, id int64) (*model.GenerationJob, error)
	// Close cancels running jobs and waits for them to record their state.
	Close(ctx context.Context) error
}

type MetricsServiceConfig struct {
	UnitDelay         time.Duration
	MaxMetricCount    int
	MaxConcurrentJobs int
}

type MetricsServiceOption func(*metricsService)

// WithRandom replaces the source of the generated gauge and summary values.
// fn must return values in [0, 1).
func WithRandom(fn func() float64) MetricsServiceOption {
	return func(s *metricsService) {
		s.random = fn
	}
}

type metricsService struct {
	cfg         MetricsServiceConfig
	registry    *metrics.Registry
	log         observability.Logger
	tracer      observability.Tracer
	uowFactory  repository.UnitOfWorkFactory
	idempotency idempotency.Idempotency
	snowflake   snowflake.Snowflake
	random      func() float64

	jobs   errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewMetricsService(
	cfg MetricsServiceConfig,
	registry *metrics.Registry,
	log observability.Logger,
	tracer observability.Tracer,
	uowFactory repository.UnitOfWorkFactory,
	idempotency idempotency.Idempotency,
	snowflake snowflake.Snowflake,
	opts ...MetricsServiceOption,
) MetricsService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &metricsService{
		cfg:         cfg,
		registry:    registry,
		log:         log,
		tracer:      tracer,
		uowFactory:  uowFactory,
		idempotency: idempotency,
		snowflake:   snowflake,
		random:      rand.Float64,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.MaxConcurrentJobs > 0 {
		s.jobs.SetLimit(cfg.MaxConcurrentJobs)
	}
	return s
}

func (s *metricsService) Generate(ctx context.Context, params GenerateParams) (int, error) {
	defer s.registry.RequestTime.Start()()

	count, err := s.begin(params)
	if err != nil {
		return 0, err
	}
	return s.generate(ctx, count, params, nil)
}

func (s *metricsService) Create(ctx context.Context, req CreateMetricsRequest) (CreateMetricsResult, error) {
	defer s.registry.RequestTime.Start()()

	count, err := s.begin(req.Params)
	if err != nil {
		return CreateMetricsResult{}, err
	}

	async, err := parseAsync(req.Async)
	if err != nil {
		return CreateMetricsResult{}, err
	}
	if !async {
		done, err := s.generate(ctx, count, req.Params, nil)
		return CreateMetricsResult{Completed: done}, err
	}

	idempotencyId, err := parseIdempotencyId(req.IdempotencyId)
	if err != nil {
		return CreateMetricsResult{}, err
	}
	job, replayed, err := s.submit(ctx, idempotencyId, count, req.Params)
	if err != nil {
		return CreateMetricsResult{}, err
	}
	return CreateMetricsResult{Job: job, Replayed: replayed}, nil
}

func (s *metricsService) Submit(ctx context.Context, idempotencyId int64, params GenerateParams) (*model.GenerationJob, bool, error) {
	defer s.registry.RequestTime.Start()()

	count, err := s.begin(params)
	if err != nil {
		return nil, false, err
	}
	return s.submit(ctx, idempotencyId, count, params)
}

func (s *metricsService) submit(ctx context.Context, idempotencyId int64, count int, params GenerateParams) (*model.GenerationJob, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, errServiceClosed
	}

	// The slot is taken before the job is stored so a full pool never
	// leaves a pending job behind.
	start := make(chan *model.GenerationJob, 1)
	if !s.jobs.TryGo(func() error {
		job, ok := <-start
		if ok {
			s.runJob(job)
		}
		return nil
	}) {
		return nil, false, ErrJobPoolFull
	}

	job, replayed, err := s.createJob(ctx, idempotencyId, count, params)
	if idempotencyId > 0 && errors.Is(err, repository.ErrDuplicateKey) {
		// A concurrent submission stored the record first; replay it.
		job, replayed, err = s.createJob(ctx, idempotencyId, count, params)
	}
	if err != nil || replayed {
		close(start)
		return job, replayed, err
	}
	start <- job
	return job, false, nil
}

func (s *metricsService) GetJob(ctx context.Context, id int64) (*model.GenerationJob, error) {
	uow, err := s.uowFactory.New(ctx)
	if err != nil {
		return nil, err
	}

	job, err := uow.GenerationJobRepository().Get(ctx, id)
	if err != nil {
		_ = uow.Abort(ctx)
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	if job == nil {
		return nil, fmt.Errorf("generation job %d: %w", id, apperror.ErrNotFound)
	}
	return job, nil
}

func (s *metricsService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.jobs.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *metricsService) parseCount(raw string) (int, error) {
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &apperror.InvalidParameterError{Param: "metriccount", Value: raw, Reason: "must be an integer"}
	}
	if count < 0 {
		return 0, &apperror.InvalidParameterError{Param: "metriccount", Value: raw, Reason: "must not be negative"}
	}
	if s.cfg.MaxMetricCount > 0 && count > s.cfg.MaxMetricCount {
		return 0, &apperror.InvalidParameterError{
			Param:  "metriccount",
			Value:  raw,
			Reason: fmt.Sprintf("must not exceed %d", s.cfg.MaxMetricCount),
		}
	}
	return count, nil
}

func parseAsync(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &apperror.InvalidParameterError{Param: "async", Value: raw, Reason: "must be a boolean"}
	}
	return v, nil
}

func parseIdempotencyId(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &apperror.InvalidParameterError{Param: "idempotency_id", Value: raw, Reason: "must be a positive integer"}
	}
	return id, nil
}

// begin counts the createMetrics call and parses the unit count.
func (s *metricsService) begin(params GenerateParams) (int, error) {
	if err := s.registry.CreateCount.Inc(1); err != nil {
		s.log.Error("failed to count createMetrics call", observability.Err(err))
	}
	count, err := s.parseCount(params.MetricCount)
	if err != nil {
		return 0, err
	}
	err = s.registry.RecordAPICall(metrics.APICall{
		Method:      "post",
		Endpoint:    "/createMetrics",
		Environment: params.Environment,
		Region:      params.Region,
	})
	return count, err
}

var unitCalls = []metrics.APICall{
	{Method: "post", Endpoint: "/logit"},
	{Method: "post", Endpoint: "/setLogLevel"},
	{Method: "get", Endpoint: "/log"},
	{Method: "get", Endpoint: "/monitor"},
}

// unit records one round of synthetic traffic.
func (s *metricsService) unit(params GenerateParams) error {
	for _, call := range unitCalls {
		call.Environment, call.Region = params.Environment, params.Region
		if err := s.registry.RecordAPICall(call); err != nil {
			return err
		}
	}
	if err := s.registry.ActiveSessions.Set(s.random()*15 - 5); err != nil {
		return err
	}
	return s.registry.Summary.Observe(s.random() * 10)
}

// generate runs count units, pausing UnitDelay after every unit. progress,
// when set, is called with the number of completed units.
func (s *metricsService) generate(ctx context.Context, count int, params GenerateParams, progress func(done int)) (int, error) {
	for done := 0; done < count; {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.unit(params); err != nil {
			return done, err
		}
		done++
		if progress != nil {
			progress(done)
		}
		if err := sleep(ctx, s.cfg.UnitDelay); err != nil {
			return done, err
		}
	}
	return count, nil
}

func (s *metricsService) createJob(ctx context.Context, idempotencyId int64, count int, params GenerateParams) (*model.GenerationJob, bool, error) {
	uow, err := s.uowFactory.New(ctx)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	job := &model.GenerationJob{
		Id:          s.snowflake.Generate(),
		MetricCount: count,
		Region:      params.Region,
		Environment: params.Environment,
		Status:      constant.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	insert := func() (*model.GenerationJob, error) {
		if err := uow.GenerationJobRepository().Insert(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}

	var (
		result   *model.GenerationJob
		replayed bool
	)
	if idempotencyId > 0 {
		result, replayed, err = idempotency.Run(ctx, s.idempotency, uow.IdempotencyRecordRepository(), idempotency.Key{
			Id:          idempotencyId,
			RequestType: constant.RequestTypeCreateMetrics,
			ReferenceId: job.Id,
		}, insert)
	} else {
		result, err = insert()
	}
	if err != nil {
		_ = uow.Abort(ctx)
		return nil, false, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, false, err
	}

	if replayed {
		current, err := s.GetJob(ctx, result.Id)
		if err != nil {
			return nil, false, err
		}
		return current, true, nil
	}
	return result, false, nil
}

func (s *metricsService) runJob(job *model.GenerationJob) {
	defer s.registry.JobDuration.Start()()

	ctx, span := s.tracer.Start(s.ctx, "generation_job")
	defer span.End()
	span.SetString("job.id", s.snowflake.Format(job.Id))

	log := s.log.With(observability.Int64("job_id", job.Id))
	log.Info("generation job started", observability.Int("metric_count", job.MetricCount))

	if err := s.updateJob(ctx, job.Id, constant.JobStatusRunning, 0); err != nil {
		log.Error("failed to mark generation job running", observability.Err(err))
	}

	params := GenerateParams{Environment: job.Environment, Region: job.Region}
	done, err := s.generate(ctx, job.MetricCount, params, func(done int) {
		if err := s.updateJob(ctx, job.Id, constant.JobStatusRunning, done); err != nil {
			log.Warn("failed to record generation job progress", observability.Err(err))
		}
	})

	status := constant.JobStatusCompleted
	switch {
	case errors.Is(err, context.Canceled):
		status = constant.JobStatusCancelled
	case err != nil:
		status = constant.JobStatusFailed
		span.RecordError(err)
		log.Error("generation job failed", observability.Err(err))
	}

	// Shutdown cancels ctx; the final state is still written.
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.updateJob(finalCtx, job.Id, status, done); err != nil {
		log.Error("failed to record generation job result", observability.Err(err))
		return
	}
	log.Info("generation job finished",
		observability.String("status", string(status)),
		observability.Int("completed_units", done),
	)
}

func (s *metricsService) updateJob(ctx context.Context, id int64, status constant.JobStatus, completedUnits int) error {
	uow, err := s.uowFactory.New(ctx)
	if err != nil {
		return err
	}

	if err := uow.GenerationJobRepository().UpdateProgress(ctx, id, status, completedUnits); err != nil {
		_ = uow.Abort(ctx)
		return err
	}

	return uow.Commit(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
