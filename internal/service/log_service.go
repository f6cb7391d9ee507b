package service

import (
	"context"

	"github.com/jt828/wolam/internal/metrics"
	"github.com/jt828/wolam/pkg/observability"
)

type LogService interface {
	// Logit writes message to the application logger at level. An
	// unrecognized level only produces a diagnostic.
	Logit(ctx context.Context, message, level string)
	// SetLogLevel changes the application logger threshold and reports
	// whether level was recognized.
	SetLogLevel(ctx context.Context, level string) bool
}

type logService struct {
	log      observability.Logger
	appLog   observability.Logger
	registry *metrics.Registry
}

// NewLogService takes the service diagnostic logger and the
// severity-controlled application logger.
func NewLogService(log observability.Logger, appLog observability.Logger, registry *metrics.Registry) LogService {
	return &logService{log: log, appLog: appLog, registry: registry}
}

func (s *logService) Logit(ctx context.Context, message, level string) {
	if err := s.registry.LogitCount.Inc(1); err != nil {
		s.log.Error("failed to count logit call", observability.Err(err))
	}

	s.log.Info("logit",
		observability.String("message", message),
		observability.String("level", level),
	)

	l, ok := observability.ParseLevel(level)
	if !ok {
		s.log.Info("no valid combination passed in", observability.String("level", level))
		return
	}
	s.appLog.Log(l, message)
}

func (s *logService) SetLogLevel(ctx context.Context, level string) bool {
	if err := s.registry.SetLevelCount.Inc(1); err != nil {
		s.log.Error("failed to count setLogLevel call", observability.Err(err))
	}

	s.log.Info("setLogLevel", observability.String("level", level))

	l, ok := observability.ParseLevel(level)
	if !ok {
		s.log.Info("no valid level passed in", observability.String("level", level))
		return false
	}
	s.appLog.SetLevel(l)
	return true
}
