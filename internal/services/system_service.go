package services

import (
	"context"
	"errors"
	"time"

	"github.com/weinhalle/shop/internal/repositories"
)

// BuildInfo captures version metadata reported by the health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

var errSystemHealthRequired = errors.New("system service: health repository is required")

// ErrSystemUnavailable indicates health collection failed outright.
var ErrSystemUnavailable = errors.New("system service: unavailable")

// SystemServiceDeps wires the dependency probes for health reporting.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Logger func(context.Context, string, map[string]any)
}

type systemService struct {
	health repositories.HealthRepository
	logger func(context.Context, string, map[string]any)
}

// NewSystemService constructs a SystemService.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errSystemHealthRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &systemService{health: deps.Health, logger: logger}, nil
}

// Health collects the dependency probe report.
func (s *systemService) Health(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return SystemHealthReport{}, err
		}
		s.logger(ctx, "system.health_failed", map[string]any{"error": err.Error()})
		return SystemHealthReport{}, ErrSystemUnavailable
	}
	return report, nil
}
