package debugstats

import (
	"context"
	"fmt"
	"github.com/jonboulle/clockwork"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/service"
	"go.uber.org/zap"
	"runtime"
	"time"
)

type Config struct {
	// IsEnabled describes whether periodic debug stats logging is desired.
	IsEnabled bool
	// Interval in which to log debug stats.
	Interval time.Duration
	// IncludeStack adds the stack of all goroutines to each entry.
	IncludeStack bool
}

// Source provides additional fields for each debug stats entry.
type Source interface {
	DebugStats() []zap.Field
}

type debugStatsService struct {
	logger  *zap.Logger
	clock   clockwork.Clock
	config  Config
	sources []Source
}

// NewService creates a service.Service that logs system and arena stats in the
// configured interval.
func NewService(logger *zap.Logger, clock clockwork.Clock, config Config, sources ...Source) (service.Service, error) {
	if config.IsEnabled && config.Interval <= 0 {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "interval must be positive",
			errors.Details{"interval": config.Interval.String()})
	}
	return &debugStatsService{
		logger:  logger,
		clock:   clock,
		config:  config,
		sources: sources,
	}, nil
}

func (s *debugStatsService) Run(ctx context.Context) error {
	if !s.config.IsEnabled {
		return nil
	}
	s.logger.Debug(fmt.Sprintf("logging system state every %gs", s.config.Interval.Seconds()))
	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.logger.Debug("debug system stats", s.fields()...)
		}
	}
}

// fields gathers the current system state like memory stats and the amount of
// goroutines as well as the fields of all sources.
func (s *debugStatsService) fields() []zap.Field {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fields := []zap.Field{
		zap.Int("num_cpu", runtime.NumCPU()),
		zap.Int("num_goroutine", runtime.NumGoroutine()),
		zap.Uint64("memory_in_use_mb", memStats.Sys/1000/1000),
	}
	for _, source := range s.sources {
		fields = append(fields, source.DebugStats()...)
	}
	if s.config.IncludeStack {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, true)
		fields = append(fields, zap.String("stack", string(buf[:stackSize])))
	}
	return fields
}
