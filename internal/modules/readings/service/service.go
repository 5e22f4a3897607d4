// Package service runs the derived-metrics calculator for every input record and fans the
// results out to the configured sinks.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"envirogram/internal/derived"
	"envirogram/internal/stats"
)

// Sink receives every computed record.
type Sink interface {
	Name() string
	Consume(ctx context.Context, rec derived.OutputRecord) error
}

type Service struct {
	calc   atomic.Pointer[derived.Calculator]
	sinks  []Sink
	stats  *stats.Counters
	logger *slog.Logger
}

func NewService(calc *derived.Calculator, counters *stats.Counters, logger *slog.Logger, sinks ...Sink) *Service {
	if counters == nil {
		counters = stats.NewCounters()
	}
	s := &Service{sinks: sinks, stats: counters, logger: logger}
	s.calc.Store(calc)
	return s
}

// SetCalculator replaces the calculator used by subsequent calls to Handle.
func (s *Service) SetCalculator(calc *derived.Calculator) {
	s.calc.Store(calc)
	s.logger.Info("calculator replaced", "location", calc.Location())
}

func (s *Service) Calculator() *derived.Calculator {
	return s.calc.Load()
}

// Handle computes the output record for in and delivers it to every sink. It reports
// false when the input was rejected.
func (s *Service) Handle(ctx context.Context, in derived.InputRecord) (derived.OutputRecord, bool) {
	s.stats.IncReceived()

	out, ok := s.calc.Load().Compute(in)
	if !ok {
		s.stats.IncDropped()
		return derived.OutputRecord{}, false
	}
	s.stats.IncComputed()

	for _, sink := range s.sinks {
		if err := sink.Consume(ctx, out); err != nil {
			s.stats.IncSinkFailure(sink.Name())
			s.logger.Error("sink failed", "sink", sink.Name(), "error", err)
		}
	}
	return out, true
}

// HandleMessage adapts Handle to the MQTT subscriber callback.
func (s *Service) HandleMessage(ctx context.Context) func(derived.InputRecord) {
	return func(in derived.InputRecord) {
		if out, ok := s.Handle(ctx, in); ok {
			s.logger.Debug("derived record",
				"location", out.Location,
				"dew_point", out.DewPoint,
				"timestamp", out.ISOTimestamp,
			)
		}
	}
}
