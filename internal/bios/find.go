package bios

import (
	"context"

	"github.com/go-tangra/go-tangra-bios/internal/classify"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
)

// Find returns, in parse order, the settings matched by finder.
func (s *Service) Find(ctx context.Context, finder classify.Finder) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.parseAll(ctx)
	if err != nil {
		return nil, err
	}
	names := settings.Filter(func(r *scedump.Record) bool {
		return finder.Match(r.Name, r.IsPerformanceRelated)
	})
	s.logger.Info("found BIOS settings", "finder", string(finder), "settings", names)
	return names, nil
}

// FindPowerLimitParameters returns CPU power-limit settings.
func (s *Service) FindPowerLimitParameters(ctx context.Context) ([]string, error) {
	return s.Find(ctx, classify.PowerLimit)
}

// FindVoltageParameters returns CPU voltage settings.
func (s *Service) FindVoltageParameters(ctx context.Context) ([]string, error) {
	return s.Find(ctx, classify.Voltage)
}

// FindXMPParameters returns XMP/DOCP memory profile settings.
func (s *Service) FindXMPParameters(ctx context.Context) ([]string, error) {
	return s.Find(ctx, classify.XMP)
}

// FindCStateParameters returns C-state settings.
func (s *Service) FindCStateParameters(ctx context.Context) ([]string, error) {
	return s.Find(ctx, classify.CState)
}

// FindTurboBoostParameters returns Turbo Boost / Precision Boost settings.
func (s *Service) FindTurboBoostParameters(ctx context.Context) ([]string, error) {
	return s.Find(ctx, classify.Turbo)
}

// FindAllPerformanceParameters partitions every performance-related
// setting into exactly one bucket. Every bucket is present in the result,
// possibly empty.
func (s *Service) FindAllPerformanceParameters(ctx context.Context) (map[classify.Bucket][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.parseAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[classify.Bucket][]string)
	for _, b := range classify.Buckets() {
		out[b] = []string{}
	}
	for _, r := range settings.Records() {
		if !r.IsPerformanceRelated {
			continue
		}
		b := classify.BucketOf(r.Name)
		out[b] = append(out[b], r.Name)
	}
	return out, nil
}
