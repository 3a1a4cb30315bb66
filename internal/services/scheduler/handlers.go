package scheduler

import (
	"context"
	"errors"
)

// Handler names understood by the service.
const (
	HandlerLicenseSweep = "license.expirySweep"

	LicenseSweepSlug = "license-expiry-sweep"
)

func (s *Service) registerBuiltinHandlers() {
	s.RegisterHandler(HandlerLicenseSweep, s.handleLicenseSweep)
}

// handleLicenseSweep never fails the job on delivery problems; the sweep
// counts them instead.
func (s *Service) handleLicenseSweep(ctx context.Context, job *Job) error {
	if s.sweeper == nil {
		s.logger.Warn().Msg("license sweeper unavailable, skipping sweep")
		return nil
	}
	res := s.sweeper.Sweep(ctx)
	s.metrics.recordSweep(res)
	s.logger.Info().
		Int("licenses", res.Licenses).
		Int("notified", res.Notified).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("license sweep completed")
	if res.Licenses == 0 && res.Failed > 0 {
		return errors.New("license sweep could not load expiring licenses")
	}
	return nil
}

// DefaultJobs returns the built-in job set.
func DefaultJobs() []*Job {
	return []*Job{
		{
			Name:           "License Expiry Reminders",
			Slug:           LicenseSweepSlug,
			Handler:        HandlerLicenseSweep,
			Schedule:       "0 0 * * *",
			TimeoutSeconds: 600,
		},
	}
}
