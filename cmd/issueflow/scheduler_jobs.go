package main

import (
	"strings"

	"github.com/goatkit/issueflow/internal/config"
	"github.com/goatkit/issueflow/internal/services/scheduler"
)

// buildSchedulerJobsFromConfig returns the built-in jobs with the configured
// sweep schedule applied. When scheduler.jobs is set, only the
// listed slugs run.
func buildSchedulerJobsFromConfig(cfg *config.Config) []*scheduler.Job {
	jobs := scheduler.DefaultJobs()
	if cfg == nil {
		return jobs
	}

	for _, job := range jobs {
		if job == nil || job.Slug != scheduler.LicenseSweepSlug {
			continue
		}
		if schedule := strings.TrimSpace(cfg.Scheduler.LicenseSweep); schedule != "" {
			job.Schedule = schedule
		}
	}

	if len(cfg.Scheduler.Jobs) == 0 {
		return jobs
	}
	enabled := make(map[string]bool, len(cfg.Scheduler.Jobs))
	for _, slug := range cfg.Scheduler.Jobs {
		enabled[strings.TrimSpace(slug)] = true
	}
	for _, job := range jobs {
		if job != nil && !enabled[job.Slug] {
			jobs = filterJobsBySlug(jobs, job.Slug)
		}
	}
	return jobs
}

func filterJobsBySlug(jobs []*scheduler.Job, slug string) []*scheduler.Job {
	if slug == "" || len(jobs) == 0 {
		return jobs
	}
	filtered := make([]*scheduler.Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil || job.Slug == slug {
			continue
		}
		filtered = append(filtered, job)
	}
	return filtered
}
