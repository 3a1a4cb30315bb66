package main

import (
	"testing"

	"github.com/goatkit/issueflow/internal/config"
	"github.com/goatkit/issueflow/internal/services/scheduler"
)

func TestBuildSchedulerJobsFromConfigDefaultsWhenNil(t *testing.T) {
	jobs := buildSchedulerJobsFromConfig(nil)
	if len(jobs) == 0 {
		t.Fatalf("expected default jobs, got none")
	}
	job := findJobBySlug(jobs, scheduler.LicenseSweepSlug)
	if job == nil {
		t.Fatalf("expected license sweep job by default")
	}
	if job.Schedule != "0 0 * * *" {
		t.Fatalf("unexpected default schedule: %s", job.Schedule)
	}
}

func TestBuildSchedulerJobsFromConfigAppliesSchedule(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.LicenseSweep = "30 6 * * 1-5"

	job := findJobBySlug(buildSchedulerJobsFromConfig(cfg), scheduler.LicenseSweepSlug)
	if job == nil {
		t.Fatalf("expected license sweep job present")
	}
	if job.Schedule != "30 6 * * 1-5" {
		t.Fatalf("expected configured schedule, got %s", job.Schedule)
	}
}

func TestBuildSchedulerJobsFromConfigBlankScheduleKeepsDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.LicenseSweep = "  "

	job := findJobBySlug(buildSchedulerJobsFromConfig(cfg), scheduler.LicenseSweepSlug)
	if job == nil || job.Schedule != "0 0 * * *" {
		t.Fatalf("expected default schedule, got %+v", job)
	}
}

func TestBuildSchedulerJobsFromConfigFiltersBySlug(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.Jobs = []string{"something-else"}

	if job := findJobBySlug(buildSchedulerJobsFromConfig(cfg), scheduler.LicenseSweepSlug); job != nil {
		t.Fatalf("expected license sweep job to be removed when not listed")
	}

	cfg.Scheduler.Jobs = []string{" " + scheduler.LicenseSweepSlug}
	if job := findJobBySlug(buildSchedulerJobsFromConfig(cfg), scheduler.LicenseSweepSlug); job == nil {
		t.Fatalf("expected listed job to be kept")
	}
}

func TestFilterJobsBySlug(t *testing.T) {
	jobs := []*scheduler.Job{{Slug: "a"}, nil, {Slug: "b"}}

	got := filterJobsBySlug(jobs, "a")
	if len(got) != 1 || got[0].Slug != "b" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if got := filterJobsBySlug(jobs, ""); len(got) != len(jobs) {
		t.Fatalf("empty slug should not filter")
	}
}

func findJobBySlug(jobs []*scheduler.Job, slug string) *scheduler.Job {
	for _, job := range jobs {
		if job != nil && job.Slug == slug {
			return job
		}
	}
	return nil
}
