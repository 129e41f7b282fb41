package cron

import (
	"context"
	"fmt"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks the cron jobs and how often each one is due. A job
// registered without a cadence is due on every cycle.
type Registry struct {
	entries []*registryEntry
}

type registryEntry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// NewRegistry builds a registry of jobs due every cycle. Nil jobs and
// repeated names are ignored.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		_ = registry.RegisterEvery(job, 0)
	}
	return registry
}

// Register adds a job that is due every cycle.
func (r *Registry) Register(job Job) error {
	return r.RegisterEvery(job, 0)
}

// RegisterEvery adds a job that runs at most once per every.
func (r *Registry) RegisterEvery(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	if r.find(job.Name()) != nil {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.entries = append(r.entries, &registryEntry{job: job, every: every})
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Due returns the jobs whose cadence has elapsed at now, in order.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, e := range r.entries {
		if e.lastRun.IsZero() || e.every <= 0 || !now.Before(e.lastRun.Add(e.every)) {
			due = append(due, e.job)
		}
	}
	return due
}

// MarkRun records that the named job was handled at the given time.
func (r *Registry) MarkRun(name string, at time.Time) {
	if e := r.find(name); e != nil {
		e.lastRun = at
	}
}

func (r *Registry) find(name string) *registryEntry {
	for _, e := range r.entries {
		if e.job.Name() == name {
			return e
		}
	}
	return nil
}
