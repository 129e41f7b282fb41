package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesPublishedAndDeadRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{rows: 7}
	dlq := &fakeDLQRetentionRepo{rows: 2}
	job := newOutboxRetentionJob(t, repo, dlq)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if !dlq.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected dlq cutoff %s, got %s", expectedCutoff, dlq.lastCutoff)
	}
	if repo.called != 1 || dlq.called != 1 {
		t.Fatalf("expected each repo called once, got %d and %d", repo.called, dlq.called)
	}
}

func TestOutboxRetentionJobRunsBothDeletesOnError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("outbox boom")}
	dlq := &fakeDLQRetentionRepo{err: errors.New("dlq boom")}
	job := newOutboxRetentionJob(t, repo, dlq)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if dlq.called != 1 {
		t.Fatalf("expected dlq cleanup to run after outbox failure")
	}
	if !strings.Contains(err.Error(), "outbox boom") || !strings.Contains(err.Error(), "dlq boom") {
		t.Fatalf("expected both failures in error, got %v", err)
	}
}

func TestOutboxRetentionJobRequiresDependencies(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{}); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, dlq *fakeDLQRetentionRepo) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		DLQ:        dlq,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	rows       int64
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}

type fakeDLQRetentionRepo struct {
	lastCutoff time.Time
	called     int
	rows       int64
	err        error
}

func (f *fakeDLQRetentionRepo) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}
