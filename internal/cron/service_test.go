package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held   map[string]bool
	denied map[string]bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]bool{}, denied: map[string]bool{}}
}

func (f *fakeLock) Acquire(_ context.Context, job string) (bool, error) {
	if f.denied[job] || f.held[job] {
		return false, nil
	}
	f.held[job] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, job string) error {
	delete(f.held, job)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	lock := newFakeLock()
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(success, failure),
		Lock:     lock,
		Metrics:  cronMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runCycle(context.Background())

	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if len(lock.held) != 0 {
		t.Fatalf("expected every lock released, still held: %v", lock.held)
	}
	if got := cronCounterValue(t, reg, "storefront_cron_job_failure_total", "fail"); got != 1 {
		t.Fatalf("expected one failure recorded, got %v", got)
	}
}

func TestServiceSkipsJobsLockedElsewhere(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	prune := &testJob{name: "cart-prune"}
	retention := &testJob{name: "outbox-retention"}
	lock := newFakeLock()
	lock.denied["cart-prune"] = true
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(prune, retention),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runCycle(context.Background())

	if prune.runs != 0 {
		t.Fatalf("expected locked job to be skipped")
	}
	if retention.runs != 1 {
		t.Fatalf("expected unlocked job to run once, ran %d", retention.runs)
	}
}

func TestNewServiceRequiresLockAndLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "x"})}); err == nil {
		t.Fatal("expected error without lock")
	}
}

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryLockStore) LockKey(name string) string { return "sf:lock:" + name }

func TestRedisLockIsPerJobAndOwnerChecked(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, time.Minute)
	ctx := context.Background()

	if ok, _ := first.Acquire(ctx, "cart-prune"); !ok {
		t.Fatal("expected first instance to acquire cart-prune")
	}
	if ok, _ := second.Acquire(ctx, "cart-prune"); ok {
		t.Fatal("expected second instance to be refused")
	}
	if ok, _ := second.Acquire(ctx, "outbox-retention"); !ok {
		t.Fatal("expected a different job to be lockable")
	}

	if err := second.Release(ctx, "cart-prune"); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, ok := store.values["sf:lock:cart-prune"]; !ok {
		t.Fatal("non-owner release must not drop the lock")
	}
	if err := first.Release(ctx, "cart-prune"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := store.values["sf:lock:cart-prune"]; ok {
		t.Fatal("owner release should drop the lock")
	}
}

func cronCounterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{job=%q} not found", name, job)
	return 0
}

func TestServiceRetriesFailedJobsButWaitsOutCadence(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	retention := &testJob{name: "outbox-retention"}
	flaky := &testJob{name: "cart-prune", err: errors.New("mongo down")}
	registry := NewRegistry()
	if err := registry.RegisterEvery(retention, 24*time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.RegisterEvery(flaky, 24*time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}
	service, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: newFakeLock()})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	service.runCycle(context.Background())
	now = now.Add(time.Hour)
	service.runCycle(context.Background())

	if retention.runs != 1 {
		t.Fatalf("expected daily job to wait for its cadence, ran %d times", retention.runs)
	}
	if flaky.runs != 2 {
		t.Fatalf("expected failed job to be retried next cycle, ran %d times", flaky.runs)
	}
}
