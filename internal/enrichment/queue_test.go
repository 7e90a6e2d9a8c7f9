package enrichment

import (
	"context"
	"testing"
	"time"

	"memescope/internal/domain"
)

func TestMemoryQueueDedupByKey(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	first := &Task{Address: "X", Stage: domain.StageInitial, ScheduledAtMs: 100, Priority: PriorityNormal, RiskBoost: 1}
	second := &Task{Address: "X", Stage: domain.StageInitial, ScheduledAtMs: 200, Priority: PriorityNormal, RiskBoost: 2}

	if err := q.Put(ctx, first, false); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := q.Put(ctx, second, false); err != nil {
		t.Fatalf("Put dup: %v", err)
	}
	if n, _ := q.Size(ctx); n != 1 {
		t.Fatalf("Size = %d, want 1", n)
	}

	got, err := q.tryPop(time.UnixMilli(1000))
	if err != nil || got == nil {
		t.Fatalf("tryPop: %v, %v", got, err)
	}
	if got.RiskBoost != 1 {
		t.Errorf("dedup kept the later task: RiskBoost = %d, want 1", got.RiskBoost)
	}
}

func TestMemoryQueuePutAllowUpdateOverwrites(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	if err := q.Put(ctx, &Task{Address: "X", Stage: domain.StageInitial, ScheduledAtMs: 100, Priority: PriorityNormal}, false); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := q.Put(ctx, &Task{Address: "X", Stage: domain.StageInitial, ScheduledAtMs: 200, Priority: PriorityNormal, RiskBoost: 9}, true); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, err := q.tryPop(time.UnixMilli(1000))
	if err != nil || got == nil {
		t.Fatalf("tryPop: %v, %v", got, err)
	}
	if got.RiskBoost != 9 || got.ScheduledAtMs != 200 {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestMemoryQueueHoldsFutureTasks(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	now := time.Now()
	future := now.Add(time.Minute).UnixMilli()
	if err := q.Put(ctx, &Task{Address: "X", Stage: domain.StageMin5, ScheduledAtMs: future, Priority: PriorityNormal}, false); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if got, _ := q.tryPop(now); got != nil {
		t.Fatalf("popped a task a minute before its schedule: %+v", got)
	}
	// Within the grace window it becomes poppable.
	if got, _ := q.tryPop(now.Add(time.Minute)); got == nil {
		t.Fatal("due task not popped")
	}
}

func TestMemoryQueueGetHonorsCancellation(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Get(ctx); err != context.Canceled {
		t.Fatalf("Get on cancelled ctx: %v", err)
	}
}

func TestMemoryQueuePurgeStale(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	nowMs := time.Now().UnixMilli()
	tasks := []*Task{
		// PRE_SCAN staleness limit is 5 minutes.
		{Address: "stale", Stage: domain.StagePreScan, ScheduledAtMs: nowMs - 10*time.Minute.Milliseconds(), Priority: PriorityNormal},
		{Address: "fresh", Stage: domain.StagePreScan, ScheduledAtMs: nowMs - time.Minute.Milliseconds(), Priority: PriorityNormal},
		// HOUR_1 tolerates three times its offset.
		{Address: "hourly", Stage: domain.StageHour1, ScheduledAtMs: nowMs - 2*time.Hour.Milliseconds(), Priority: PriorityNormal},
	}
	for _, task := range tasks {
		if err := q.Put(ctx, task, false); err != nil {
			t.Fatalf("Put(%s): %v", task.Address, err)
		}
	}

	purged, err := q.PurgeStale(ctx)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if n, _ := q.Size(ctx); n != 2 {
		t.Fatalf("Size after purge = %d, want 2", n)
	}
}

func TestMemoryQueueMigrateScores(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	if err := q.Put(ctx, &Task{Address: "old", Stage: domain.StageMin5, ScheduledAtMs: 500, Priority: PriorityNormal}, false); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := q.Put(ctx, &Task{Address: "newer", Stage: domain.StageMin5, ScheduledAtMs: 100, Priority: PriorityNormal}, false); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, err := q.MigrateScores(ctx)
	if err != nil {
		t.Fatalf("MigrateScores: %v", err)
	}
	if n != 2 {
		t.Fatalf("migrated = %d, want 2", n)
	}

	// Migrated tasks outrank a fresh normal task regardless of schedule.
	if err := q.Put(ctx, &Task{Address: "fresh", Stage: domain.StageInitial, ScheduledAtMs: 1, Priority: PriorityNormal}, false); err != nil {
		t.Fatalf("Put: %v", err)
	}
	now := time.UnixMilli(10_000)
	for _, want := range []string{"newer", "old", "fresh"} {
		got, err := q.tryPop(now)
		if err != nil || got == nil {
			t.Fatalf("tryPop: %v, %v", got, err)
		}
		if got.Address != want {
			t.Fatalf("pop order after migration: got %s, want %s", got.Address, want)
		}
	}
}
