package tickets

import (
	"context"
	"testing"
	"time"
)

func TestCutoffSweepIsGatedOnClosingTime(t *testing.T) {
	clock := openClock()
	now := func() time.Time { return clock }
	schedule := testSchedule(t, now)
	repo := newFakeRepo()
	svc := NewService(repo, schedule, EngineConfig{}, nil)
	jp := NewJobProcessor(svc, schedule, nil)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1111111111111", OfficeCashier, false); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Mid-morning tick: nothing happens.
	jp.sweepCutoff(ctx)
	waiting, _ := repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateOnQueue)
	if waiting != 1 {
		t.Fatalf("sweep before closing should be a no-op, %d waiting", waiting)
	}

	// Past closing: the waiting ticket is cancelled.
	clock = time.Date(2025, 3, 10, 17, 2, 0, 0, time.UTC)
	jp.sweepCutoff(ctx)
	waiting, _ = repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateOnQueue)
	if waiting != 0 {
		t.Fatalf("sweep after closing should cancel, %d still waiting", waiting)
	}
	cutOff, _ := repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateCutOff)
	if cutOff != 1 {
		t.Fatalf("expected 1 cut-off ticket, got %d", cutOff)
	}
}

func TestHoldSweepCancelsOnlyExpiredHolds(t *testing.T) {
	clock := openClock()
	now := func() time.Time { return clock }
	schedule := testSchedule(t, now)
	repo := newFakeRepo()
	svc := NewService(repo, schedule, EngineConfig{HoldTimeout: 30 * time.Minute}, nil)
	jp := NewJobProcessor(svc, schedule, nil)
	ctx := context.Background()

	// First ticket goes on hold now, second twenty minutes later.
	for _, id := range []string{"1111111111111", "2222222222221"} {
		if _, err := svc.Issue(ctx, id, OfficeCashier, false); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Hold(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("hold: %v", err)
	}

	clock = openClock().Add(20 * time.Minute)
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if _, err := svc.Hold(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("second hold: %v", err)
	}

	// 35 minutes in: only the first hold has aged out.
	clock = openClock().Add(35 * time.Minute)
	jp.sweepHolds(ctx)

	onHold, _ := repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateOnHold)
	if onHold != 1 {
		t.Fatalf("expected 1 surviving hold, got %d", onHold)
	}
	cutOff, _ := repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateCutOff)
	if cutOff != 1 {
		t.Fatalf("expected 1 expired hold, got %d", cutOff)
	}
}

func TestJobProcessorStartStop(t *testing.T) {
	schedule := testSchedule(t, openClock)
	svc := NewService(newFakeRepo(), schedule, EngineConfig{}, nil)
	jp := NewJobProcessor(svc, schedule, &JobConfig{
		CutoffSweepInterval: 10 * time.Millisecond,
		HoldSweepInterval:   10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jp.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	jp.Stop()

	status := jp.GetJobStatus()
	if status["status"] != "running" {
		t.Fatalf("unexpected job status: %v", status)
	}
}
