package tickets

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"queuedesk/internal/hours"
)

// fakeRepo is an in-memory Repository whose methods take a single lock,
// giving the same atomicity the SQL statements give in production.
type fakeRepo struct {
	mu       sync.Mutex
	tickets  []*Ticket
	counters map[string]int
	failAll  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{counters: make(map[string]int)}
}

type fakeStoreError struct{}

func (fakeStoreError) Error() string { return "store down" }

func (f *fakeRepo) counterKey(office Office, dayKey string, priority bool) string {
	k := string(office) + "|" + dayKey + "|s"
	if priority {
		k = string(office) + "|" + dayKey + "|p"
	}
	return k
}

func (f *fakeRepo) AllocateSequence(_ context.Context, office Office, dayKey string, priority bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, fakeStoreError{}
	}
	key := f.counterKey(office, dayKey, priority)
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeRepo) InsertTicket(_ context.Context, ticket *Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fakeStoreError{}
	}
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	clone := *ticket
	f.tickets = append(f.tickets, &clone)
	return nil
}

func (f *fakeRepo) GetByDisplayNumber(_ context.Context, office Office, dayKey, displayNumber string) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.DisplayNumber == displayNumber {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CountActive(_ context.Context, requesterID string, office Office, dayKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, fakeStoreError{}
	}
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.RequesterID != nil && *t.RequesterID == requesterID && t.State.IsActive() {
			n++
		}
	}
	return n, nil
}

// sortServing orders the slice priority first, then by sequence.
func sortServing(ts []*Ticket) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Priority != ts[j].Priority {
			return ts[i].Priority
		}
		return ts[i].SequenceNumber < ts[j].SequenceNumber
	})
}

func (f *fakeRepo) ClaimNext(_ context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fakeStoreError{}
	}
	var waiting []*Ticket
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnQueue && t.ReservedBy == nil {
			waiting = append(waiting, t)
		}
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	sortServing(waiting)
	t := waiting[0]
	t.State = StateInProcess
	t.ReservedBy = &staff
	clone := *t
	return &clone, nil
}

func (f *fakeRepo) ClaimHeld(_ context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *Ticket
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnHold {
			if oldest == nil || (t.HoldStartedAt != nil && oldest.HoldStartedAt != nil && t.HoldStartedAt.Before(*oldest.HoldStartedAt)) {
				oldest = t
			}
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.State = StateInProcess
	oldest.ReservedBy = &staff
	oldest.HeldBy = nil
	oldest.HoldStartedAt = nil
	clone := *oldest
	return &clone, nil
}

func (f *fakeRepo) CompleteInProcess(_ context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fakeStoreError{}
	}
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateInProcess && t.ReservedBy != nil && *t.ReservedBy == staff {
			t.State = StateCompleted
			t.ReservedBy = nil
			t.CompletedBy = &staff
			completedAt := at
			t.CompletedAt = &completedAt
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) HoldInProcess(_ context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateInProcess && t.ReservedBy != nil && *t.ReservedBy == staff {
			t.State = StateOnHold
			t.ReservedBy = nil
			t.HeldBy = &staff
			heldAt := at
			t.HoldStartedAt = &heldAt
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CancelWaiting(_ context.Context, office Office, dayKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnQueue {
			t.State = StateCutOff
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CancelWaitingBySection(_ context.Context, office Office, dayKey string, section Section) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnQueue && t.Section == section {
			t.State = StateCutOff
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) PrioritizeSection(_ context.Context, office Office, dayKey string, section Section) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnQueue && t.Section == section && !t.Priority {
			t.Priority = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CancelExpiredHolds(_ context.Context, office Office, dayKey string, heldBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateOnHold && t.HoldStartedAt != nil && t.HoldStartedAt.Before(heldBefore) {
			t.State = StateCutOff
			t.HoldStartedAt = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListByState(_ context.Context, office Office, dayKey string, state State) ([]Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fakeStoreError{}
	}
	var matched []*Ticket
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == state {
			matched = append(matched, t)
		}
	}
	sortServing(matched)
	out := make([]Ticket, 0, len(matched))
	for _, t := range matched {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeRepo) CountByState(_ context.Context, office Office, dayKey string, state State) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == state {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CurrentInProcess(_ context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Office == office && t.DayKey == dayKey && t.State == StateInProcess && t.ReservedBy != nil && *t.ReservedBy == staff {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) StaffActivity(_ context.Context, office Office, dayKey, staff string) (*StaffActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	activity := &StaffActivity{}
	for _, t := range f.tickets {
		if t.Office != office || t.DayKey != dayKey {
			continue
		}
		switch {
		case t.State == StateOnHold && t.HeldBy != nil && *t.HeldBy == staff:
			activity.Held++
		case t.State == StateCompleted && t.CompletedBy != nil && *t.CompletedBy == staff:
			activity.Completed++
		case t.State == StateCutOff && t.HeldBy != nil && *t.HeldBy == staff:
			activity.CutOff++
		}
	}
	return activity, nil
}

// openClock returns a fixed mid-morning instant.
func openClock() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func testSchedule(t *testing.T, now func() time.Time) *hours.Schedule {
	t.Helper()
	s, err := hours.NewSchedule("06:00", "17:00", "12:00", "13:00", "UTC", hours.WithNowFunc(now))
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	return s
}

func newTestService(t *testing.T, now func() time.Time) (Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, testSchedule(t, now), EngineConfig{
		HoldTimeout:        30 * time.Minute,
		UnitServiceMinutes: 1.5,
	}, nil)
	return svc, repo
}

func TestIssueAssignsSequentialNumbers(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := svc.Issue(ctx, "9876543210122", OfficeCashier, false)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}

	if first.Ticket.SequenceNumber != 1 || second.Ticket.SequenceNumber != 2 {
		t.Fatalf("expected sequences 1,2 got %d,%d", first.Ticket.SequenceNumber, second.Ticket.SequenceNumber)
	}
	if first.Ticket.DisplayNumber != "S-0001-MAIN" {
		t.Fatalf("unexpected display number %q", first.Ticket.DisplayNumber)
	}
	if second.Ticket.DisplayNumber != "S-0002-SOUTH" {
		t.Fatalf("unexpected display number %q", second.Ticket.DisplayNumber)
	}
	if second.Position != 2 {
		t.Fatalf("expected position 2 got %d", second.Position)
	}
	if second.EstimatedMinutes != 1.5 {
		t.Fatalf("expected estimate 1.5 got %v", second.EstimatedMinutes)
	}
}

func TestIssuePrioritySequenceIsIndependent(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false); err != nil {
		t.Fatalf("issue standard: %v", err)
	}
	priority, err := svc.Issue(ctx, "9876543210121", OfficeCashier, true)
	if err != nil {
		t.Fatalf("issue priority: %v", err)
	}

	if priority.Ticket.SequenceNumber != 1 {
		t.Fatalf("priority lane should start at 1, got %d", priority.Ticket.SequenceNumber)
	}
	if priority.Ticket.DisplayNumber != "P-0001-MAIN" {
		t.Fatalf("unexpected display number %q", priority.Ticket.DisplayNumber)
	}
	// A priority ticket jumps the standard line.
	if priority.Position != 1 {
		t.Fatalf("priority ticket should be first in line, got position %d", priority.Position)
	}
}

func TestIssueRejectedOutsideHours(t *testing.T) {
	cases := []struct {
		name string
		hour int
		min  int
	}{
		{"before opening", 5, 59},
		{"during lunch", 12, 30},
		{"after closing", 17, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, func() time.Time {
				return time.Date(2025, 3, 10, tc.hour, tc.min, 0, 0, time.UTC)
			})
			_, err := svc.Issue(context.Background(), "1234567890121", OfficeCashier, false)
			if err == nil {
				t.Fatal("expected out-of-hours rejection")
			}
			if KindOf(err) != KindOutOfHours {
				t.Fatalf("expected OUT_OF_HOURS, got %s", KindOf(err))
			}
		})
	}
}

func TestIssueRejectsGarbageInput(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	for _, input := range []string{"", "12345", "abcdefghijklm", "12345678901234"} {
		_, err := svc.Issue(context.Background(), input, OfficeCashier, false)
		if KindOf(err) != KindInvalidInput {
			t.Fatalf("input %q: expected INVALID_INPUT, got %v", input, err)
		}
	}
}

func TestIssueRejectsUnknownOffice(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	_, err := svc.Issue(context.Background(), "1234567890121", Office("bookstore"), false)
	if KindOf(err) != KindInvalidOffice {
		t.Fatalf("expected INVALID_OFFICE, got %v", err)
	}
}

func TestDuplicateGuard(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	_, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false)
	if KindOf(err) != KindDuplicateTicket {
		t.Fatalf("expected DUPLICATE_ACTIVE_TICKET, got %v", err)
	}

	// Same student at a different office is fine.
	if _, err := svc.Issue(ctx, "1234567890121", OfficeRegistrar, false); err != nil {
		t.Fatalf("different office should be allowed: %v", err)
	}
}

func TestDuplicateGuardReleasedOnTerminalState(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.CompleteOnly(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false); err != nil {
		t.Fatalf("re-issue after completion should be allowed: %v", err)
	}
}

func TestGuestsAreNeverDuplicates(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := svc.Issue(ctx, "0000000000010", OfficeCashier, false)
		if err != nil {
			t.Fatalf("guest issue %d: %v", i, err)
		}
		if result.Ticket.Role != RequesterGuest {
			t.Fatalf("expected GUEST role, got %s", result.Ticket.Role)
		}
		if result.Ticket.RequesterID != nil {
			t.Fatal("guest tickets must not carry a requester ID")
		}
	}
}

func TestClaimNextServesPriorityFirst(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	standard, err := svc.Issue(ctx, "1234567890122", OfficeCashier, false)
	if err != nil {
		t.Fatalf("issue standard: %v", err)
	}
	priority, err := svc.Issue(ctx, "9876543210121", OfficeCashier, true)
	if err != nil {
		t.Fatalf("issue priority: %v", err)
	}

	first, err := svc.ClaimNext(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.Claimed == nil || first.Claimed.DisplayNumber != priority.Ticket.DisplayNumber {
		t.Fatalf("expected %s first, got %+v", priority.Ticket.DisplayNumber, first.Claimed)
	}

	second, err := svc.ClaimNext(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	// The second claim auto-completes the first ticket.
	if second.Completed == nil || second.Completed.DisplayNumber != priority.Ticket.DisplayNumber {
		t.Fatalf("expected auto-complete of %s, got %+v", priority.Ticket.DisplayNumber, second.Completed)
	}
	if second.Claimed == nil || second.Claimed.DisplayNumber != standard.Ticket.DisplayNumber {
		t.Fatalf("expected %s second, got %+v", standard.Ticket.DisplayNumber, second.Claimed)
	}
}

func TestClaimNextOnEmptyQueue(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	result, err := svc.ClaimNext(context.Background(), "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if result.Claimed != nil || result.Completed != nil {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestHoldAndResume(t *testing.T) {
	svc, repo := newTestService(t, openClock)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1234567890121", OfficeCashier, false); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}

	held, err := svc.Hold(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held == nil || held.State != StateOnHold {
		t.Fatalf("expected ON_HOLD ticket, got %+v", held)
	}
	if held.ReservedBy != nil {
		t.Fatal("held ticket must not stay reserved")
	}
	if held.HeldBy == nil || *held.HeldBy != "alice" {
		t.Fatal("held ticket should record who parked it")
	}

	// Holding again with nothing in process is a no-op, not an error.
	again, err := svc.Hold(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("second hold: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nil, got %+v", again)
	}

	resumed, err := svc.ResumeHeld(ctx, "bob", OfficeCashier)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Claimed == nil || resumed.Claimed.State != StateInProcess {
		t.Fatalf("expected IN_PROCESS after resume, got %+v", resumed.Claimed)
	}
	if resumed.Claimed.ReservedBy == nil || *resumed.Claimed.ReservedBy != "bob" {
		t.Fatal("resume should reserve for the resuming staff member")
	}

	onHold, _ := repo.CountByState(ctx, OfficeCashier, "2025-03-10", StateOnHold)
	if onHold != 0 {
		t.Fatalf("expected no tickets left on hold, got %d", onHold)
	}
}

func TestEstimateWaitUsesLivePosition(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	var numbers []string
	ids := []string{"1111111111111", "2222222222221", "3333333333331"}
	for _, id := range ids {
		result, err := svc.Issue(ctx, id, OfficeCashier, false)
		if err != nil {
			t.Fatalf("issue %s: %v", id, err)
		}
		numbers = append(numbers, result.Ticket.DisplayNumber)
	}

	estimate, err := svc.EstimateWait(ctx, OfficeCashier, numbers[2])
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if estimate.Position != 3 || estimate.EstimatedMinutes != 3.0 {
		t.Fatalf("expected position 3 / 3.0 min, got %d / %v", estimate.Position, estimate.EstimatedMinutes)
	}

	// Serving the head shortens everyone's estimate.
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	estimate, err = svc.EstimateWait(ctx, OfficeCashier, numbers[2])
	if err != nil {
		t.Fatalf("second estimate: %v", err)
	}
	if estimate.Position != 2 || estimate.EstimatedMinutes != 1.5 {
		t.Fatalf("expected position 2 / 1.5 min, got %d / %v", estimate.Position, estimate.EstimatedMinutes)
	}

	// A claimed ticket is no longer waiting.
	if _, err := svc.EstimateWait(ctx, OfficeCashier, numbers[0]); KindOf(err) != KindNotFound {
		t.Fatalf("expected NOT_FOUND for in-process ticket, got %v", err)
	}
}

func TestManualCancelRefusedWhileOpen(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	_, err := svc.CancelAllWaiting(context.Background(), OfficeCashier, false)
	if KindOf(err) != KindOutOfHours {
		t.Fatalf("expected OUT_OF_HOURS, got %v", err)
	}
}

func TestCancelAllWaitingAfterCutoff(t *testing.T) {
	clock := openClock()
	now := func() time.Time { return clock }
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	for _, id := range []string{"1111111111111", "2222222222221"} {
		if _, err := svc.Issue(ctx, id, OfficeCashier, false); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}

	clock = time.Date(2025, 3, 10, 17, 5, 0, 0, time.UTC)

	count, err := svc.CancelAllWaiting(ctx, OfficeCashier, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// Only the still-waiting ticket is cancelled; the in-process one is
	// untouched.
	if count != 1 {
		t.Fatalf("expected 1 cancellation, got %d", count)
	}
}

func TestForceCancelIgnoresHours(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1111111111111", OfficeCashier, false); err != nil {
		t.Fatalf("issue: %v", err)
	}
	count, err := svc.CancelAllWaiting(ctx, OfficeCashier, true)
	if err != nil {
		t.Fatalf("force cancel: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cancellation, got %d", count)
	}
}

func TestCancelExpiredHolds(t *testing.T) {
	clock := openClock()
	now := func() time.Time { return clock }
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "1111111111111", OfficeCashier, false); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Hold(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("hold: %v", err)
	}

	// 29 minutes on hold: survives.
	clock = openClock().Add(29 * time.Minute)
	count, err := svc.CancelExpiredHolds(ctx, OfficeCashier)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no expirations at 29m, got %d", count)
	}

	// 31 minutes: expired.
	clock = openClock().Add(31 * time.Minute)
	count, err = svc.CancelExpiredHolds(ctx, OfficeCashier)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expiration at 31m, got %d", count)
	}
}

func TestPrioritizeAndCancelSection(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	main, err := svc.Issue(ctx, "1111111111111", OfficeCashier, false)
	if err != nil {
		t.Fatalf("issue main: %v", err)
	}
	south, err := svc.Issue(ctx, "2222222222222", OfficeCashier, false)
	if err != nil {
		t.Fatalf("issue south: %v", err)
	}

	promoted, err := svc.PrioritizeSection(ctx, OfficeCashier, SectionSouth)
	if err != nil {
		t.Fatalf("prioritize: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("expected 1 promotion, got %d", promoted)
	}

	// The promoted South ticket now outranks the earlier Main one.
	first, err := svc.ClaimNext(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.Claimed == nil || first.Claimed.DisplayNumber != south.Ticket.DisplayNumber {
		t.Fatalf("expected promoted %s first, got %+v", south.Ticket.DisplayNumber, first.Claimed)
	}

	cancelled, err := svc.CancelSection(ctx, OfficeCashier, SectionMain)
	if err != nil {
		t.Fatalf("cancel section: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancellation, got %d", cancelled)
	}
	if _, err := svc.EstimateWait(ctx, OfficeCashier, main.Ticket.DisplayNumber); KindOf(err) != KindNotFound {
		t.Fatalf("cancelled ticket should no longer be waiting, got %v", err)
	}
}

func TestStatusSnapshot(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	for _, id := range []string{"1111111111111", "2222222222221", "3333333333331"} {
		if _, err := svc.Issue(ctx, id, OfficeCashier, false); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}

	status, err := svc.Status(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.OnQueueCount != 2 {
		t.Fatalf("expected 2 waiting, got %d", status.OnQueueCount)
	}
	if status.CurrentTicket == nil {
		t.Fatal("expected a current ticket for alice")
	}

	other, err := svc.Status(ctx, "bob", OfficeCashier)
	if err != nil {
		t.Fatalf("status bob: %v", err)
	}
	if other.CurrentTicket != nil {
		t.Fatal("bob should not see alice's ticket as his current one")
	}
}

func TestStaffActivityAttribution(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	ids := []string{"1111111111111", "2222222222221", "3333333333331"}
	for _, id := range ids {
		if _, err := svc.Issue(ctx, id, OfficeCashier, false); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	// alice completes one, holds one; bob serves the third.
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.CompleteOnly(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.ClaimNext(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Hold(ctx, "alice", OfficeCashier); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := svc.ClaimNext(ctx, "bob", OfficeCashier); err != nil {
		t.Fatalf("bob claim: %v", err)
	}

	activity, err := svc.StaffActivity(ctx, "alice", OfficeCashier)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if activity.Completed != 1 || activity.Held != 1 {
		t.Fatalf("expected alice 1 completed / 1 held, got %+v", activity)
	}
}

func TestStoreFailureSurfacesAsStoreUnavailable(t *testing.T) {
	svc, repo := newTestService(t, openClock)
	repo.failAll = true

	_, err := svc.Issue(context.Background(), "1234567890121", OfficeCashier, false)
	if KindOf(err) != KindStoreUnavailable {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestConcurrentIssueAllocatesDistinctSequences(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	const n = 40
	results := make(chan int, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every goroutine is a distinct guest so the duplicate guard
			// stays out of the way.
			result, err := svc.Issue(ctx, "0000000000010", OfficeCashier, false)
			if err != nil {
				errs <- err
				return
			}
			results <- result.Ticket.SequenceNumber
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent issue: %v", err)
	}
	seen := make(map[int]bool)
	for seq := range results {
		if seen[seq] {
			t.Fatalf("duplicate sequence %d handed out", seq)
		}
		seen[seq] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct sequences, got %d", n, len(seen))
	}
}

func TestConcurrentClaimsNeverShareATicket(t *testing.T) {
	svc, _ := newTestService(t, openClock)
	ctx := context.Background()

	const tickets = 10
	for i := 0; i < tickets; i++ {
		if _, err := svc.Issue(ctx, "0000000000010", OfficeCashier, false); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	const staffCount = 20
	claimed := make(chan string, staffCount)
	var wg sync.WaitGroup
	for i := 0; i < staffCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.ClaimNext(ctx, "staff-"+string(rune('a'+i)), OfficeCashier)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if result.Claimed != nil {
				claimed <- result.Claimed.DisplayNumber
			}
		}(i)
	}
	wg.Wait()
	close(claimed)

	seen := make(map[string]bool)
	for number := range claimed {
		if seen[number] {
			t.Fatalf("ticket %s claimed twice", number)
		}
		seen[number] = true
	}
	if len(seen) != tickets {
		t.Fatalf("expected all %d tickets claimed exactly once, got %d", tickets, len(seen))
	}
}
