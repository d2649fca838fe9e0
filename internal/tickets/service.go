package tickets

import (
	"context"
	"time"

	"queuedesk/internal/hours"
	"queuedesk/internal/shared/constants"
	"queuedesk/pkg/cache"
	"queuedesk/pkg/logger"
)

// Announcer publishes queue happenings to the event bus for display
// boards. Implementations must be safe for concurrent use; a nil
// Announcer disables announcements. (Interface lives here to avoid a
// dependency on the messaging package.)
type Announcer interface {
	AnnounceIssued(ctx context.Context, ticket *Ticket, position int)
	AnnounceNowServing(ctx context.Context, ticket *Ticket, staff string)
	AnnounceCancelled(ctx context.Context, office Office, count int64, reason string)
}

// EngineConfig carries the ticketing policy the engine applies.
type EngineConfig struct {
	HoldTimeout        time.Duration
	UnitServiceMinutes float64
}

// IssueResult is the payload returned for a successful issuance.
type IssueResult struct {
	Ticket           *Ticket `json:"ticket"`
	Position         int     `json:"position"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

// ClaimResult reports what a claim-next call did: the previously
// in-process ticket it auto-completed (if any) and the newly claimed
// ticket (nil when nothing was waiting).
type ClaimResult struct {
	Completed *Ticket `json:"completed,omitempty"`
	Claimed   *Ticket `json:"claimed,omitempty"`
}

// WaitEstimate is a ticket's live position and estimated wait.
type WaitEstimate struct {
	Position         int     `json:"position"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

// QueueStatus is the staff console snapshot for one office.
type QueueStatus struct {
	OnQueueCount  int64   `json:"on_queue_count"`
	OnHoldCount   int64   `json:"on_hold_count"`
	CutOffCount   int64   `json:"cut_off_count"`
	CurrentTicket *Ticket `json:"current_ticket,omitempty"`
}

// Board is the public display for one office: who is being served and
// who is waiting, in serving order.
type Board struct {
	Office    Office   `json:"office"`
	DayKey    string   `json:"day_key"`
	InProcess []Ticket `json:"in_process"`
	OnQueue   []Ticket `json:"on_queue"`
}

// Service is the queue ticketing engine. All state transitions go
// through here (or through the sweepers, which call back into here);
// correctness under concurrency comes from the repository's atomic
// conditional operations, not from in-process locks.
type Service interface {
	Issue(ctx context.Context, idInput string, office Office, priority bool) (*IssueResult, error)
	ClaimNext(ctx context.Context, staff string, office Office) (*ClaimResult, error)
	ResumeHeld(ctx context.Context, staff string, office Office) (*ClaimResult, error)
	Hold(ctx context.Context, staff string, office Office) (*Ticket, error)
	CompleteOnly(ctx context.Context, staff string, office Office) (*Ticket, error)
	EstimateWait(ctx context.Context, office Office, displayNumber string) (*WaitEstimate, error)
	Status(ctx context.Context, staff string, office Office) (*QueueStatus, error)
	Board(ctx context.Context, office Office) (*Board, error)

	// Bulk transitions. CancelAllWaiting with force=false is the manual
	// variant, refused while the office is still open; force=true is the
	// administrative override and the sweeper path.
	CancelAllWaiting(ctx context.Context, office Office, force bool) (int64, error)
	CancelExpiredHolds(ctx context.Context, office Office) (int64, error)
	PrioritizeSection(ctx context.Context, office Office, section Section) (int64, error)
	CancelSection(ctx context.Context, office Office, section Section) (int64, error)
	StaffActivity(ctx context.Context, staff string, office Office) (*StaffActivity, error)

	// SetCacheService enables short-TTL board caching. Optional; the
	// engine works without it.
	SetCacheService(cacheService cache.Service)
}

type service struct {
	repo         Repository
	schedule     *hours.Schedule
	config       EngineConfig
	announcer    Announcer
	cacheService cache.Service
	logger       *logger.Logger
}

// NewService creates the ticketing engine. announcer may be nil.
func NewService(repo Repository, schedule *hours.Schedule, config EngineConfig, announcer Announcer) Service {
	if config.UnitServiceMinutes <= 0 {
		config.UnitServiceMinutes = 1.5
	}
	if config.HoldTimeout <= 0 {
		config.HoldTimeout = 30 * time.Minute
	}
	return &service{
		repo:      repo,
		schedule:  schedule,
		config:    config,
		announcer: announcer,
		logger:    logger.GetDefault(),
	}
}

func (s *service) Issue(ctx context.Context, idInput string, office Office, priority bool) (*IssueResult, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	if !s.schedule.IsOpenNow() {
		return nil, newError(KindOutOfHours, "queue is closed during non-operational hours")
	}

	identity, ok := ParseIDInput(idInput)
	if !ok {
		return nil, newError(KindInvalidInput, "invalid ID input")
	}

	dayKey := s.schedule.Today().String()

	// Guests are anonymous and never counted as duplicates.
	if identity.RequesterID != nil {
		active, err := s.repo.CountActive(ctx, *identity.RequesterID, office, dayKey)
		if err != nil {
			return nil, storeError("count active", err)
		}
		if active > 0 {
			return nil, newError(KindDuplicateTicket, "duplicate request: you have already queued today")
		}
	}

	seq, err := s.repo.AllocateSequence(ctx, office, dayKey, priority)
	if err != nil {
		return nil, storeError("allocate sequence", err)
	}

	ticket := &Ticket{
		Office:         office,
		DayKey:         dayKey,
		RequesterID:    identity.RequesterID,
		Role:           identity.Role,
		Section:        identity.Section,
		Priority:       priority,
		SequenceNumber: seq,
		DisplayNumber:  FormatDisplayNumber(priority, seq, identity.Section),
		State:          StateOnQueue,
		IssuedAt:       s.schedule.Now(),
	}

	if err := s.repo.InsertTicket(ctx, ticket); err != nil {
		return nil, storeError("insert ticket", err)
	}

	position, minutes := s.locateInQueue(ctx, ticket)

	s.logger.LogTicketIssued(ctx, ticket.DisplayNumber, office.String(), priority)
	if s.announcer != nil {
		s.announcer.AnnounceIssued(ctx, ticket, position)
	}

	return &IssueResult{
		Ticket:           ticket,
		Position:         position,
		EstimatedMinutes: minutes,
	}, nil
}

func (s *service) ClaimNext(ctx context.Context, staff string, office Office) (*ClaimResult, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()
	result := &ClaimResult{}

	// Phase one: claiming implicitly completes whatever this staff member
	// is still serving, preserving the hand-off ergonomics of the desk.
	completed, err := s.repo.CompleteInProcess(ctx, office, dayKey, staff, s.schedule.Now())
	if err != nil {
		return nil, storeError("complete current", err)
	}
	if completed != nil {
		result.Completed = completed
		s.logger.LogTicketCompleted(ctx, completed.DisplayNumber, office.String(), staff)
	}

	// Phase two: one atomic select-and-claim.
	claimed, err := s.repo.ClaimNext(ctx, office, dayKey, staff)
	if err != nil {
		return nil, storeError("claim next", err)
	}
	if claimed != nil {
		result.Claimed = claimed
		s.logger.LogTicketClaimed(ctx, claimed.DisplayNumber, office.String(), staff)
		if s.announcer != nil {
			s.announcer.AnnounceNowServing(ctx, claimed, staff)
		}
	}

	return result, nil
}

func (s *service) ResumeHeld(ctx context.Context, staff string, office Office) (*ClaimResult, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()
	result := &ClaimResult{}

	completed, err := s.repo.CompleteInProcess(ctx, office, dayKey, staff, s.schedule.Now())
	if err != nil {
		return nil, storeError("complete current", err)
	}
	if completed != nil {
		result.Completed = completed
		s.logger.LogTicketCompleted(ctx, completed.DisplayNumber, office.String(), staff)
	}

	claimed, err := s.repo.ClaimHeld(ctx, office, dayKey, staff)
	if err != nil {
		return nil, storeError("claim held", err)
	}
	if claimed != nil {
		result.Claimed = claimed
		s.logger.LogTicketClaimed(ctx, claimed.DisplayNumber, office.String(), staff)
		if s.announcer != nil {
			s.announcer.AnnounceNowServing(ctx, claimed, staff)
		}
	}

	return result, nil
}

func (s *service) Hold(ctx context.Context, staff string, office Office) (*Ticket, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()

	ticket, err := s.repo.HoldInProcess(ctx, office, dayKey, staff, s.schedule.Now())
	if err != nil {
		return nil, storeError("hold", err)
	}
	if ticket != nil {
		s.logger.LogTicketHeld(ctx, ticket.DisplayNumber, office.String(), staff)
	}
	return ticket, nil
}

func (s *service) CompleteOnly(ctx context.Context, staff string, office Office) (*Ticket, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()

	ticket, err := s.repo.CompleteInProcess(ctx, office, dayKey, staff, s.schedule.Now())
	if err != nil {
		return nil, storeError("complete", err)
	}
	if ticket != nil {
		s.logger.LogTicketCompleted(ctx, ticket.DisplayNumber, office.String(), staff)
	}
	return ticket, nil
}

func (s *service) EstimateWait(ctx context.Context, office Office, displayNumber string) (*WaitEstimate, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()

	waiting, err := s.repo.ListByState(ctx, office, dayKey, StateOnQueue)
	if err != nil {
		return nil, storeError("list waiting", err)
	}

	for i, t := range waiting {
		if t.DisplayNumber == displayNumber {
			return &WaitEstimate{
				Position:         i + 1,
				EstimatedMinutes: float64(i) * s.config.UnitServiceMinutes,
			}, nil
		}
	}
	return nil, newError(KindNotFound, "ticket is no longer waiting")
}

func (s *service) Status(ctx context.Context, staff string, office Office) (*QueueStatus, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()
	status := &QueueStatus{}

	var err error
	if status.OnQueueCount, err = s.repo.CountByState(ctx, office, dayKey, StateOnQueue); err != nil {
		return nil, storeError("count on queue", err)
	}
	if status.OnHoldCount, err = s.repo.CountByState(ctx, office, dayKey, StateOnHold); err != nil {
		return nil, storeError("count on hold", err)
	}
	if status.CutOffCount, err = s.repo.CountByState(ctx, office, dayKey, StateCutOff); err != nil {
		return nil, storeError("count cut off", err)
	}
	if status.CurrentTicket, err = s.repo.CurrentInProcess(ctx, office, dayKey, staff); err != nil {
		return nil, storeError("current in process", err)
	}

	return status, nil
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) Board(ctx context.Context, office Office) (*Board, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()

	// Display boards poll aggressively; a few seconds of staleness is
	// acceptable there.
	cacheKey := constants.BuildBoardKey(office.String())
	if s.cacheService != nil {
		var cached Board
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil && cached.DayKey == dayKey {
			return &cached, nil
		}
	}

	inProcess, err := s.repo.ListByState(ctx, office, dayKey, StateInProcess)
	if err != nil {
		return nil, storeError("list in process", err)
	}
	onQueue, err := s.repo.ListByState(ctx, office, dayKey, StateOnQueue)
	if err != nil {
		return nil, storeError("list on queue", err)
	}

	board := &Board{
		Office:    office,
		DayKey:    dayKey,
		InProcess: inProcess,
		OnQueue:   onQueue,
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, board, constants.TTL_BOARD); err != nil {
			s.logger.Debug("board cache set failed", "office", office.String(), "error", err.Error())
		}
	}
	return board, nil
}

func (s *service) CancelAllWaiting(ctx context.Context, office Office, force bool) (int64, error) {
	if !office.IsValid() {
		return 0, newError(KindInvalidOffice, "invalid office selection")
	}
	if !force && !s.schedule.CutoffPassed() {
		return 0, newError(KindOutOfHours, "queues can only be cancelled after cut-off")
	}
	dayKey := s.schedule.Today().String()

	count, err := s.repo.CancelWaiting(ctx, office, dayKey)
	if err != nil {
		return 0, storeError("cancel waiting", err)
	}
	if count > 0 && s.announcer != nil {
		s.announcer.AnnounceCancelled(ctx, office, count, "cut-off")
	}
	return count, nil
}

func (s *service) CancelExpiredHolds(ctx context.Context, office Office) (int64, error) {
	if !office.IsValid() {
		return 0, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()
	heldBefore := s.schedule.Now().Add(-s.config.HoldTimeout)

	count, err := s.repo.CancelExpiredHolds(ctx, office, dayKey, heldBefore)
	if err != nil {
		return 0, storeError("cancel expired holds", err)
	}
	if count > 0 && s.announcer != nil {
		s.announcer.AnnounceCancelled(ctx, office, count, "hold-expired")
	}
	return count, nil
}

func (s *service) PrioritizeSection(ctx context.Context, office Office, section Section) (int64, error) {
	if !office.IsValid() {
		return 0, newError(KindInvalidOffice, "invalid office selection")
	}
	if !section.IsValid() {
		return 0, newError(KindInvalidInput, "invalid section: choose MAIN or SOUTH")
	}
	dayKey := s.schedule.Today().String()

	count, err := s.repo.PrioritizeSection(ctx, office, dayKey, section)
	if err != nil {
		return 0, storeError("prioritize section", err)
	}
	return count, nil
}

func (s *service) CancelSection(ctx context.Context, office Office, section Section) (int64, error) {
	if !office.IsValid() {
		return 0, newError(KindInvalidOffice, "invalid office selection")
	}
	if !section.IsValid() {
		return 0, newError(KindInvalidInput, "invalid section: choose MAIN or SOUTH")
	}
	dayKey := s.schedule.Today().String()

	count, err := s.repo.CancelWaitingBySection(ctx, office, dayKey, section)
	if err != nil {
		return 0, storeError("cancel section", err)
	}
	if count > 0 && s.announcer != nil {
		s.announcer.AnnounceCancelled(ctx, office, count, "section-cancelled")
	}
	return count, nil
}

func (s *service) StaffActivity(ctx context.Context, staff string, office Office) (*StaffActivity, error) {
	if !office.IsValid() {
		return nil, newError(KindInvalidOffice, "invalid office selection")
	}
	dayKey := s.schedule.Today().String()

	activity, err := s.repo.StaffActivity(ctx, office, dayKey, staff)
	if err != nil {
		return nil, storeError("staff activity", err)
	}
	return activity, nil
}

// locateInQueue recomputes the live waiting order to place a freshly
// issued ticket. Best effort: if the listing fails the ticket is still
// issued, just without a position.
func (s *service) locateInQueue(ctx context.Context, ticket *Ticket) (int, float64) {
	waiting, err := s.repo.ListByState(ctx, ticket.Office, ticket.DayKey, StateOnQueue)
	if err != nil {
		return 0, 0
	}
	for i, t := range waiting {
		if t.Office == ticket.Office && t.Priority == ticket.Priority && t.SequenceNumber == ticket.SequenceNumber {
			return i + 1, float64(i) * s.config.UnitServiceMinutes
		}
	}
	return 0, 0
}
