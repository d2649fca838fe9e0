package tickets

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StaffActivity is one staff member's attributed ticket counts for a day.
type StaffActivity struct {
	Held      int64 `json:"held"`
	Completed int64 `json:"completed"`
	CutOff    int64 `json:"cut_off"`
}

// Repository is the store handle the engine runs against. Every method
// that enforces a cross-request invariant is a single atomic statement;
// none of them read-then-write.
type Repository interface {
	// AllocateSequence atomically increments and returns the daily
	// counter for (office, day, priority), creating it at zero first if
	// this is the first allocation of the day for that class.
	AllocateSequence(ctx context.Context, office Office, dayKey string, priority bool) (int, error)

	InsertTicket(ctx context.Context, ticket *Ticket) error
	GetByDisplayNumber(ctx context.Context, office Office, dayKey, displayNumber string) (*Ticket, error)

	// CountActive backs the duplicate guard.
	CountActive(ctx context.Context, requesterID string, office Office, dayKey string) (int64, error)

	// ClaimNext atomically selects the best waiting ticket (priority
	// first, then lowest sequence) and moves it to IN_PROCESS reserved by
	// staff. Returns nil when nothing is waiting.
	ClaimNext(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error)

	// ClaimHeld atomically takes the oldest ON_HOLD ticket back into
	// IN_PROCESS for staff. Returns nil when nothing is on hold.
	ClaimHeld(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error)

	// CompleteInProcess moves the staff member's IN_PROCESS ticket to
	// COMPLETED. Returns nil when they hold none.
	CompleteInProcess(ctx context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error)

	// HoldInProcess moves the staff member's IN_PROCESS ticket to
	// ON_HOLD. Returns nil when they hold none.
	HoldInProcess(ctx context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error)

	CancelWaiting(ctx context.Context, office Office, dayKey string) (int64, error)
	CancelWaitingBySection(ctx context.Context, office Office, dayKey string, section Section) (int64, error)
	PrioritizeSection(ctx context.Context, office Office, dayKey string, section Section) (int64, error)
	CancelExpiredHolds(ctx context.Context, office Office, dayKey string, heldBefore time.Time) (int64, error)

	// ListByState returns tickets in serving order: priority descending,
	// then sequence number ascending.
	ListByState(ctx context.Context, office Office, dayKey string, state State) ([]Ticket, error)
	CountByState(ctx context.Context, office Office, dayKey string, state State) (int64, error)
	CurrentInProcess(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error)
	StaffActivity(ctx context.Context, office Office, dayKey, staff string) (*StaffActivity, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) AllocateSequence(ctx context.Context, office Office, dayKey string, priority bool) (int, error) {
	// Single statement upsert-increment: concurrent callers serialize on
	// the unique (office, day_key, priority) row and each sees a distinct
	// RETURNING value. A find-then-update here would hand out duplicates.
	var seq int
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO daily_counters (office, day_key, priority, last_seq, created_at, updated_at)
		VALUES (?, ?, ?, 1, NOW(), NOW())
		ON CONFLICT (office, day_key, priority)
		DO UPDATE SET last_seq = daily_counters.last_seq + 1, updated_at = NOW()
		RETURNING last_seq`,
		office, dayKey, priority).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *repository) InsertTicket(ctx context.Context, ticket *Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) GetByDisplayNumber(ctx context.Context, office Office, dayKey, displayNumber string) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).
		Where("office = ? AND day_key = ? AND display_number = ?", office, dayKey, displayNumber).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) CountActive(ctx context.Context, requesterID string, office Office, dayKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("requester_id = ? AND office = ? AND day_key = ?", requesterID, office, dayKey).
		Where("state IN ?", ActiveStates()).
		Count(&count).Error
	return count, err
}

func (r *repository) ClaimNext(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	// The inner select and the update are one statement, so two staff
	// stations claiming concurrently can never receive the same ticket.
	// SKIP LOCKED sends the second claimer to the next waiting ticket
	// instead of blocking on the first.
	var ticket Ticket
	res := r.db.WithContext(ctx).Raw(`
		UPDATE tickets
		SET state = ?, reserved_by = ?, updated_at = NOW()
		WHERE id = (
			SELECT id FROM tickets
			WHERE office = ? AND day_key = ? AND state = ? AND reserved_by IS NULL
			ORDER BY priority DESC, sequence_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		StateInProcess, staff, office, dayKey, StateOnQueue).Scan(&ticket)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repository) ClaimHeld(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	var ticket Ticket
	res := r.db.WithContext(ctx).Raw(`
		UPDATE tickets
		SET state = ?, reserved_by = ?, held_by = NULL, hold_started_at = NULL, updated_at = NOW()
		WHERE id = (
			SELECT id FROM tickets
			WHERE office = ? AND day_key = ? AND state = ?
			ORDER BY hold_started_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		StateInProcess, staff, office, dayKey, StateOnHold).Scan(&ticket)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repository) CompleteInProcess(ctx context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error) {
	// Conditional on current state and owner: reserved_by is cleared so
	// it stays non-null only while IN_PROCESS; completed_by keeps the
	// attribution for reporting.
	var ticket Ticket
	res := r.db.WithContext(ctx).Raw(`
		UPDATE tickets
		SET state = ?, reserved_by = NULL, completed_by = ?, completed_at = ?, updated_at = NOW()
		WHERE office = ? AND day_key = ? AND state = ? AND reserved_by = ?
		RETURNING *`,
		StateCompleted, staff, at, office, dayKey, StateInProcess, staff).Scan(&ticket)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repository) HoldInProcess(ctx context.Context, office Office, dayKey, staff string, at time.Time) (*Ticket, error) {
	var ticket Ticket
	res := r.db.WithContext(ctx).Raw(`
		UPDATE tickets
		SET state = ?, reserved_by = NULL, held_by = ?, hold_started_at = ?, updated_at = NOW()
		WHERE office = ? AND day_key = ? AND state = ? AND reserved_by = ?
		RETURNING *`,
		StateOnHold, staff, at, office, dayKey, StateInProcess, staff).Scan(&ticket)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repository) CancelWaiting(ctx context.Context, office Office, dayKey string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("office = ? AND day_key = ? AND state = ?", office, dayKey, StateOnQueue).
		Update("state", StateCutOff)
	return res.RowsAffected, res.Error
}

func (r *repository) CancelWaitingBySection(ctx context.Context, office Office, dayKey string, section Section) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("office = ? AND day_key = ? AND state = ? AND section = ?", office, dayKey, StateOnQueue, section).
		Update("state", StateCutOff)
	return res.RowsAffected, res.Error
}

func (r *repository) PrioritizeSection(ctx context.Context, office Office, dayKey string, section Section) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("office = ? AND day_key = ? AND state = ? AND section = ? AND priority = false",
			office, dayKey, StateOnQueue, section).
		Update("priority", true)
	return res.RowsAffected, res.Error
}

func (r *repository) CancelExpiredHolds(ctx context.Context, office Office, dayKey string, heldBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("office = ? AND day_key = ? AND state = ? AND hold_started_at < ?",
			office, dayKey, StateOnHold, heldBefore).
		Updates(map[string]interface{}{
			"state":           StateCutOff,
			"hold_started_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByState(ctx context.Context, office Office, dayKey string, state State) ([]Ticket, error) {
	var list []Ticket
	err := r.db.WithContext(ctx).
		Where("office = ? AND day_key = ? AND state = ?", office, dayKey, state).
		Order("priority DESC, sequence_number ASC").
		Find(&list).Error
	return list, err
}

func (r *repository) CountByState(ctx context.Context, office Office, dayKey string, state State) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("office = ? AND day_key = ? AND state = ?", office, dayKey, state).
		Count(&count).Error
	return count, err
}

func (r *repository) CurrentInProcess(ctx context.Context, office Office, dayKey, staff string) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).
		Where("office = ? AND day_key = ? AND state = ? AND reserved_by = ?",
			office, dayKey, StateInProcess, staff).
		Order("sequence_number ASC").
		First(&ticket).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) StaffActivity(ctx context.Context, office Office, dayKey, staff string) (*StaffActivity, error) {
	activity := &StaffActivity{}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Ticket{}).
			Where("office = ? AND day_key = ?", office, dayKey)
	}

	if err := base().Where("state = ? AND held_by = ?", StateOnHold, staff).
		Count(&activity.Held).Error; err != nil {
		return nil, err
	}
	if err := base().Where("state = ? AND completed_by = ?", StateCompleted, staff).
		Count(&activity.Completed).Error; err != nil {
		return nil, err
	}
	if err := base().Where("state = ? AND held_by = ?", StateCutOff, staff).
		Count(&activity.CutOff).Error; err != nil {
		return nil, err
	}

	return activity, nil
}
