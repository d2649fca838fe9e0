package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Office identifies one service department with its own daily sequence.
// The set is fixed; offices are a partition key within uniform ticket and
// counter tables, not separately named stores.
type Office string

const (
	OfficeCashier        Office = "cashier"
	OfficeMarketing      Office = "marketing"
	OfficeBusinessOffice Office = "business_office"
	OfficeCSDL           Office = "csdl"
	OfficeRegistrar      Office = "registrar"
)

// Offices returns every known office.
func Offices() []Office {
	return []Office{OfficeCashier, OfficeMarketing, OfficeBusinessOffice, OfficeCSDL, OfficeRegistrar}
}

// IsValid checks whether the office is one of the known departments
func (o Office) IsValid() bool {
	switch o {
	case OfficeCashier, OfficeMarketing, OfficeBusinessOffice, OfficeCSDL, OfficeRegistrar:
		return true
	}
	return false
}

func (o Office) String() string {
	return string(o)
}

// Section is the campus section encoded in the requester's ID input.
type Section string

const (
	SectionMain  Section = "MAIN"
	SectionSouth Section = "SOUTH"
)

// IsValid checks whether the section is known
func (s Section) IsValid() bool {
	return s == SectionMain || s == SectionSouth
}

// RequesterRole classifies who asked for the ticket.
type RequesterRole string

const (
	RequesterStudent RequesterRole = "STUDENT"
	RequesterGuest   RequesterRole = "GUEST"
)

// Ticket is one service request in an office queue. Tickets are never
// physically deleted; terminal states are retained for reporting.
type Ticket struct {
	ID             uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	Office         Office        `json:"office" gorm:"type:varchar(32);not null;index:idx_tickets_office_day,priority:1"`
	DayKey         string        `json:"day_key" gorm:"type:varchar(10);not null;index:idx_tickets_office_day,priority:2"`
	RequesterID    *string       `json:"requester_id,omitempty" gorm:"type:varchar(16);index"`
	Role           RequesterRole `json:"role" gorm:"type:varchar(16);not null"`
	Section        Section       `json:"section" gorm:"type:varchar(8);not null"`
	Priority       bool          `json:"priority" gorm:"not null"`
	SequenceNumber int           `json:"sequence_number" gorm:"not null"`
	DisplayNumber  string        `json:"display_number" gorm:"type:varchar(20);not null"`
	State          State         `json:"state" gorm:"type:varchar(24);not null;index"`
	ReservedBy     *string       `json:"reserved_by,omitempty" gorm:"type:varchar(100)"`
	HeldBy         *string       `json:"held_by,omitempty" gorm:"type:varchar(100)"`
	CompletedBy    *string       `json:"completed_by,omitempty" gorm:"type:varchar(100)"`
	IssuedAt       time.Time     `json:"issued_at" gorm:"not null"`
	HoldStartedAt  *time.Time    `json:"hold_started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// DailyCounter holds the last issued sequence number for one
// (office, day, priority class). Rows are created lazily by the atomic
// increment on the first issuance of the day.
type DailyCounter struct {
	ID        uint      `gorm:"primaryKey"`
	Office    Office    `gorm:"type:varchar(32);not null;uniqueIndex:idx_daily_counters_key,priority:1"`
	DayKey    string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_counters_key,priority:2"`
	Priority  bool      `gorm:"not null;uniqueIndex:idx_daily_counters_key,priority:3"`
	LastSeq   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// FormatDisplayNumber builds the human-facing ticket code: priority
// marker, zero-padded sequence, section. Example: P-0007-SOUTH.
func FormatDisplayNumber(priority bool, seq int, section Section) string {
	prefix := "S"
	if priority {
		prefix = "P"
	}
	return fmt.Sprintf("%s-%04d-%s", prefix, seq, strings.ToUpper(string(section)))
}
