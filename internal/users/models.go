package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account. Kiosk requesters are not users; they are
// identified (or not) by the ID input on the ticket itself.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	Name      string    `json:"name" gorm:"not null"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"` // hide in json
	Role      Role      `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleSuperadmin, RoleCashier, RoleMarketing, RoleBusinessOffice, RoleCSDL, RoleRegistrar:
		return true
	default:
		return false
	}
}
