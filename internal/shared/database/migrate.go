package database

import (
	"queuedesk/internal/tickets"
	"queuedesk/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&tickets.Ticket{},
		&tickets.DailyCounter{},
	)
}
