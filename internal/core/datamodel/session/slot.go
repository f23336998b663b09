package session

import "time"

// Slot is one persisted client-state entry.
type Slot struct {
	Key       string    `gorm:"column:slot_key;primaryKey"`
	Value     string    `gorm:"column:slot_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Slot) TableName() string {
	return "session_slots"
}
