package domain

import "time"

// Achievement is the durable row kept for a catalog entry once it has
// progressed. The row remembers when an achievement was first reached; whether
// it is reached now is always recomputed from live aggregates.
type Achievement struct {
	ID              string     `json:"id"`
	Progress        int        `json:"progress"`
	MaxProgress     int        `json:"max_progress"`
	IsCompleted     bool       `json:"is_completed"`
	UnlockDate      *time.Time `json:"unlock_date,omitempty"`
	AchievementDate *time.Time `json:"achievement_date,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
