package models

import "time"

// Sync outcomes recorded in the sync log.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncLog is one append-only record of a synchronization attempt.
type SyncLog struct {
	ID        int64     `json:"id"`
	RowsCount int       `json:"rowsCount"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	SyncedAt  time.Time `json:"syncedAt"`
}
