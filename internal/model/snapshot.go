package model

import "time"

type WatchStatus string

const (
	WatchStatusStarting WatchStatus = "STARTING"
	WatchStatusWatching WatchStatus = "WATCHING"
	WatchStatusDegraded WatchStatus = "DEGRADED"
	WatchStatusStopping WatchStatus = "STOPPING"
)

type Snapshot struct {
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	FullCopy  bool        `json:"full_copy"`
	Status    WatchStatus `json:"status"`
	StartedAt time.Time   `json:"started_at"`
	Events    int         `json:"events"`
	Errors    int         `json:"errors"`
	Synced    int         `json:"synced"`
	Failed    int         `json:"failed"`
	Syncing   bool        `json:"syncing"`
	LastSync  *time.Time  `json:"last_sync"`
	LastError string      `json:"last_error,omitempty"`
}
