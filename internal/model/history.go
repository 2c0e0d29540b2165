package model

import (
	"time"

	"gorm.io/gorm"
)

type SyncStatus string

const (
	StatusSuccess SyncStatus = "SUCCESS"
	StatusFailed  SyncStatus = "FAILED"
)

type History struct {
	gorm.Model
	Status     SyncStatus `gorm:"not null" json:"status"`
	Reason     SyncReason `gorm:"not null" json:"reason"`
	Source     string     `gorm:"not null" json:"source"`
	Target     string     `gorm:"not null" json:"target"`
	FullCopy   bool       `json:"full_copy"`
	ExitCode   int        `json:"exit_code"`
	DurationMs int64      `json:"duration_ms"`
	ErrMsg     string     `json:"err_msg"`
	Stderr     string     `json:"stderr"`
	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
}
