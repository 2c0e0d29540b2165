package model

import "time"

type SyncReason string

const (
	ReasonInitial SyncReason = "INITIAL"
	ReasonChange  SyncReason = "CHANGE"
	ReasonManual  SyncReason = "MANUAL"
)

type SyncRequest struct {
	Source   string
	Target   string
	FullCopy bool
	Reason   SyncReason
}

// SyncResult is what the sync collaborator reports for one run. Err is set
// when the run did not complete or ended with a failing exit code.
type SyncResult struct {
	Request   SyncRequest
	ExitCode  int
	Stdout    string
	Stderr    string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}
