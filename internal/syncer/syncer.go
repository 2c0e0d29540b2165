package syncer

import (
	"context"
	"errors"

	"mirrorwatch/internal/model"
)

// ErrRootUnavailable is reported when the watched root itself can no longer
// be read. The source keeps running and recovers once the root is back.
var ErrRootUnavailable = errors.New("watched root is unavailable")

// EventSource reports changes under a directory tree. Events are delivered in
// the order they were observed; a single model.EventReady follows the initial
// scan.
type EventSource interface {
	Start(ctx context.Context) error
	Events() <-chan model.FileEvent
	Errors() <-chan error
	Close() error
}

// Syncer performs one synchronization pass. Failures are reported through
// SyncResult.Err, never by panicking or exiting.
type Syncer interface {
	Sync(ctx context.Context, req model.SyncRequest) model.SyncResult
}
