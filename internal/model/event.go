package model

import "time"

type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventModified EventType = "MODIFIED"
	EventRemoved  EventType = "REMOVED"
	// EventReady marks the end of the initial scan. It carries no path.
	EventReady EventType = "READY"
)

type FileEvent struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}
