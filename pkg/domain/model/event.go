package model

import "time"

// EventType names a lifecycle notification. Values match what the UI listens for.
type EventType string

const (
	EventStarted   EventType = "mod_download_started"
	EventWriting   EventType = "mod_writing"
	EventFinishing EventType = "mod_finishing_up"
	EventError     EventType = "mod_error"
	EventDone      EventType = "mod_done"
)

// Error codes carried by EventError
const (
	CodeUnsupported = "MOD.UNZIP"
	CodeLayout      = "MOD.LAYOUT"
	CodeNoDownload  = "MOD.NO_DOWNLOAD"
	CodeNetwork     = "MOD.NETWORK"
	CodeFileSystem  = "MOD.DIR"
	CodeParse       = "MOD.PARSE"
	CodeCanceled    = "MOD.CANCELED"
)

// Event is one lifecycle notification of a run.
type Event struct {
	Type      EventType `json:"type"`
	ModID     ModID     `json:"mod_id"`
	State     State     `json:"state"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsTerminal reports whether the event closes a run's event stream.
// An error event is terminal only for failed runs; non-error terminals
// are followed by EventDone.
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || (e.Type == EventError && e.State == StateFailed)
}

// CodeOf maps a failure kind to its event code.
func CodeOf(kind FailureKind) string {
	switch kind {
	case FailureNetwork:
		return CodeNetwork
	case FailureParse:
		return CodeParse
	case FailureCanceled:
		return CodeCanceled
	default:
		return CodeFileSystem
	}
}
