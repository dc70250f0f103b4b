package broadcast

// EventType identifies the kind of a broadcast event
type EventType string

const (
	// EventQueueUpdated reports the current and pending preset IDs
	EventQueueUpdated EventType = "queue_updated"

	// EventDownloadProgress reports byte progress for one file
	EventDownloadProgress EventType = "download_progress"

	// EventDownloadRetrying reports a failed attempt about to be retried
	EventDownloadRetrying EventType = "download_retrying"

	// EventDownloadComplete reports a preset job finishing successfully
	EventDownloadComplete EventType = "download_complete"

	// EventDownloadFailed reports a preset job failing terminally
	EventDownloadFailed EventType = "download_failed"

	// EventDownloadCancelled reports a preset job cancelled by the operator
	EventDownloadCancelled EventType = "download_cancelled"
)

// Event is a JSON-serializable state-change notification pushed to
// observers. Only the fields relevant to the event's Type are populated.
type Event struct {
	Type EventType `json:"type"`

	// Queue state (EventQueueUpdated)
	Current *string  `json:"current,omitempty"`
	Queue   []string `json:"queue,omitempty"`

	// Job/task identification
	PresetID string `json:"preset_id,omitempty"`
	File     string `json:"file,omitempty"`

	// Progress (EventDownloadProgress); Total is nil when unknown
	Bytes int64  `json:"bytes,omitempty"`
	Total *int64 `json:"total,omitempty"`

	// Retry info (EventDownloadRetrying)
	Attempt int `json:"attempt,omitempty"`
	Max     int `json:"max,omitempty"`

	// Failure reason (EventDownloadFailed)
	Error string `json:"error,omitempty"`
}

// QueueUpdated builds a queue_updated event; current may be "" for none
func QueueUpdated(current string, queue []string) Event {
	ev := Event{Type: EventQueueUpdated, Queue: queue}
	if current != "" {
		ev.Current = &current
	}
	return ev
}

// DownloadProgress builds a download_progress event; total <= 0 means unknown
func DownloadProgress(presetID, file string, bytes, total int64) Event {
	ev := Event{
		Type:     EventDownloadProgress,
		PresetID: presetID,
		File:     file,
		Bytes:    bytes,
	}
	if total > 0 {
		ev.Total = &total
	}
	return ev
}

// DownloadRetrying builds a download_retrying event
func DownloadRetrying(presetID, file string, attempt, max int) Event {
	return Event{
		Type:     EventDownloadRetrying,
		PresetID: presetID,
		File:     file,
		Attempt:  attempt,
		Max:      max,
	}
}

// DownloadComplete builds a download_complete event
func DownloadComplete(presetID string) Event {
	return Event{Type: EventDownloadComplete, PresetID: presetID}
}

// DownloadFailed builds a download_failed event
func DownloadFailed(presetID, file, reason string) Event {
	return Event{
		Type:     EventDownloadFailed,
		PresetID: presetID,
		File:     file,
		Error:    reason,
	}
}

// DownloadCancelled builds a download_cancelled event
func DownloadCancelled(presetID string) Event {
	return Event{Type: EventDownloadCancelled, PresetID: presetID}
}
