package watcher

import "time"

// Observation pairs a stored version with the date key it was recorded under.
type Observation struct {
	Date    string
	Version string
}

// ChangeRecord is the persisted form of a version transition.
type ChangeRecord struct {
	CreatedAt   int64  `json:"created_at"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

// CreatedTime converts the epoch-millisecond timestamp into a time.Time.
func (c ChangeRecord) CreatedTime() time.Time {
	return time.UnixMilli(c.CreatedAt).UTC()
}

// DatedChange is a change record together with the date key it is stored under.
type DatedChange struct {
	Date   string
	Record ChangeRecord
}

// MessageKind classifies an outbound notification.
type MessageKind string

const (
	// MessageKindChange announces a detected version transition.
	MessageKindChange MessageKind = "change"
	// MessageKindFailure reports a failed check step.
	MessageKindFailure MessageKind = "failure"
)

// Message is a notification handed to a Notifier.
type Message struct {
	Kind    MessageKind   `json:"kind"`
	Subject string        `json:"subject"`
	Body    string        `json:"body"`
	Date    string        `json:"date"`
	Change  *ChangeRecord `json:"change,omitempty"`
}

// Outcome summarizes how a check ended.
type Outcome string

const (
	OutcomeFirstCheck Outcome = "first_check"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeChanged    Outcome = "changed"
	OutcomeFailed     Outcome = "failed"
)

// Result describes a single check pass.
type Result struct {
	Outcome  Outcome
	Date     string
	Previous *Observation
	Latest   string
}
