package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Sender identifies who authored a chat log entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatLogEntry is one side of a chat exchange. Timestamp is milliseconds
// since the Unix epoch and is assigned by the store when zero.
type ChatLogEntry struct {
	ID        string  `json:"id"`
	Sender    Sender  `json:"sender"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"`
	SourceIP  *string `json:"ip,omitempty"`
}

// Review is a public testimonial. Approved and Pending are fixed at creation.
type Review struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Rating    int     `json:"rating"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"`
	Approved  bool    `json:"approved"`
	Pending   bool    `json:"pending"`
}

// IntakeKind selects the collection an IntakeRecord belongs to.
type IntakeKind string

const (
	IntakeContact IntakeKind = "contact"
	IntakeTutor   IntakeKind = "tutor"
)

// IntakeRecord is a contact request (City set) or a tutor application
// (Birthdate set).
type IntakeRecord struct {
	ID        string     `json:"id"`
	Kind      IntakeKind `json:"kind"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	City      string     `json:"city,omitempty"`
	Birthdate string     `json:"birthdate,omitempty"`
	Message   string     `json:"message"`
	Timestamp int64      `json:"timestamp"`
	Date      string     `json:"date"`
	Status    string     `json:"status"`
}
