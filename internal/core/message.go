package core

import "time"

// Message is the domain model for a direct message in flight between two
// users. SentAt is the ordering authority; DisplayTime is whatever the
// sending client rendered and is echoed verbatim.
type Message struct {
	ID          int64
	SenderID    string
	SenderName  string
	ReceiverID  string
	Text        string
	MediaURL    string
	MediaType   string
	DisplayTime string
	SentAt      time.Time
}

// HasContent reports whether the message carries text or an attachment.
// Messages with neither are rejected before persistence.
func (m Message) HasContent() bool {
	return m.Text != "" || m.MediaURL != ""
}
