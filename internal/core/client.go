package core

// Client is one authenticated real-time connection as seen by the core
// layer. UserID is the identity the gateway attached after validating the
// bearer credential; ConnID identifies this particular connection and is the
// key presence removal works on.
type Client struct {
	ConnID   string
	UserID   string
	Name     string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(connID, userID, name string) *Client {
	if name == "" {
		name = userID
	}
	return &Client{
		ConnID:   connID,
		UserID:   userID,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
	}
}

// trySend delivers an event without blocking. Slow consumers drop events;
// live delivery is best-effort and recoverable via history fetch.
func (c *Client) trySend(ev *Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
