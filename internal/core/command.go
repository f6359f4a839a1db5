package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin registers the connection's user as online.
	CommandJoin CommandKind = iota
	// CommandSendMessage submits a direct message for delivery.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	UserID  string // for CommandJoin: the identity the client claims
	Message Message
}
