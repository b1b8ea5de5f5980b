package websocket

// Client to Server messages. Every inbound frame carries an "action"
// discriminator and one of the fixed payload shapes below; anything else
// is answered with an error frame.

const (
	ActionAnnounce       = "announce"
	ActionHeartbeat      = "heartbeat"
	ActionTerminate      = "terminateSession"
	ActionJoinBoardRoom  = "joinBoardRoom"
	ActionLeaveBoardRoom = "leaveBoardRoom"
	ActionPing           = "ping"
)

type ClientMessage struct {
	Action string `json:"action"`
}

type AnnounceMessage struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type HeartbeatMessage struct {
	Action    string `json:"action"`
	SessionID string `json:"sessionId"`
}

type TerminateMessage struct {
	Action    string `json:"action"`
	SessionID string `json:"sessionId"`
}

type BoardRoomMessage struct {
	Action  string `json:"action"`
	BoardID string `json:"boardId"`
}

// Server to Client messages. Push events share one envelope so clients
// can dispatch on the event name.

type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnnouncedData struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	SocketID string `json:"socketId"`
}

// NewErrorEvent creates an error frame.
func NewErrorEvent(code, message string) *ServerEvent {
	return &ServerEvent{Event: "error", Data: ErrorData{Code: code, Message: message}}
}

// NewAnnouncedEvent confirms an announce, echoing the identity the server
// bound to the connection.
func NewAnnouncedEvent(userID, role, socketID string) *ServerEvent {
	return &ServerEvent{Event: "announced", Data: AnnouncedData{UserID: userID, Role: role, SocketID: socketID}}
}

// NewPongEvent answers a ping.
func NewPongEvent() *ServerEvent {
	return &ServerEvent{Event: "pong"}
}
