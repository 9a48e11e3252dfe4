package realtime

// Frame types on the realtime WebSocket.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"

	FrameEvent      = "event"
	FrameSubscribed = "subscribed"
	FrameError      = "error"
	FramePong       = "pong"
)

// ClientFrame is what a realtime client sends.
type ClientFrame struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`
}

type ServerFrame struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Event   *Event `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}
