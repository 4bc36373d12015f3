package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
	WSMessageTypePing     WSMessageType = "ping"
	WSMessageTypePong     WSMessageType = "pong"
)

// WSMessage is the minimal envelope used for client keep-alive traffic.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

// WSProgressMessage is pushed on every phase/progress change of a run.
type WSProgressMessage struct {
	Type        WSMessageType `json:"type"`
	RunID       string        `json:"runId"`
	Phase       RunPhase      `json:"phase"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"currentStep,omitempty"`
}

// WSCompleteMessage is pushed once when a run reaches completed.
type WSCompleteMessage struct {
	Type   WSMessageType `json:"type"`
	RunID  string        `json:"runId"`
	Result interface{}   `json:"result"`
}

// WSErrorMessage is pushed once when a run reaches error.
type WSErrorMessage struct {
	Type  WSMessageType  `json:"type"`
	RunID string         `json:"runId"`
	Error RunErrorDetail `json:"error"`
}
