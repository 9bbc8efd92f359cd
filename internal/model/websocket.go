package model

// WebSocket message types
const (
	WSMessageTypeRelease = "release"
	WSMessageTypeReport  = "report"
	WSMessageTypeError   = "error"
	WSMessageTypePing    = "ping"
	WSMessageTypePong    = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSReleaseMessage pushes a release event to the detail view
type WSReleaseMessage struct {
	Type  string       `json:"type"`
	Event ReleaseEvent `json:"event"`
}

// WSReportMessage pushes a report event
type WSReportMessage struct {
	Type  string      `json:"type"`
	Event ReportEvent `json:"event"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type      string  `json:"type"`
	ReleaseID string  `json:"releaseId"`
	Error     WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
