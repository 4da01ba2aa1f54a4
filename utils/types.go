package utils

// WebSocketEvent is the envelope pushed to every connected debug client.
type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RecordingEntry describes one uploaded recording as reported to the app.
// StartedAt is an ISO-8601 UTC timestamp.
type RecordingEntry struct {
	ID        string `json:"id"`
	FileName  string `json:"fileName"`
	StartedAt string `json:"startedAt"`
}
