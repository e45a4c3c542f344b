package ipc

// StatusRequest asks the daemon for its current state.
type StatusRequest struct{}

// StatusResponse describes a running daemon.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	Party          string         `json:"party"`
	Transport      string         `json:"transport"`
	StartedAt      string         `json:"started_at"`
	Components     []string       `json:"components"`
	OutboundRoutes int            `json:"outbound_routes"`
	InboundRoutes  int            `json:"inbound_routes"`
	LockPath       string         `json:"lock_path"`
	JournalPath    string         `json:"journal_path"`
	LogPath        string         `json:"log_path"`
	TransferCounts map[string]int `json:"transfer_counts"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest asks the daemon to publish a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome of a test notification.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
