package client

import "time"

// StartRequest describes a process to launch and track.
type StartRequest struct {
	Name    string   `json:"name"`
	Command string   `json:"command"`
	WorkDir string   `json:"work_dir,omitempty"`
	Scope   string   `json:"scope"`
	Env     []string `json:"env,omitempty"`
}

// ProcessRecord is the daemon's stored view of a launched process.
type ProcessRecord struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	WorkDir   string    `json:"work_dir,omitempty"`
	Scope     string    `json:"scope"`
	LogPath   string    `json:"log_path"`
	StartedAt time.Time `json:"started_at"`
}

// ProcessStatus is one entry of a status listing.
type ProcessStatus struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	Scope     string    `json:"scope"`
	Command   string    `json:"command"`
	LogPath   string    `json:"log_path"`
	StartedAt time.Time `json:"started_at"`
	Ports     []int     `json:"ports,omitempty"`
}

// LogsResponse carries a process's captured output.
type LogsResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
