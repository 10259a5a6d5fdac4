package domain

import "time"

// AuthEventType names an authentication flow.
type AuthEventType string

const (
	EventRegister AuthEventType = "register"
	EventLogin    AuthEventType = "login"
	EventRefresh  AuthEventType = "refresh"
	EventLogout   AuthEventType = "logout"
)

// AuthEvent is an audit record of one authentication attempt.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	Username   string        `json:"username"`
	Success    bool          `json:"success"`
	Reason     string        `json:"reason,omitempty"`
	RemoteIP   string        `json:"remote_ip,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
