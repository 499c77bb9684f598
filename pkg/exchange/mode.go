package exchange

import (
	"fmt"
	"strings"
)

// Role decides which engine variant runs. It is fixed for one session.
type Role int

const (
	Advertiser Role = iota
	Discoverer
)

func (r Role) String() string {
	switch r {
	case Advertiser:
		return "advertiser"
	case Discoverer:
		return "discoverer"
	default:
		return "unknown"
	}
}

// ParseRole accepts the names produced by String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advertiser", "advertise":
		return Advertiser, nil
	case "discoverer", "discover":
		return Discoverer, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Mode is the top-level status of an engine, independent of any single peer.
// The variants are Stopped, Running and Failed.
type Mode interface {
	isMode()
	String() string
}

// Stopped means neither advertising nor discovery is active.
type Stopped struct{}

// Running means advertising or discovery is active for Role.
type Running struct {
	Role Role
}

// Failed means the top-level activity could not start.
type Failed struct {
	Message string
	// ErrorCode is the transport status code, when one was reported.
	ErrorCode *int
	Cause     error
}

func (Stopped) isMode() {}
func (Running) isMode() {}
func (Failed) isMode()  {}

func (Stopped) String() string   { return "stopped" }
func (m Running) String() string { return "running(" + m.Role.String() + ")" }
func (m Failed) String() string {
	if m.ErrorCode != nil {
		return fmt.Sprintf("failed(%d): %s", *m.ErrorCode, m.Message)
	}
	return "failed: " + m.Message
}

// IsRunning reports whether m is a Running mode.
func IsRunning(m Mode) bool {
	_, ok := m.(Running)
	return ok
}
