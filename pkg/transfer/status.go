package transfer

import (
	"errors"
	"time"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// TransferState represents the current state of a payload transfer
type TransferState int

const (
	// TransferStatePending indicates the payload is announced but no bytes moved yet
	TransferStatePending TransferState = iota
	// TransferStateActive indicates bytes are moving
	TransferStateActive
	// TransferStateCompleted indicates the transfer finished successfully
	TransferStateCompleted
	// TransferStateFailed indicates the transfer failed due to an error
	TransferStateFailed
	// TransferStateCancelled indicates the transfer was cancelled by either side
	TransferStateCancelled
)

// String returns a human-readable string representation of the transfer state
func (ts TransferState) String() string {
	switch ts {
	case TransferStatePending:
		return "pending"
	case TransferStateActive:
		return "active"
	case TransferStateCompleted:
		return "completed"
	case TransferStateFailed:
		return "failed"
	case TransferStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the transfer state is final (completed, failed, or cancelled)
func (ts TransferState) IsTerminal() bool {
	return ts == TransferStateCompleted || ts == TransferStateFailed || ts == TransferStateCancelled
}

// stateFor maps a transport update status onto a transfer state.
func stateFor(status nearby.TransferStatus) TransferState {
	switch status {
	case nearby.TransferInProgress:
		return TransferStateActive
	case nearby.TransferSuccess:
		return TransferStateCompleted
	case nearby.TransferFailure:
		return TransferStateFailed
	case nearby.TransferCanceled:
		return TransferStateCancelled
	default:
		return TransferStateFailed
	}
}

// TransferStatus is the progress of one payload between the local endpoint and a peer
type TransferStatus struct {
	PayloadID  string        `json:"payload_id"`
	EndpointID string        `json:"endpoint_id"`
	Name       string        `json:"name"`
	Outgoing   bool          `json:"outgoing"`
	State      TransferState `json:"state"`

	BytesTransferred int64 `json:"bytes_transferred"`
	TotalBytes       int64 `json:"total_bytes"`

	// StoredPath is where an inbound file payload was written.
	StoredPath string `json:"stored_path,omitempty"`

	StartTime      time.Time  `json:"start_time"`
	LastUpdateTime time.Time  `json:"last_update_time"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

// GetProgressPercentage calculates the completion percentage (0-100)
func (ts *TransferStatus) GetProgressPercentage() float64 {
	if ts.TotalBytes <= 0 {
		if ts.State == TransferStateCompleted {
			return 100.0
		}
		return 0.0
	}
	return float64(ts.BytesTransferred) / float64(ts.TotalBytes) * 100.0
}

// TransferRate returns bytes per second since the transfer started.
func (ts *TransferStatus) TransferRate() float64 {
	elapsed := ts.LastUpdateTime.Sub(ts.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(ts.BytesTransferred) / elapsed
}

var (
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrTransferAlreadyExists = errors.New("transfer already exists")
	ErrMaxTransfersExceeded  = errors.New("maximum concurrent transfers exceeded")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
)
