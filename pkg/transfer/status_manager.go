package transfer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// StatusManager tracks the progress of every payload transfer. Byte progress
// (Apply) is tracked separately from payload arrival (Begin), because the
// transport reports them through different callbacks and in either order.
type StatusManager struct {
	// transfers maps payload ids to their current status
	transfers map[string]*TransferStatus

	config *Config

	// updates publishes a copy of a status after each change
	updates *concurrency.EventBus[TransferStatus]

	mu sync.RWMutex
}

// NewStatusManager creates a StatusManager with default configuration
func NewStatusManager() *StatusManager {
	return NewStatusManagerWithConfig(DefaultConfig())
}

// NewStatusManagerWithConfig creates a StatusManager with custom configuration
func NewStatusManagerWithConfig(config *Config) *StatusManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &StatusManager{
		transfers: make(map[string]*TransferStatus),
		config:    config,
		updates:   concurrency.NewEventBus[TransferStatus](config.UpdateBufferSize),
	}
}

// Updates is the bus on which status changes are published.
func (sm *StatusManager) Updates() *concurrency.EventBus[TransferStatus] {
	return sm.updates
}

// Begin registers a payload. If progress for it was already reported, the
// existing entry is enriched with the name and endpoint instead.
func (sm *StatusManager) Begin(endpointID string, payload nearby.Payload, outgoing bool) (TransferStatus, error) {
	if payload.ID == "" {
		return TransferStatus{}, fmt.Errorf("payload id cannot be empty")
	}

	sm.mu.Lock()
	status, exists := sm.transfers[payload.ID]
	if exists {
		status.EndpointID = endpointID
		if payload.Name != "" {
			status.Name = payload.Name
		}
		if status.TotalBytes == 0 {
			status.TotalBytes = payload.Size
		}
	} else {
		if sm.nonTerminalCountUnsafe() >= sm.config.MaxConcurrentTransfers {
			sm.mu.Unlock()
			return TransferStatus{}, ErrMaxTransfersExceeded
		}
		now := time.Now()
		status = &TransferStatus{
			PayloadID:      payload.ID,
			EndpointID:     endpointID,
			Name:           payload.Name,
			Outgoing:       outgoing,
			State:          TransferStatePending,
			TotalBytes:     payload.Size,
			StartTime:      now,
			LastUpdateTime: now,
		}
		sm.transfers[payload.ID] = status
	}
	snapshot := *status
	sm.mu.Unlock()

	sm.updates.Publish(snapshot)
	return snapshot, nil
}

// Apply records a transport progress update. Updates for unknown payloads
// create an entry so early progress is not lost. Updates for transfers that
// already reached a terminal state are ignored.
func (sm *StatusManager) Apply(endpointID string, update nearby.TransferUpdate) (TransferStatus, error) {
	if update.PayloadID == "" {
		return TransferStatus{}, fmt.Errorf("payload id cannot be empty")
	}
	if update.BytesTransferred < 0 {
		return TransferStatus{}, fmt.Errorf("bytes transferred cannot be negative")
	}

	sm.mu.Lock()
	now := time.Now()
	status, exists := sm.transfers[update.PayloadID]
	if !exists {
		status = &TransferStatus{
			PayloadID:  update.PayloadID,
			EndpointID: endpointID,
			Outgoing:   update.Outgoing,
			State:      TransferStatePending,
			StartTime:  now,
		}
		sm.transfers[update.PayloadID] = status
	}
	if status.State.IsTerminal() {
		snapshot := *status
		sm.mu.Unlock()
		return snapshot, nil
	}

	status.State = stateFor(update.Status)
	status.BytesTransferred = update.BytesTransferred
	if update.TotalBytes > 0 {
		status.TotalBytes = update.TotalBytes
	}
	status.LastUpdateTime = now
	if status.State.IsTerminal() {
		status.CompletionTime = &now
		if status.State == TransferStateCompleted && status.TotalBytes > 0 {
			status.BytesTransferred = status.TotalBytes
		}
	}
	snapshot := *status
	sm.mu.Unlock()

	sm.updates.Publish(snapshot)
	return snapshot, nil
}

// SetStoredPath records where an inbound payload was written.
func (sm *StatusManager) SetStoredPath(payloadID, path string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status, exists := sm.transfers[payloadID]
	if !exists {
		return ErrTransferNotFound
	}
	status.StoredPath = path
	return nil
}

// Get returns a copy of the status of one payload.
func (sm *StatusManager) Get(payloadID string) (TransferStatus, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	status, exists := sm.transfers[payloadID]
	if !exists {
		return TransferStatus{}, ErrTransferNotFound
	}
	return *status, nil
}

// All returns copies of every tracked status, oldest first.
func (sm *StatusManager) All() []TransferStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]TransferStatus, 0, len(sm.transfers))
	for _, status := range sm.transfers {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].PayloadID < out[j].PayloadID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Active returns the statuses that have not reached a terminal state.
func (sm *StatusManager) Active() []TransferStatus {
	var out []TransferStatus
	for _, status := range sm.All() {
		if !status.State.IsTerminal() {
			out = append(out, status)
		}
	}
	return out
}

// CancelEndpoint marks every open transfer with endpointID as cancelled.
// Used when a peer disconnects mid-transfer.
func (sm *StatusManager) CancelEndpoint(endpointID string) int {
	sm.mu.Lock()
	now := time.Now()
	var changed []TransferStatus
	for _, status := range sm.transfers {
		if status.EndpointID == endpointID && !status.State.IsTerminal() {
			status.State = TransferStateCancelled
			status.LastUpdateTime = now
			status.CompletionTime = &now
			changed = append(changed, *status)
		}
	}
	sm.mu.Unlock()

	for _, status := range changed {
		sm.updates.Publish(status)
	}
	return len(changed)
}

// CleanupCompleted drops terminal transfers and returns how many were removed.
func (sm *StatusManager) CleanupCompleted() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	removed := 0
	for id, status := range sm.transfers {
		if status.State.IsTerminal() {
			delete(sm.transfers, id)
			removed++
		}
	}
	return removed
}

func (sm *StatusManager) nonTerminalCountUnsafe() int {
	count := 0
	for _, status := range sm.transfers {
		if !status.State.IsTerminal() {
			count++
		}
	}
	return count
}
