package transfer

import (
	"io"
	"log/slog"
	"sync"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// Router receives payload callbacks from the transport. It hands inbound
// content to a FileWriter and feeds byte progress to a StatusManager. Stored
// content is committed when its transfer completes and discarded when it
// fails or is cancelled.
type Router struct {
	writer FileWriter
	status *StatusManager
	logger *slog.Logger

	mu     sync.Mutex
	staged map[string]stagedFile // by payload id
}

type stagedFile struct {
	endpointID string
	path       string
}

var _ nearby.PayloadListener = (*Router)(nil)

// NewRouter creates a router. A nil writer drops inbound file content after
// draining it.
func NewRouter(writer FileWriter, status *StatusManager, logger *slog.Logger) *Router {
	if status == nil {
		status = NewStatusManager()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		writer: writer,
		status: status,
		logger: logger.With("component", "payload-router"),
		staged: make(map[string]stagedFile),
	}
}

// Status returns the progress tracker fed by this router.
func (r *Router) Status() *StatusManager {
	return r.status
}

func (r *Router) OnPayloadReceived(endpointID string, payload nearby.Payload) {
	if _, err := r.status.Begin(endpointID, payload, false); err != nil {
		r.logger.Warn("Could not track inbound payload", "endpoint", endpointID, "payload", payload.ID, "error", err)
	}

	switch payload.Kind {
	case nearby.PayloadBytes:
		r.logger.Info("Received message", "endpoint", endpointID, "size", len(payload.Bytes), "message", string(payload.Bytes))
	case nearby.PayloadFile, nearby.PayloadStream:
		r.store(endpointID, payload)
	default:
		r.logger.Warn("Received payload of unknown kind", "endpoint", endpointID, "kind", payload.Kind)
	}
}

func (r *Router) OnPayloadTransferUpdate(endpointID string, update nearby.TransferUpdate) {
	status, err := r.status.Apply(endpointID, update)
	if err != nil {
		r.logger.Warn("Ignoring invalid transfer update", "endpoint", endpointID, "payload", update.PayloadID, "error", err)
		return
	}
	r.logger.Debug("Transfer update",
		"endpoint", endpointID,
		"payload", update.PayloadID,
		"state", status.State.String(),
		"bytes", update.BytesTransferred,
		"total", update.TotalBytes,
	)
	if status.State.IsTerminal() {
		r.finish(update.PayloadID, status.State)
	}
}

// TrackOutgoing registers a payload the local endpoint is about to send.
func (r *Router) TrackOutgoing(endpointID string, payload nearby.Payload) {
	if _, err := r.status.Begin(endpointID, payload, true); err != nil {
		r.logger.Warn("Could not track outgoing payload", "endpoint", endpointID, "payload", payload.ID, "error", err)
	}
}

// EndpointGone cancels the open transfers of a peer that disconnected.
func (r *Router) EndpointGone(endpointID string) {
	if n := r.status.CancelEndpoint(endpointID); n > 0 {
		r.logger.Info("Cancelled transfers of disconnected endpoint", "endpoint", endpointID, "count", n)
	}

	r.mu.Lock()
	var ids []string
	for id, f := range r.staged {
		if f.endpointID == endpointID {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.finish(id, TransferStateCancelled)
	}
}

func (r *Router) store(endpointID string, payload nearby.Payload) {
	if payload.Body == nil {
		r.logger.Warn("File payload without body", "endpoint", endpointID, "payload", payload.ID)
		return
	}
	if r.writer == nil {
		r.logger.Warn("No file writer configured, discarding payload", "endpoint", endpointID, "name", payload.Name)
		if _, err := io.Copy(io.Discard, payload.Body); err != nil {
			r.logger.Warn("Failed to drain discarded payload", "error", err)
		}
		return
	}

	path, err := r.writer.Write(endpointID, payload.Name, payload.Body)
	if err != nil {
		r.logger.Error("Failed to store payload", "endpoint", endpointID, "name", payload.Name, "error", err)
		if _, applyErr := r.status.Apply(endpointID, nearby.TransferUpdate{
			PayloadID: payload.ID,
			Status:    nearby.TransferFailure,
		}); applyErr != nil {
			r.logger.Warn("Could not record failed transfer", "payload", payload.ID, "error", applyErr)
		}
		return
	}
	r.mu.Lock()
	r.staged[payload.ID] = stagedFile{endpointID: endpointID, path: path}
	r.mu.Unlock()
	if err := r.status.SetStoredPath(payload.ID, path); err != nil {
		r.logger.Debug("Stored payload is not tracked", "payload", payload.ID, "error", err)
	}

	// The transport may already have reported the outcome.
	if status, err := r.status.Get(payload.ID); err == nil && status.State.IsTerminal() {
		r.finish(payload.ID, status.State)
	}
}

// finish commits or discards the staged content of a payload that reached
// state.
func (r *Router) finish(payloadID string, state TransferState) {
	r.mu.Lock()
	f, ok := r.staged[payloadID]
	delete(r.staged, payloadID)
	r.mu.Unlock()
	if !ok {
		return
	}

	if state != TransferStateCompleted {
		if err := r.writer.Discard(f.path); err != nil {
			r.logger.Error("Failed to discard unverified payload", "payload", payloadID, "path", f.path, "error", err)
			return
		}
		r.logger.Info("Discarded unverified payload", "payload", payloadID, "state", state.String())
		if err := r.status.SetStoredPath(payloadID, ""); err != nil {
			r.logger.Debug("Discarded payload is not tracked", "payload", payloadID, "error", err)
		}
		return
	}

	path, err := r.writer.Commit(f.path)
	if err != nil {
		r.logger.Error("Failed to commit payload", "payload", payloadID, "path", f.path, "error", err)
		return
	}
	if err := r.status.SetStoredPath(payloadID, path); err != nil {
		r.logger.Debug("Committed payload is not tracked", "payload", payloadID, "error", err)
	}
}
