// Package app holds the coordinator's pending-action slot: the single
// outstanding request that waits for a picker or permission result.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rescp17/nearbyExchanger/pkg/exchange"
)

var (
	ErrActionPending   = errors.New("invalid state: an action is already pending")
	ErrNoPendingAction = errors.New("invalid state: no action is pending")
)

// PendingAction is what the coordinator does once the UI answers a request.
// The variants are StartService, AddSaveDirectory, SendFile and SendDirectory.
type PendingAction interface {
	isPendingAction()
	fmt.Stringer
}

type StartService struct {
	Role exchange.Role
}

type AddSaveDirectory struct{}

type SendFile struct{}

type SendDirectory struct{}

func (StartService) isPendingAction()     {}
func (AddSaveDirectory) isPendingAction() {}
func (SendFile) isPendingAction()         {}
func (SendDirectory) isPendingAction()    {}

func (a StartService) String() string { return "start-service(" + a.Role.String() + ")" }
func (AddSaveDirectory) String() string { return "add-save-directory" }
func (SendFile) String() string         { return "send-file" }
func (SendDirectory) String() string    { return "send-directory" }

// PendingSlot holds at most one PendingAction and is safe for concurrent use.
type PendingSlot struct {
	mu     sync.Mutex
	action PendingAction
}

func NewPendingSlot() *PendingSlot {
	return &PendingSlot{}
}

// Set stores action. It fails when another action is still outstanding.
func (s *PendingSlot) Set(action PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.action != nil {
		err := fmt.Errorf("%w: %s while %s", ErrActionPending, action, s.action)
		slog.Error("Failed to set pending action", "error", err)
		return err
	}
	s.action = action
	return nil
}

// Take removes and returns the outstanding action.
func (s *PendingSlot) Take() (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.action == nil {
		return nil, ErrNoPendingAction
	}
	action := s.action
	s.action = nil
	return action, nil
}

// Peek reports the outstanding action without removing it.
func (s *PendingSlot) Peek() (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action, s.action != nil
}

// Clear drops the outstanding action, if any, and reports what was dropped.
func (s *PendingSlot) Clear() (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action := s.action
	s.action = nil
	return action, action != nil
}
