// Package session runs at most one exchange engine at a time on behalf of
// the UI.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rescp17/nearbyExchanger/pkg/exchange"
)

var ErrNoSession = errors.New("no active session")

// Factory builds the engine for role together with whatever must be closed
// once the engine is stopped.
type Factory func(role exchange.Role) (exchange.Exchanger, io.Closer, error)

// Session is one running engine.
type Session struct {
	role      exchange.Role
	exchanger exchange.Exchanger
	closer    io.Closer
	logger    *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

func (s *Session) Role() exchange.Role {
	return s.role
}

func (s *Session) Exchanger() exchange.Exchanger {
	return s.exchanger
}

// Context is cancelled once the session has stopped.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Stop stops the engine before cancelling the session context, then
// releases the transport. It is safe to call more than once.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping session")
		s.exchanger.Stop()
		s.cancel()
		if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Session watcher ended with error", "error", err)
		}
		if s.closer != nil {
			s.stopErr = s.closer.Close()
		}
	})
	return s.stopErr
}

// Host owns the active Session.
type Host struct {
	factory Factory
	logger  *slog.Logger

	mu     sync.Mutex
	active *Session
}

func NewHost(factory Factory, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{factory: factory, logger: logger.With("component", "session-host")}
}

// Start stops the current session, if any, and starts a new one for role.
// Cancelling ctx stops the session as well.
func (h *Host) Start(ctx context.Context, role exchange.Role) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		h.logger.Info("Replacing active session", "old_role", h.active.role.String(), "new_role", role.String())
		if err := h.active.Stop(); err != nil {
			h.logger.Warn("Failed to release previous session", "error", err)
		}
		h.active = nil
	}

	ex, closer, err := h.factory(role)
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(sessionCtx)
	s := &Session{
		role:      role,
		exchanger: ex,
		closer:    closer,
		logger:    h.logger.With("role", role.String()),
		ctx:       sessionCtx,
		cancel:    cancel,
		group:     group,
	}

	ex.Start()
	group.Go(func() error {
		<-groupCtx.Done()
		if ctx.Err() != nil {
			// parent cancelled rather than Stop: stop the engine from here
			go h.release(s)
		}
		return nil
	})

	h.active = s
	h.logger.Info("Session started", "role", role.String())
	return s, nil
}

// release stops s and forgets it if it is still the active session.
func (h *Host) release(s *Session) {
	if err := s.Stop(); err != nil {
		h.logger.Warn("Failed to release session", "error", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == s {
		h.active = nil
	}
}

func (h *Host) Active() (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, h.active != nil
}

// Stop ends the active session. It returns ErrNoSession when none runs.
func (h *Host) Stop() error {
	h.mu.Lock()
	s := h.active
	h.active = nil
	h.mu.Unlock()

	if s == nil {
		return ErrNoSession
	}
	return s.Stop()
}
