package service

import (
	"context"
	"sync"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/domain"
	"github.com/corvid-labs/gatekeep/pkg/slogx"
)

// Event names dispatched on authentication state transitions.
type Event string

const (
	EventLogin  Event = "login"
	EventLogout Event = "logout"
)

// Notifier receives authentication events. Implementations must not block
// the authentication flow; slow or failing hooks are the implementation's
// problem.
type Notifier interface {
	Notify(ctx context.Context, event Event, principal domain.Principal)
}

// Hook is a single notification callback.
type Hook func(ctx context.Context, event Event, principal domain.Principal) error

// HookNotifier fans events out to registered hooks. Hook errors are logged
// at debug level and never propagate; a broken hook must not break a
// login.
type HookNotifier struct {
	mu    sync.RWMutex
	hooks []Hook
}

func NewHookNotifier(hooks ...Hook) *HookNotifier {
	return &HookNotifier{hooks: hooks}
}

// Register appends a hook. Safe for concurrent use.
func (n *HookNotifier) Register(h Hook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks = append(n.hooks, h)
}

func (n *HookNotifier) Notify(ctx context.Context, event Event, principal domain.Principal) {
	n.mu.RLock()
	hooks := make([]Hook, len(n.hooks))
	copy(hooks, n.hooks)
	n.mu.RUnlock()

	log := slogx.FromContext(ctx)
	for _, h := range hooks {
		if err := h(ctx, event, principal); err != nil {
			log.Debug("notification hook failed",
				"event", string(event),
				"principal_id", principal.ID,
				"error", err,
			)
		}
	}
	log.Debug("notification dispatched", "event", string(event), "principal_id", principal.ID)
}
