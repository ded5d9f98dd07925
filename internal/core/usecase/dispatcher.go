package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// ActionRegistry holds every registered ActionDefinition. It is populated
// during startup and read-only afterwards; the mutex exists so that startup
// registration from several entities stays safe, not for dispatch-time
// contention.
type ActionRegistry struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	actions map[string]domain.ActionDefinition
}

func NewActionRegistry(logger zerolog.Logger) *ActionRegistry {
	return &ActionRegistry{logger: logger, actions: make(map[string]domain.ActionDefinition)}
}

// Register adds an action. Duplicate ids are rejected. Rules declaring
// ownership "own" are warned about: per-record ownership comparison is not
// implemented and such rules match regardless of who owns the record.
func (r *ActionRegistry) Register(def domain.ActionDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	for i, rule := range def.Permissions {
		if rule.Ownership == domain.OwnershipOwn {
			r.logger.Warn().
				Str("action", def.ID).
				Int("rule", i).
				Msg("ownership \"own\" is not enforced; rule matches any record")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[def.ID]; exists {
		return fmt.Errorf("action %s is already registered", def.ID)
	}
	r.actions[def.ID] = def
	return nil
}

func (r *ActionRegistry) Get(id string) (domain.ActionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.actions[id]
	return def, ok
}

func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// ActionDispatcher runs the pipeline: permission check, handler, event
// publication. Each Dispatch call is an independent unit of work; many run
// concurrently against the frozen registry.
type ActionDispatcher struct {
	registry *ActionRegistry
	bus      *EventBus
	logger   zerolog.Logger
}

func NewActionDispatcher(registry *ActionRegistry, bus *EventBus, logger zerolog.Logger) *ActionDispatcher {
	return &ActionDispatcher{registry: registry, bus: bus, logger: logger}
}

// Dispatch executes the named action for the caller.
//
// Failure semantics: an unknown action or a denied caller fails before the
// handler runs and nothing is published. A handler error aborts before any
// event is published. Events returned by a successful handler describe
// already-committed facts and are handed to the bus after the handler
// returns; subscriber failures never surface here.
func (d *ActionDispatcher) Dispatch(ctx context.Context, actionID string, caller domain.Caller, payload map[string]any) (any, error) {
	def, ok := d.registry.Get(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, actionID)
	}

	decision := EvaluatePermissions(def.Permissions, caller)
	if !decision.Allowed() {
		d.logger.Warn().
			Str("action", actionID).
			Str("caller", caller.UserID).
			Str("tenant", caller.TenantID).
			Str("decision", decision.String()).
			Msg("action denied")
		return nil, &domain.PermissionDeniedError{Action: actionID, UserID: caller.UserID, Decision: decision}
	}

	result, err := def.Handler(ctx, domain.ActionInput{Caller: caller, Payload: payload})
	if err != nil {
		d.logger.Debug().
			Err(err).
			Str("action", actionID).
			Str("caller", caller.UserID).
			Msg("action handler failed")
		return nil, err
	}

	for _, event := range result.Events {
		if err := event.Validate(); err != nil {
			// The primary effect is already committed; a malformed event is
			// a programming error in the handler, logged and skipped so the
			// caller still receives the committed result.
			d.logger.Error().
				Err(err).
				Str("action", actionID).
				Str("event_type", event.Type).
				Msg("dropping malformed event")
			continue
		}
		d.bus.Publish(event)
	}

	d.logger.Debug().
		Str("action", actionID).
		Str("caller", caller.UserID).
		Int("events", len(result.Events)).
		Msg("action dispatched")
	return result.Data, nil
}
