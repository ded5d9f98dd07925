package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
)

var ErrInvalidPayload = errors.New("invalid payload")

// EntityService turns EntityDefinitions into registered CRUD actions. The
// generated handlers are the only writers of entity records: they validate
// data against the declared schema, guard workflow-governed fields against
// undeclared transitions, commit through the record store and describe the
// committed change as events.
type EntityService struct {
	store   ports.RecordStore
	schemas *SchemaService
}

func NewEntityService(store ports.RecordStore, schemas *SchemaService) *EntityService {
	return &EntityService{store: store, schemas: schemas}
}

// RegisterActions registers <entity>.create/get/update/delete/list for one
// declaration. Operations without declared permission rules stay registered
// but are denied to every caller.
func (s *EntityService) RegisterActions(reg *ActionRegistry, def domain.EntityDefinition) error {
	handlers := map[string]domain.ActionHandler{
		domain.OpCreate: s.createHandler(def),
		domain.OpGet:    s.getHandler(def),
		domain.OpUpdate: s.updateHandler(def),
		domain.OpDelete: s.deleteHandler(def),
		domain.OpList:   s.listHandler(def),
	}
	for _, op := range domain.EntityOps {
		err := reg.Register(domain.ActionDefinition{
			ID:          def.ActionID(op),
			Permissions: def.Rules(op),
			Handler:     handlers[op],
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *EntityService) createHandler(def domain.EntityDefinition) domain.ActionHandler {
	return func(ctx context.Context, input domain.ActionInput) (domain.ActionResult, error) {
		id := stringField(input.Payload, "id")
		if id == "" {
			id = uuid.NewString()
		}
		data, err := dataField(input.Payload)
		if err != nil {
			return domain.ActionResult{}, err
		}

		// Workflow-governed fields start at the declared initial state when
		// the caller leaves them out.
		for _, w := range def.Workflows {
			if _, ok := data[w.Field]; !ok && w.Initial != "" {
				data[w.Field] = w.Initial
			}
		}

		raw, err := json.Marshal(data)
		if err != nil {
			return domain.ActionResult{}, fmt.Errorf("marshal data: %w", err)
		}
		if err := s.schemas.Validate(def.Name, raw); err != nil {
			return domain.ActionResult{}, err
		}

		rec, err := s.store.Create(ctx, domain.Record{
			TenantID: input.Caller.TenantID,
			Entity:   def.Name,
			ID:       id,
			Data:     raw,
		})
		if err != nil {
			return domain.ActionResult{}, err
		}

		return domain.ActionResult{
			Data: rec,
			Events: []domain.Event{
				domain.NewEvent(def.Name+".created", rec.TenantID, map[string]any{
					"id":     rec.ID,
					"entity": def.Name,
					"data":   data,
				}),
			},
		}, nil
	}
}

func (s *EntityService) updateHandler(def domain.EntityDefinition) domain.ActionHandler {
	return func(ctx context.Context, input domain.ActionInput) (domain.ActionResult, error) {
		id := stringField(input.Payload, "id")
		if id == "" {
			return domain.ActionResult{}, fmt.Errorf("%w: id is required", ErrInvalidPayload)
		}
		data, err := dataField(input.Payload)
		if err != nil {
			return domain.ActionResult{}, err
		}

		prior, err := s.store.Get(ctx, input.Caller.TenantID, def.Name, id)
		if err != nil {
			return domain.ActionResult{}, err
		}
		var priorData map[string]any
		if err := json.Unmarshal(prior.Data, &priorData); err != nil {
			return domain.ActionResult{}, fmt.Errorf("decode stored record %s: %w", id, err)
		}

		// Workflow check runs against the committed value before anything is
		// written; an undeclared edge rejects the whole mutation. The store's
		// guard on UpdatedAt closes the race against a concurrent transition
		// validated from the same prior state.
		var transitions []domain.Event
		for _, w := range def.Workflows {
			oldVal := stringField(priorData, w.Field)
			newVal, present := data[w.Field]
			if !present {
				if oldVal != "" {
					data[w.Field] = oldVal
				}
				continue
			}
			next, _ := newVal.(string)
			if oldVal == "" {
				continue
			}
			tr, ok := ValidateTransition(w, oldVal, next)
			if next == oldVal {
				// Re-asserting the committed value moves along a declared
				// self-edge; without one the workflow is left untouched.
				if ok {
					transitions = append(transitions, TransitionEvent(def.Name, input.Caller.TenantID, id, w, tr))
				}
				continue
			}
			if !ok {
				return domain.ActionResult{}, &domain.WorkflowViolationError{
					Entity:   def.Name,
					Workflow: w.Name,
					Field:    w.Field,
					From:     oldVal,
					To:       next,
				}
			}
			transitions = append(transitions, TransitionEvent(def.Name, input.Caller.TenantID, id, w, tr))
		}

		raw, err := json.Marshal(data)
		if err != nil {
			return domain.ActionResult{}, fmt.Errorf("marshal data: %w", err)
		}
		if err := s.schemas.Validate(def.Name, raw); err != nil {
			return domain.ActionResult{}, err
		}

		rec, err := s.store.Update(ctx, domain.Record{
			TenantID: input.Caller.TenantID,
			Entity:   def.Name,
			ID:       id,
			Data:     raw,
		}, prior.UpdatedAt)
		if err != nil {
			return domain.ActionResult{}, err
		}

		events := []domain.Event{
			domain.NewEvent(def.Name+".updated", rec.TenantID, map[string]any{
				"id":     rec.ID,
				"entity": def.Name,
				"data":   data,
			}),
		}
		events = append(events, transitions...)

		return domain.ActionResult{Data: rec, Events: events}, nil
	}
}

func (s *EntityService) deleteHandler(def domain.EntityDefinition) domain.ActionHandler {
	return func(ctx context.Context, input domain.ActionInput) (domain.ActionResult, error) {
		id := stringField(input.Payload, "id")
		if id == "" {
			return domain.ActionResult{}, fmt.Errorf("%w: id is required", ErrInvalidPayload)
		}

		deleted, err := s.store.Delete(ctx, input.Caller.TenantID, def.Name, id)
		if err != nil {
			return domain.ActionResult{}, err
		}

		result := domain.ActionResult{Data: map[string]bool{"deleted": deleted}}
		if deleted {
			result.Events = []domain.Event{
				domain.NewEvent(def.Name+".deleted", input.Caller.TenantID, map[string]any{
					"id":     id,
					"entity": def.Name,
				}),
			}
		}
		return result, nil
	}
}

func (s *EntityService) getHandler(def domain.EntityDefinition) domain.ActionHandler {
	return func(ctx context.Context, input domain.ActionInput) (domain.ActionResult, error) {
		id := stringField(input.Payload, "id")
		if id == "" {
			return domain.ActionResult{}, fmt.Errorf("%w: id is required", ErrInvalidPayload)
		}
		rec, err := s.store.Get(ctx, input.Caller.TenantID, def.Name, id)
		if err != nil {
			return domain.ActionResult{}, err
		}
		return domain.ActionResult{Data: rec}, nil
	}
}

func (s *EntityService) listHandler(def domain.EntityDefinition) domain.ActionHandler {
	return func(ctx context.Context, input domain.ActionInput) (domain.ActionResult, error) {
		filter := domain.RecordListFilter{
			After: stringField(input.Payload, "after"),
			Limit: intField(input.Payload, "limit"),
		}
		if filter.Limit <= 0 {
			filter.Limit = 100
		}
		if filter.Limit > 1000 {
			filter.Limit = 1000
		}
		records, err := s.store.List(ctx, input.Caller.TenantID, def.Name, filter)
		if err != nil {
			return domain.ActionResult{}, err
		}
		return domain.ActionResult{Data: records}, nil
	}
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func intField(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func dataField(payload map[string]any) (map[string]any, error) {
	raw, ok := payload["data"]
	if !ok {
		return nil, fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: data must be an object", ErrInvalidPayload)
	}
	return data, nil
}
