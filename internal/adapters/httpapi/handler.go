package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/usecase"
)

type ctxKey string

const (
	callerCtxKey    ctxKey = "caller"
	maxJSONBodySize        = 1 << 20
)

// Error reasons are stable and machine-distinguishable so callers can react
// without parsing messages.
const (
	reasonUnauthorized      = "unauthorized"
	reasonPermissionDenied  = "permission_denied"
	reasonUnknownAction     = "unknown_action"
	reasonSchemaViolation   = "schema_violation"
	reasonWorkflowViolation = "workflow_violation"
	reasonInvalidRequest    = "invalid_request"
	reasonNotFound          = "not_found"
	reasonConflict          = "conflict"
	reasonInternal          = "internal"
)

type Handler struct {
	dispatcher *usecase.ActionDispatcher
	auth       *usecase.AuthService
	audit      *usecase.AuditService
	logger     zerolog.Logger
}

func NewHandler(dispatcher *usecase.ActionDispatcher, auth *usecase.AuthService, audit *usecase.AuditService, logger zerolog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, auth: auth, audit: audit, logger: logger}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAPIKey)
		pr.Post("/v1/actions/{action}", h.dispatchAction)

		pr.Post("/v1/entities/{entity}/records", h.createRecord)
		pr.Get("/v1/entities/{entity}/records", h.listRecords)
		pr.Get("/v1/entities/{entity}/records/{id}", h.getRecord)
		pr.Put("/v1/entities/{entity}/records/{id}", h.updateRecord)
		pr.Delete("/v1/entities/{entity}/records/{id}", h.deleteRecord)

		pr.Get("/v1/audit", h.listAudit)
	})

	return r
}

func (h *Handler) dispatchAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, action, payload)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, entity+"."+domain.OpCreate, payload)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")
	h.dispatch(w, r, entity+"."+domain.OpGet, map[string]any{"id": id})
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "invalid json body")
		return
	}

	h.dispatch(w, r, entity+"."+domain.OpUpdate, map[string]any{"id": id, "data": data})
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")
	h.dispatch(w, r, entity+"."+domain.OpDelete, map[string]any{"id": id})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	payload := map[string]any{}
	if after := r.URL.Query().Get("after"); after != "" {
		payload["after"] = after
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, reasonInvalidRequest, "limit must be integer")
			return
		}
		payload["limit"] = limit
	}
	h.dispatch(w, r, entity+"."+domain.OpList, payload)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())

	filter := domain.AuditFilter{
		TenantID:  caller.TenantID,
		EventType: r.URL.Query().Get("event_type"),
		RecordID:  r.URL.Query().Get("record_id"),
	}
	if raw := r.URL.Query().Get("after_id"); raw != "" {
		afterID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, reasonInvalidRequest, "after_id must be integer")
			return
		}
		filter.AfterID = afterID
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, reasonInvalidRequest, "limit must be integer")
			return
		}
		filter.Limit = limit
	}

	events, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, actionID string, payload map[string]any) {
	caller := callerFromContext(r.Context())
	result, err := h.dispatcher.Dispatch(r.Context(), actionID, caller, payload)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if token == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}

		caller, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, reasonUnauthorized, "unauthorized")
				return
			}
			h.logger.Error().Err(err).Msg("authenticate request")
			writeError(w, http.StatusInternalServerError, reasonInternal, "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), callerCtxKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var permErr *domain.PermissionDeniedError
	var schemaErr *usecase.SchemaViolationError
	var workflowErr *domain.WorkflowViolationError

	switch {
	case errors.As(err, &permErr):
		writeError(w, http.StatusForbidden, reasonPermissionDenied, permErr.Error())
	case errors.Is(err, domain.ErrUnknownAction):
		writeError(w, http.StatusNotFound, reasonUnknownAction, err.Error())
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusUnprocessableEntity, reasonSchemaViolation, schemaErr.Error())
	case errors.As(err, &workflowErr):
		writeError(w, http.StatusUnprocessableEntity, reasonWorkflowViolation, workflowErr.Error())
	case errors.Is(err, usecase.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrInvalidName):
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, reasonNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, reasonConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, reasonInternal, "internal server error")
	}
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)

	payload := map[string]any{}
	if err := decoder.Decode(&payload); err != nil {
		if err == io.EOF {
			return payload, true
		}
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "invalid json body")
		return nil, false
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "invalid json body")
		return nil, false
	}
	return payload, true
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func callerFromContext(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(callerCtxKey).(domain.Caller)
	return caller
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]any{"error": message, "reason": reason})
}
