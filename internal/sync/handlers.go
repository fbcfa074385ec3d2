package sync

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carelink/patient-admin/internal/gateway"
	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/types"
)

// Handlers provides HTTP handlers for the offline sync engine
type Handlers struct {
	service   interfaces.SyncService
	indicator *Indicator
}

// NewHandlers creates new sync handlers
func NewHandlers(service interfaces.SyncService, indicator *Indicator) *Handlers {
	return &Handlers{
		service:   service,
		indicator: indicator,
	}
}

// RegisterRoutes registers all sync routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sync/status", h.GetStatus).Methods("GET")
	router.HandleFunc("/sync/indicator", h.GetIndicator).Methods("GET")
	router.HandleFunc("/sync", h.TriggerSync).Methods("POST")
	router.HandleFunc("/sync/queue", h.QueueWrite).Methods("POST")
	router.HandleFunc("/sync/online", h.SetOnline).Methods("PUT")
}

// GetStatus handles reporting the raw sync state
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// GetIndicator handles rendering the connectivity indicator
func (h *Handlers) GetIndicator(w http.ResponseWriter, r *http.Request) {
	view, err := h.indicator.View(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// TriggerSync handles a manual drain request from the indicator
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.indicator.Trigger(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	status, err := h.service.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

type queueWriteRequest struct {
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id"`
	Operation  string          `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
}

// QueueWrite handles capturing a mutation for later replay
func (h *Handlers) QueueWrite(w http.ResponseWriter, r *http.Request) {
	var req queueWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	write := &types.PendingWrite{
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		Operation:  types.WriteOperation(req.Operation),
		Payload:    req.Payload,
		QueuedBy:   gateway.UserIDFromContext(r.Context()),
	}

	if err := h.service.QueueWrite(r.Context(), write); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, write)
}

type setOnlineRequest struct {
	Online bool `json:"online"`
}

// SetOnline handles recording a connectivity transition
func (h *Handlers) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req setOnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	h.service.SetOnline(req.Online)

	status, err := h.service.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := types.ErrCodeInternalError
	message := "internal error"

	var ce *types.CarelinkError
	if errors.As(err, &ce) {
		code = ce.Code
		message = ce.Message
		switch ce.Type {
		case types.ErrorTypeValidation:
			statusCode = http.StatusBadRequest
		case types.ErrorTypeNotFound:
			statusCode = http.StatusNotFound
		case types.ErrorTypeConflict:
			statusCode = http.StatusConflict
		case types.ErrorTypeOffline:
			statusCode = http.StatusServiceUnavailable
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	h.writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
