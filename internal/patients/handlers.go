package patients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carelink/patient-admin/internal/gateway"
	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/types"
)

// Handlers provides HTTP handlers for patient directory and approval operations
type Handlers struct {
	service interfaces.ApprovalService
}

// NewHandlers creates new patient handlers
func NewHandlers(service interfaces.ApprovalService) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers all patient routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", h.SearchPatients).Methods("GET")
	router.HandleFunc("/patients/pending", h.GetPendingApprovals).Methods("GET")
	router.HandleFunc("/patients/{id}/approve", h.ApprovePatient).Methods("POST")
	router.HandleFunc("/patients/{id}/reject", h.RejectPatient).Methods("POST")
}

// SearchPatients handles filtered patient directory queries
func (h *Handlers) SearchPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := types.DefaultPatientFilters()
	filters.SearchQuery = query.Get("search")
	if v := query.Get("blood_group"); v != "" {
		filters.BloodGroup = types.BloodGroup(v)
		if filters.BloodGroup != types.BloodGroupAll && !filters.BloodGroup.IsValid() {
			writeError(w, types.NewValidationError(types.ErrCodeInvalidInput,
				"unknown blood group: "+v, nil))
			return
		}
	}
	if v := query.Get("risk_level"); v != "" {
		filters.RiskLevel = types.RiskLevel(v)
		if filters.RiskLevel != types.RiskLevelAll && !filters.RiskLevel.IsValid() {
			writeError(w, types.NewValidationError(types.ErrCodeInvalidInput,
				"unknown risk level: "+v, nil))
			return
		}
	}

	patients, err := h.service.SearchPatients(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": emptyIfNil(patients),
		"count":    len(patients),
	})
}

// GetPendingApprovals handles listing registrations awaiting a decision
func (h *Handlers) GetPendingApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingApprovals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": emptyIfNil(pending),
		"count":    len(pending),
	})
}

// ApprovePatient handles approving a pending registration
func (h *Handlers) ApprovePatient(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// RejectPatient handles rejecting a pending registration
func (h *Handlers) RejectPatient(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

// decide runs one approval decision and responds with the refreshed pending list
func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, patientID, actorID string) ([]*types.Patient, error)) {
	actorID := gateway.UserIDFromContext(r.Context())
	if actorID == "" {
		writeError(w, types.NewValidationError(types.ErrCodeUnauthorized,
			"acting user not identified", nil))
		return
	}

	patientID := mux.Vars(r)["id"]

	pending, err := op(r.Context(), patientID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": emptyIfNil(pending),
		"count":    len(pending),
	})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeError maps a service error onto an HTTP status and JSON envelope
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := types.ErrCodeInternalError
	message := "internal error"

	var ce *types.CarelinkError
	if errors.As(err, &ce) {
		code = ce.Code
		message = ce.Message
		if ce.Code == types.ErrCodeUnauthorized {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]string{"code": code, "message": message},
			})
			return
		}
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

	writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// emptyIfNil keeps list responses as [] rather than null
func emptyIfNil(patients []*types.Patient) []*types.Patient {
	if patients == nil {
		return []*types.Patient{}
	}
	return patients
}
