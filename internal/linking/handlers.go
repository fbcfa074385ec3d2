package linking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/types"
)

// Handlers provides HTTP handlers for patient/account linking
type Handlers struct {
	service interfaces.LinkService
}

// NewHandlers creates new linking handlers
func NewHandlers(service interfaces.LinkService) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers all linking routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/profiles/lookup", h.LookupProfile).Methods("GET")
	router.HandleFunc("/patients/{id}/link", h.LinkPatient).Methods("POST")
	router.HandleFunc("/patients/{id}/unlink", h.UnlinkPatient).Methods("POST")
}

// LookupProfile handles searching the user directory by email
func (h *Handlers) LookupProfile(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "email is required", nil))
		return
	}

	profile, err := h.service.LookupProfile(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if profile == nil {
		// A miss is a valid outcome carrying guidance, not a failure
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"found":   false,
			"message": "No account registered with this email. Ask the user to sign up first.",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"found":   true,
		"profile": profile,
	})
}

type linkRequest struct {
	PatientName string             `json:"patient_name"`
	Profile     *types.UserProfile `json:"profile"`
}

// LinkPatient handles associating a patient with a user account
func (h *Handlers) LinkPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	result, err := h.service.Link(r.Context(), patientID, req.PatientName, req.Profile)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type unlinkRequest struct {
	PatientName string `json:"patient_name"`
}

// UnlinkPatient handles removing a patient's account association
func (h *Handlers) UnlinkPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var req unlinkRequest
	if r.Body != nil {
		// The name is only used for the notification text; an empty body is fine
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.Unlink(r.Context(), patientID, req.PatientName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
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
