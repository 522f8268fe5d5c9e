/**
 * @description
 * This file contains the HTTP handlers for the admin surface: the pending
 * request list polled by the administrator application, the validation
 * operation, and registration of the admin push-delivery device. All routes
 * here sit behind the internal API key middleware.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/otransous/topup-service/internal/domain"
)

// ListPendingHandler returns all pending transfer requests, newest first.
func (h *TopupHandlers) ListPendingHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListPending(r.Context())
	if err != nil {
		h.writeDomainError(w, "list_pending", err)
		return
	}
	if requests == nil {
		requests = []domain.TransferRequest{}
	}
	h.writeJSON(w, http.StatusOK, requests)
}

// ValidateHandler transitions a transfer request to validated, optionally
// attaching the confirmation code entered by the administrator.
func (h *TopupHandlers) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.ValidatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}
	if payload.RequestID == "" {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Request ID is required")
		return
	}
	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request ID format")
		return
	}

	req, err := h.service.Validate(r.Context(), requestID, payload.ConfirmationCode)
	if err != nil {
		h.writeDomainError(w, "validate", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"status": req.Status,
	})
}

// RegisterAdminDeviceHandler stores the push-delivery token of the admin device.
func (h *TopupHandlers) RegisterAdminDeviceHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}

	if err := h.service.RegisterAdminTarget(r.Context(), payload.Token); err != nil {
		h.writeDomainError(w, "register_admin_device", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
