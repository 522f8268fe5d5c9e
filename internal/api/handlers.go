/**
 * @description
 * This file contains the HTTP handlers for the user-facing endpoints of the
 * topup-service. Handlers parse incoming requests, call the lifecycle engine,
 * and translate domain errors into HTTP responses with a stable machine-readable
 * error kind.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/otransous/topup-service/internal/app"
	"github.com/otransous/topup-service/internal/domain"
)

// TopupHandlers holds the application service and session settings the
// handlers need.
type TopupHandlers struct {
	service    *app.Service
	jwtSecret  string
	sessionTTL time.Duration
}

// NewTopupHandlers creates a new instance of TopupHandlers.
func NewTopupHandlers(service *app.Service, jwtSecret string, sessionTTL time.Duration) *TopupHandlers {
	return &TopupHandlers{service: service, jwtSecret: jwtSecret, sessionTTL: sessionTTL}
}

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func (h *TopupHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TopupHandlers) writeError(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, errorResponse{Kind: kind, Error: message})
}

// writeDomainError maps an error returned by the lifecycle engine onto an HTTP
// response. Anything that is not a caller-fault domain error is an internal
// error: logged, and surfaced as retryable.
func (h *TopupHandlers) writeDomainError(w http.ResponseWriter, endpoint string, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.KindValidation:
			h.writeError(w, http.StatusBadRequest, derr.Kind, derr.Message)
		case domain.KindConflict:
			h.writeError(w, http.StatusConflict, derr.Kind, derr.Message)
		case domain.KindNotFound:
			h.writeError(w, http.StatusNotFound, derr.Kind, derr.Message)
		case domain.KindAuth:
			h.writeError(w, http.StatusUnauthorized, derr.Kind, derr.Message)
		default:
			h.writeError(w, http.StatusInternalServerError, domain.KindInternal, derr.Message)
		}
		return
	}

	var throttled *app.PINThrottledError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(throttled.RetryAfterSeconds))
		h.writeError(w, http.StatusTooManyRequests, domain.KindAuth, "Too many PIN attempts. Please wait and try again.")
		return
	}

	log.Printf("level=error component=api endpoint=%s msg=\"request failed\" err=%v", endpoint, err)
	h.writeError(w, http.StatusInternalServerError, domain.KindInternal, "Internal server error")
}

// RegisterHandler handles account registration requests.
func (h *TopupHandlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}

	account, err := h.service.Register(r.Context(), payload)
	if err != nil {
		h.writeDomainError(w, "register", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"account_id": account.ID.String(),
		"message":    "Registration successful",
	})
}

// LoginHandler authenticates a phone/PIN pair and issues a session token.
func (h *TopupHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), payload.PhoneNumber, payload.PIN)
	if err != nil {
		h.writeDomainError(w, "login", err)
		return
	}

	token, err := GenerateSessionToken(result.AccountID, h.jwtSecret, h.sessionTTL)
	if err != nil {
		log.Printf("level=error component=api endpoint=login msg=\"token generation failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, domain.KindInternal, "Failed to issue session token")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"account_id": result.AccountID.String(),
		"full_name":  result.FullName,
		"token":      token,
	})
}

// UnlockHandler re-verifies the PIN for the authenticated session.
func (h *TopupHandlers) UnlockHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.KindAuth, "Not authenticated")
		return
	}

	var payload domain.UnlockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}

	if err := h.service.Unlock(r.Context(), accountID, payload.PIN); err != nil {
		h.writeDomainError(w, "unlock", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SubmitTransferHandler accepts a new airtime transfer request.
func (h *TopupHandlers) SubmitTransferHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.KindAuth, "Not authenticated")
		return
	}

	var payload domain.SubmitTransferPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.KindValidation, "Invalid request body")
		return
	}

	req, err := h.service.SubmitTransfer(r.Context(), accountID, payload)
	if err != nil {
		h.writeDomainError(w, "submit", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"request_id": req.ID.String(),
		"status":     req.Status,
	})
}
