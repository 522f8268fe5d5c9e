package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/otransous/topup-service/internal/app"
	"github.com/otransous/topup-service/internal/domain"
	"github.com/otransous/topup-service/internal/store"
)

func newTestHandlers(service *app.Service) *TopupHandlers {
	return NewTopupHandlers(service, testJWTSecret, time.Hour)
}

func TestWriteDomainError_MapsKindsToStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "validation error",
			err:        domain.ValidationError("the PIN must be exactly 4 digits"),
			wantStatus: http.StatusBadRequest,
			wantKind:   domain.KindValidation,
		},
		{
			name:       "conflict error",
			err:        domain.ConflictError("this phone number is already registered"),
			wantStatus: http.StatusConflict,
			wantKind:   domain.KindConflict,
		},
		{
			name:       "not found error",
			err:        domain.NotFoundError("transfer request not found"),
			wantStatus: http.StatusNotFound,
			wantKind:   domain.KindNotFound,
		},
		{
			name:       "auth error",
			err:        domain.AuthError("incorrect PIN"),
			wantStatus: http.StatusUnauthorized,
			wantKind:   domain.KindAuth,
		},
		{
			name:       "unexpected error is internal",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   domain.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(nil)
			rec := httptest.NewRecorder()
			h.writeDomainError(rec, "test", tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Kind != tt.wantKind {
				t.Fatalf("expected kind %q, got %q", tt.wantKind, body.Kind)
			}
		})
	}
}

func TestWriteDomainError_ThrottledSetsRetryAfter(t *testing.T) {
	h := newTestHandlers(nil)
	rec := httptest.NewRecorder()
	h.writeDomainError(rec, "login", &app.PINThrottledError{RetryAfterSeconds: 42})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After 42, got %q", got)
	}
}

func TestValidateHandler_RejectsMalformedRequestIDs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "missing request id", body: `{"confirmation_code":"CI123"}`},
		{name: "request id not a uuid", body: `{"request_id":"not-a-uuid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(nil)
			req := httptest.NewRequest(http.MethodPost, "/admin/requests/validate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ValidateHandler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

type emptyPendingRepoStub struct {
	store.Repository
}

func (s *emptyPendingRepoStub) ListPendingTransferRequests(ctx context.Context) ([]domain.TransferRequest, error) {
	return nil, nil
}

func TestListPendingHandler_ReturnsEmptyArrayNotNull(t *testing.T) {
	service := app.NewService(&emptyPendingRepoStub{}, nil)
	h := newTestHandlers(service)

	req := httptest.NewRequest(http.MethodGet, "/admin/requests/pending", nil)
	rec := httptest.NewRecorder()
	h.ListPendingHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected an empty JSON array, got %q", body)
	}
}

func TestUnlockHandler_RejectsUnauthenticatedContext(t *testing.T) {
	h := newTestHandlers(nil)
	req := httptest.NewRequest(http.MethodPost, "/auth/unlock", strings.NewReader(`{"pin":"1234"}`))
	rec := httptest.NewRecorder()
	h.UnlockHandler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an authenticated context, got %d", rec.Code)
	}
}
