/**
 * @description
 * This file defines the core domain models for the topup-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` whole currency units (FCFA carries no minor unit),
 *   which keeps the amount a single canonical integer type across the service.
 * - The raw PIN never appears on an entity; accounts only carry the bcrypt hash.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer request lifecycle states. A request starts as pending, is moved to
// validated by an admin, and may be parked as failed by an administrative error
// path. Validated and failed are terminal.
const (
	StatusPending   = "pending"
	StatusValidated = "validated"
	StatusFailed    = "failed"
)

// Payment methods accepted when submitting a transfer request.
const (
	PaymentMethodWave   = "wave"
	PaymentMethodPoints = "points"
)

// Carriers the service can record recharges for, in canonical lowercase form.
var KnownNetworks = map[string]bool{
	"orange": true,
	"mtn":    true,
	"moov":   true,
}

// Account represents a registered end user. It maps directly to the `accounts`
// table in the database.
type Account struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	PINHash     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransferRequest is the central record of an airtime transfer intent. It maps
// directly to the `transfer_requests` table.
type TransferRequest struct {
	ID               uuid.UUID `json:"id"`
	AccountID        uuid.UUID `json:"account_id"`
	RecipientNumber  string    `json:"recipient_number"`
	Network          string    `json:"network"`
	Amount           int64     `json:"amount"`
	PayerReference   string    `json:"payer_reference"`
	PaymentMethod    string    `json:"payment_method"`
	Status           string    `json:"status"`
	ConfirmationCode *string   `json:"confirmation_code,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AdminDevice holds the push-delivery target for the administrator application.
// Exactly one row exists at a time; registering a new token replaces it.
type AdminDevice struct {
	DeviceToken string    `json:"device_token"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegisterPayload is the DTO for incoming registration API requests.
type RegisterPayload struct {
	FullName        string `json:"full_name"`
	PhoneNumber     string `json:"phone_number"`
	PIN             string `json:"pin"`
	PINConfirmation string `json:"pin_confirmation"`
}

// LoginPayload is the DTO for incoming login API requests.
type LoginPayload struct {
	PhoneNumber string `json:"phone_number"`
	PIN         string `json:"pin"`
}

// UnlockPayload carries the PIN for re-authenticating an identified session.
type UnlockPayload struct {
	PIN string `json:"pin"`
}

// SubmitTransferPayload is the DTO for incoming transfer submission requests.
type SubmitTransferPayload struct {
	RecipientNumber string `json:"recipient_number"`
	Network         string `json:"network"`
	Amount          int64  `json:"amount"`
	PayerReference  string `json:"payer_reference"`
	PaymentMethod   string `json:"payment_method"`
}

// ValidatePayload is the DTO for the admin validation operation.
type ValidatePayload struct {
	RequestID        string `json:"request_id"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

// LoginResult is returned by a successful login. The session token is issued by
// the API layer; the engine itself only resolves the account.
type LoginResult struct {
	AccountID uuid.UUID `json:"account_id"`
	FullName  string    `json:"full_name"`
}

// RequestSubmittedEvent is the payload published to the message broker and
// pushed to the admin device when a new transfer request is accepted.
type RequestSubmittedEvent struct {
	RequestID       uuid.UUID `json:"request_id"`
	Network         string    `json:"network"`
	Amount          int64     `json:"amount"`
	RecipientNumber string    `json:"recipient_number"`
	Timestamp       time.Time `json:"timestamp"`
}
