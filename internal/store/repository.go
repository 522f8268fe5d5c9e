/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the topup-service. Defining an interface
 * decouples the request lifecycle engine from the PostgreSQL implementation and
 * makes the engine testable against in-memory stubs.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/otransous/topup-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// Transfer request methods
	CreateTransferRequest(ctx context.Context, req *domain.TransferRequest) error
	FindTransferRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.TransferRequest, error)
	ListPendingTransferRequests(ctx context.Context) ([]domain.TransferRequest, error)
	// ValidateTransferRequest atomically moves a request to validated. A non-empty
	// confirmation code replaces the stored one; an empty code leaves it untouched.
	// Returns ErrRequestFailed when the request is in the terminal failed state.
	ValidateTransferRequest(ctx context.Context, requestID uuid.UUID, confirmationCode string) (*domain.TransferRequest, error)

	// Admin device methods
	UpsertAdminDevice(ctx context.Context, deviceToken string) error
	GetAdminDevice(ctx context.Context) (*domain.AdminDevice, error)
}
