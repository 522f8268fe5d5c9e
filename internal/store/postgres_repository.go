/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed for accounts, transfer requests, and the single
 * admin device row.
 *
 * @notes
 * - Phone number uniqueness is enforced by the unique constraint on
 *   accounts.phone_number. CreateAccount surfaces a 23505 violation as
 *   ErrPhoneNumberTaken instead of pre-checking, so two concurrent registrations
 *   for the same number cannot race past each other.
 * - ValidateTransferRequest is a single conditional UPDATE (compare-and-set on
 *   status <> 'failed') so concurrent admin validations cannot lose updates.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otransous/topup-service/internal/domain"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrPhoneNumberTaken = errors.New("phone number already registered")
	ErrRequestNotFound  = errors.New("transfer request not found")
	ErrRequestFailed    = errors.New("transfer request already failed")
	ErrNoAdminDevice    = errors.New("no admin device registered")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateAccount inserts a new account record. The caller supplies the id and the
// already-hashed PIN; created_at is assigned by the database.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, full_name, phone_number, pin_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.FullName,
		account.PhoneNumber,
		account.PINHash,
	).Scan(&account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhoneNumberTaken
		}
		return err
	}
	return nil
}

// FindAccountByPhoneNumber retrieves an account by its login identifier.
func (r *PostgresRepository) FindAccountByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, full_name, phone_number, pin_hash, created_at FROM accounts WHERE phone_number = $1`
	err := r.db.QueryRow(ctx, query, phoneNumber).Scan(
		&account.ID, &account.FullName, &account.PhoneNumber, &account.PINHash, &account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByID retrieves an account by its id.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, full_name, phone_number, pin_hash, created_at FROM accounts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.FullName, &account.PhoneNumber, &account.PINHash, &account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreateTransferRequest persists a new transfer request in the pending state.
func (r *PostgresRepository) CreateTransferRequest(ctx context.Context, req *domain.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests
			(id, account_id, recipient_number, network, amount, payer_reference, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		req.ID,
		req.AccountID,
		req.RecipientNumber,
		req.Network,
		req.Amount,
		req.PayerReference,
		req.PaymentMethod,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

// FindTransferRequestByID retrieves a single transfer request.
func (r *PostgresRepository) FindTransferRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.TransferRequest, error) {
	var req domain.TransferRequest
	query := `
		SELECT id, account_id, recipient_number, network, amount, payer_reference,
		       payment_method, status, confirmation_code, created_at, updated_at
		FROM transfer_requests
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&req.ID, &req.AccountID, &req.RecipientNumber, &req.Network, &req.Amount,
		&req.PayerReference, &req.PaymentMethod, &req.Status, &req.ConfirmationCode,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListPendingTransferRequests returns all pending requests, newest first. The
// (status, created_at DESC) index keeps the admin poll cheap.
func (r *PostgresRepository) ListPendingTransferRequests(ctx context.Context) ([]domain.TransferRequest, error) {
	query := `
		SELECT id, account_id, recipient_number, network, amount, payer_reference,
		       payment_method, status, confirmation_code, created_at, updated_at
		FROM transfer_requests
		WHERE status = 'pending'
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.TransferRequest
	for rows.Next() {
		var req domain.TransferRequest
		err := rows.Scan(
			&req.ID, &req.AccountID, &req.RecipientNumber, &req.Network, &req.Amount,
			&req.PayerReference, &req.PaymentMethod, &req.Status, &req.ConfirmationCode,
			&req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ValidateTransferRequest moves a request to validated in one atomic statement.
// Re-validating an already-validated request succeeds; a non-empty confirmation
// code overwrites the stored one while an empty code keeps it. Requests in the
// failed state are never resurrected.
func (r *PostgresRepository) ValidateTransferRequest(ctx context.Context, requestID uuid.UUID, confirmationCode string) (*domain.TransferRequest, error) {
	var req domain.TransferRequest
	query := `
		UPDATE transfer_requests
		SET status = 'validated',
		    confirmation_code = COALESCE(NULLIF($2, ''), confirmation_code),
		    updated_at = NOW()
		WHERE id = $1 AND status <> 'failed'
		RETURNING id, account_id, recipient_number, network, amount, payer_reference,
		          payment_method, status, confirmation_code, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, requestID, confirmationCode).Scan(
		&req.ID, &req.AccountID, &req.RecipientNumber, &req.Network, &req.Amount,
		&req.PayerReference, &req.PaymentMethod, &req.Status, &req.ConfirmationCode,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish an unknown id from a failed request.
			existing, findErr := r.FindTransferRequestByID(ctx, requestID)
			if findErr != nil {
				return nil, findErr
			}
			if existing.Status == domain.StatusFailed {
				return nil, ErrRequestFailed
			}
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpsertAdminDevice replaces the single admin push-delivery target.
func (r *PostgresRepository) UpsertAdminDevice(ctx context.Context, deviceToken string) error {
	query := `
		INSERT INTO admin_devices (id, device_token, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET device_token = EXCLUDED.device_token, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, deviceToken)
	return err
}

// GetAdminDevice returns the registered admin push-delivery target, or
// ErrNoAdminDevice when none has been registered yet.
func (r *PostgresRepository) GetAdminDevice(ctx context.Context) (*domain.AdminDevice, error) {
	var device domain.AdminDevice
	query := `SELECT device_token, updated_at FROM admin_devices WHERE id = 1`
	err := r.db.QueryRow(ctx, query).Scan(&device.DeviceToken, &device.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoAdminDevice
		}
		return nil, err
	}
	return &device, nil
}
