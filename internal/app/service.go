/**
 * @description
 * This file contains the core business logic for the topup-service: the transfer
 * request lifecycle engine. The `Service` struct owns account registration, PIN
 * authentication, transfer request submission, the admin pending-list query, and
 * the admin validation transition.
 *
 * Key features:
 * - Registration hashes the PIN with bcrypt; the raw PIN is never persisted.
 * - Submission validates and normalizes inputs, persists the request as pending,
 *   and hands it to the admin notifier as a fire-and-forget side effect.
 * - Validation is idempotent: re-validating a validated request succeeds, while a
 *   failed request is rejected with a conflict.
 *
 * @dependencies
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otransous/topup-service/internal/domain"
	"github.com/otransous/topup-service/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// PINThrottledError is returned when PIN verification attempts for a subject
// exceed the configured rate limit.
type PINThrottledError struct {
	RetryAfterSeconds int
}

func (e *PINThrottledError) Error() string {
	return fmt.Sprintf("too many PIN attempts, retry in %ds", e.RetryAfterSeconds)
}

// AdminNotifier receives lifecycle events for best-effort delivery to the
// administrator. Implementations must never fail the calling operation.
type AdminNotifier interface {
	RequestSubmitted(event domain.RequestSubmittedEvent)
}

// RateLimiter counts PIN verification attempts per subject within a window.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service implements the transfer request lifecycle engine.
type Service struct {
	repo     store.Repository
	notifier AdminNotifier

	pinLimiter       RateLimiter
	pinAttemptLimit  int
	pinAttemptWindow time.Duration
}

// NewService creates a new lifecycle engine instance.
func NewService(repo store.Repository, notifier AdminNotifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// SetPINRateLimiter enables distributed throttling of PIN verification attempts.
// Without a limiter, login and unlock are unthrottled.
func (s *Service) SetPINRateLimiter(limiter RateLimiter, attemptLimit int, window time.Duration) {
	s.pinLimiter = limiter
	s.pinAttemptLimit = attemptLimit
	s.pinAttemptWindow = window
}

// Register creates a new account from the registration payload. The PIN must be
// exactly four digits and match its confirmation. Phone number uniqueness is
// enforced by the store's unique constraint, not a pre-check.
func (s *Service) Register(ctx context.Context, payload domain.RegisterPayload) (*domain.Account, error) {
	fullName := strings.TrimSpace(payload.FullName)
	phoneNumber := strings.TrimSpace(payload.PhoneNumber)

	if fullName == "" || phoneNumber == "" || payload.PIN == "" || payload.PINConfirmation == "" {
		return nil, domain.ValidationError("full name, phone number, PIN and PIN confirmation are all required")
	}
	if !pinPattern.MatchString(payload.PIN) {
		return nil, domain.ValidationError("the PIN must be exactly 4 digits")
	}
	if payload.PIN != payload.PINConfirmation {
		return nil, domain.ValidationError("the two PINs do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	account := &domain.Account{
		ID:          uuid.New(),
		FullName:    fullName,
		PhoneNumber: phoneNumber,
		PINHash:     string(hash),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrPhoneNumberTaken) {
			return nil, domain.ConflictError("this phone number is already registered")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	log.Printf("level=info component=service op=register msg=\"account created\" account_id=%s", account.ID)
	return account, nil
}

// Login authenticates an account by phone number and PIN.
func (s *Service) Login(ctx context.Context, phoneNumber, pin string) (*domain.LoginResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" || pin == "" {
		return nil, domain.ValidationError("phone number and PIN are required")
	}
	if err := s.consumePINAttempt(ctx, "login", phoneNumber); err != nil {
		return nil, err
	}

	account, err := s.repo.FindAccountByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NotFoundError("no account found for this phone number")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if !verifyPIN(pin, account.PINHash) {
		return nil, domain.AuthError("incorrect PIN")
	}

	return &domain.LoginResult{AccountID: account.ID, FullName: account.FullName}, nil
}

// Unlock re-verifies the PIN for an already-identified session, keyed by account
// id instead of phone number.
func (s *Service) Unlock(ctx context.Context, accountID uuid.UUID, pin string) error {
	if pin == "" {
		return domain.ValidationError("PIN is required")
	}
	if err := s.consumePINAttempt(ctx, "unlock", accountID.String()); err != nil {
		return err
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return domain.NotFoundError("account not found")
		}
		return fmt.Errorf("find account: %w", err)
	}

	if !verifyPIN(pin, account.PINHash) {
		return domain.AuthError("incorrect PIN")
	}
	return nil
}

// SubmitTransfer validates and persists a new transfer request in the pending
// state, then notifies the administrator. Notification failure never fails the
// submission; the request row is already committed when the notifier runs.
func (s *Service) SubmitTransfer(ctx context.Context, accountID uuid.UUID, payload domain.SubmitTransferPayload) (*domain.TransferRequest, error) {
	recipientNumber := strings.TrimSpace(payload.RecipientNumber)
	network := strings.ToLower(strings.TrimSpace(payload.Network))
	payerReference := strings.TrimSpace(payload.PayerReference)
	paymentMethod := strings.ToLower(strings.TrimSpace(payload.PaymentMethod))

	if recipientNumber == "" || network == "" || payerReference == "" || paymentMethod == "" {
		return nil, domain.ValidationError("recipient number, network, payer reference and payment method are all required")
	}
	if payload.Amount <= 0 {
		return nil, domain.ValidationError("amount must be a positive integer")
	}
	if !domain.KnownNetworks[network] {
		return nil, domain.ValidationError("unknown network: " + network)
	}
	if paymentMethod != domain.PaymentMethodWave && paymentMethod != domain.PaymentMethodPoints {
		return nil, domain.ValidationError("payment method must be wave or points")
	}

	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NotFoundError("account not found")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	req := &domain.TransferRequest{
		ID:              uuid.New(),
		AccountID:       accountID,
		RecipientNumber: recipientNumber,
		Network:         network,
		Amount:          payload.Amount,
		PayerReference:  payerReference,
		PaymentMethod:   paymentMethod,
		Status:          domain.StatusPending,
	}
	if err := s.repo.CreateTransferRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create transfer request: %w", err)
	}

	log.Printf("level=info component=service op=submit msg=\"transfer request created\" request_id=%s network=%s amount=%d", req.ID, req.Network, req.Amount)

	if s.notifier != nil {
		s.notifier.RequestSubmitted(domain.RequestSubmittedEvent{
			RequestID:       req.ID,
			Network:         req.Network,
			Amount:          req.Amount,
			RecipientNumber: req.RecipientNumber,
			Timestamp:       time.Now().UTC(),
		})
	}

	return req, nil
}

// ListPending returns all pending transfer requests, newest first.
func (s *Service) ListPending(ctx context.Context) ([]domain.TransferRequest, error) {
	requests, err := s.repo.ListPendingTransferRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// Validate transitions a pending request to validated, optionally attaching a
// confirmation code. The transition is idempotent; validating a failed request
// yields a conflict.
func (s *Service) Validate(ctx context.Context, requestID uuid.UUID, confirmationCode string) (*domain.TransferRequest, error) {
	req, err := s.repo.ValidateTransferRequest(ctx, requestID, strings.TrimSpace(confirmationCode))
	if err != nil {
		if errors.Is(err, store.ErrRequestNotFound) {
			return nil, domain.NotFoundError("transfer request not found")
		}
		if errors.Is(err, store.ErrRequestFailed) {
			return nil, domain.ConflictError("transfer request has already failed and cannot be validated")
		}
		return nil, fmt.Errorf("validate transfer request: %w", err)
	}

	log.Printf("level=info component=service op=validate msg=\"transfer request validated\" request_id=%s", req.ID)
	return req, nil
}

// RegisterAdminTarget stores the push-delivery token of the admin device,
// replacing any previously registered one.
func (s *Service) RegisterAdminTarget(ctx context.Context, deviceToken string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return domain.ValidationError("device token is required")
	}
	if err := s.repo.UpsertAdminDevice(ctx, deviceToken); err != nil {
		return fmt.Errorf("store admin device: %w", err)
	}
	return nil
}

func (s *Service) consumePINAttempt(ctx context.Context, scope, subject string) error {
	if s.pinLimiter == nil || s.pinAttemptLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.pinLimiter.ConsumeRateLimit(ctx, scope, subject, s.pinAttemptLimit, s.pinAttemptWindow)
	if err != nil {
		// Limiter trouble must not lock users out.
		log.Printf("level=warn component=service msg=\"pin rate limiter unavailable\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > s.pinAttemptLimit {
		return &PINThrottledError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

// verifyPIN checks a candidate PIN against the stored bcrypt hash. bcrypt embeds
// the per-record salt and compares in constant time.
func verifyPIN(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
