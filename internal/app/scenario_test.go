package app

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otransous/topup-service/internal/domain"
	"github.com/otransous/topup-service/internal/store"
)

// memoryRepo is a full in-memory Repository used to exercise complete
// user journeys without a database.
type memoryRepo struct {
	mu sync.Mutex

	accounts map[uuid.UUID]*domain.Account
	requests map[uuid.UUID]*domain.TransferRequest
	device   *domain.AdminDevice

	clock time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: make(map[uuid.UUID]*domain.Account),
		requests: make(map[uuid.UUID]*domain.TransferRequest),
		clock:    time.Now().UTC(),
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is
// deterministic even when inserts land within the same wall-clock instant.
func (m *memoryRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memoryRepo) CreateAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.PhoneNumber == account.PhoneNumber {
			return store.ErrPhoneNumberTaken
		}
	}
	account.CreatedAt = m.tick()
	m.accounts[account.ID] = account
	return nil
}

func (m *memoryRepo) FindAccountByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.PhoneNumber == phoneNumber {
			return account, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (m *memoryRepo) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (m *memoryRepo) CreateTransferRequest(ctx context.Context, req *domain.TransferRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.CreatedAt = m.tick()
	req.UpdatedAt = req.CreatedAt
	m.requests[req.ID] = req
	return nil
}

func (m *memoryRepo) FindTransferRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	return req, nil
}

func (m *memoryRepo) ListPendingTransferRequests(ctx context.Context) ([]domain.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []domain.TransferRequest
	for _, req := range m.requests {
		if req.Status == domain.StatusPending {
			pending = append(pending, *req)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

func (m *memoryRepo) ValidateTransferRequest(ctx context.Context, requestID uuid.UUID, confirmationCode string) (*domain.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	if req.Status == domain.StatusFailed {
		return nil, store.ErrRequestFailed
	}
	req.Status = domain.StatusValidated
	if confirmationCode != "" {
		code := confirmationCode
		req.ConfirmationCode = &code
	}
	req.UpdatedAt = m.tick()
	return req, nil
}

func (m *memoryRepo) UpsertAdminDevice(ctx context.Context, deviceToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.device = &domain.AdminDevice{DeviceToken: deviceToken, UpdatedAt: m.tick()}
	return nil
}

func (m *memoryRepo) GetAdminDevice(ctx context.Context) (*domain.AdminDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil, store.ErrNoAdminDevice
	}
	return m.device, nil
}

func TestScenario_RegisterLoginSubmitValidate(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	notifier := &recordingNotifierStub{}
	service := NewService(repo, notifier)

	account, err := service.Register(ctx, domain.RegisterPayload{
		FullName:        "Awa Diop",
		PhoneNumber:     "0102030405",
		PIN:             "1234",
		PINConfirmation: "1234",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	login, err := service.Login(ctx, "0102030405", "1234")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.AccountID != account.ID {
		t.Fatalf("expected login to resolve account %s, got %s", account.ID, login.AccountID)
	}

	req, err := service.SubmitTransfer(ctx, login.AccountID, domain.SubmitTransferPayload{
		RecipientNumber: "0708091011",
		Network:         "orange",
		Amount:          1000,
		PayerReference:  "0600112233",
		PaymentMethod:   "wave",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err := service.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != req.ID || pending[0].Status != domain.StatusPending {
		t.Fatalf("expected the submitted request in the pending list, got %+v", pending)
	}

	if _, err := service.Validate(ctx, req.ID, ""); err != nil {
		t.Fatalf("validate: %v", err)
	}

	pending, err = service.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending after validate: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected an empty pending list after validation, got %d entries", len(pending))
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected exactly one submitted event, got %d", len(notifier.events))
	}
}

func TestScenario_PendingListOrderingAndValidation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	service := NewService(repo, nil)

	account, err := service.Register(ctx, domain.RegisterPayload{
		FullName:        "Moussa Kone",
		PhoneNumber:     "0506070809",
		PIN:             "4321",
		PINConfirmation: "4321",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var ids []uuid.UUID
	for _, amount := range []int64{500, 1000, 2000} {
		req, err := service.SubmitTransfer(ctx, account.ID, domain.SubmitTransferPayload{
			RecipientNumber: "0708091011",
			Network:         "mtn",
			Amount:          amount,
			PayerReference:  "0600112233",
			PaymentMethod:   "points",
		})
		if err != nil {
			t.Fatalf("submit amount %d: %v", amount, err)
		}
		ids = append(ids, req.ID)
	}

	validated, err := service.Validate(ctx, ids[1], "CI123456")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.ConfirmationCode == nil || *validated.ConfirmationCode != "CI123456" {
		t.Fatalf("expected the confirmation code to be stored, got %v", validated.ConfirmationCode)
	}

	pending, err := service.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected two pending requests, got %d", len(pending))
	}
	// Newest first: the third submission before the first.
	if pending[0].ID != ids[2] || pending[1].ID != ids[0] {
		t.Fatalf("expected newest-first ordering [%s %s], got [%s %s]", ids[2], ids[0], pending[0].ID, pending[1].ID)
	}
}

func TestScenario_RevalidationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	service := NewService(repo, nil)

	account, err := service.Register(ctx, domain.RegisterPayload{
		FullName:        "Awa Diop",
		PhoneNumber:     "0102030405",
		PIN:             "1234",
		PINConfirmation: "1234",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	req, err := service.SubmitTransfer(ctx, account.ID, domain.SubmitTransferPayload{
		RecipientNumber: "0708091011",
		Network:         "moov",
		Amount:          1500,
		PayerReference:  "0600112233",
		PaymentMethod:   "wave",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := service.Validate(ctx, req.ID, "US1234")
	if err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if first.ConfirmationCode == nil || *first.ConfirmationCode != "US1234" {
		t.Fatalf("expected confirmation code US1234, got %v", first.ConfirmationCode)
	}

	// Validating again without a code succeeds and keeps the stored code.
	second, err := service.Validate(ctx, req.ID, "")
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if second.Status != domain.StatusValidated {
		t.Fatalf("expected the request to stay validated, got %q", second.Status)
	}
	if second.ConfirmationCode == nil || *second.ConfirmationCode != "US1234" {
		t.Fatalf("expected the confirmation code to be preserved, got %v", second.ConfirmationCode)
	}
}
