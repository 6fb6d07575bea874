package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rewear/internal/models"
	"rewear/internal/pkg/logger"
)

// Memory implements the Storage interface on top of process memory.
// Records live as long as the process; a single RWMutex serializes writers.
type Memory struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account
	accountOrder []string
	emails       map[string]string

	sessions map[string]*models.Session

	listings     map[string]*models.Listing
	listingOrder []string

	requests     map[string]*models.SwapRequest
	requestOrder []string

	log *logger.Logger
}

// NewMemory creates an empty in-memory storage.
func NewMemory(l *logger.Logger) *Memory {
	return &Memory{
		accounts: make(map[string]*models.Account),
		emails:   make(map[string]string),
		sessions: make(map[string]*models.Session),
		listings: make(map[string]*models.Listing),
		requests: make(map[string]*models.SwapRequest),
		log:      l,
	}
}

// Close is a no-op for in-memory storage.
func (memory *Memory) Close() {}

// CreateAccount stores a new account. Email uniqueness is an exact, case-sensitive match.
func (memory *Memory) CreateAccount(_ context.Context, account *models.Account) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	if _, ok := memory.emails[account.Email]; ok {
		return ErrAlreadyExists
	}
	if _, ok := memory.accounts[account.ID]; ok {
		return ErrAlreadyExists
	}

	stored := *account
	memory.accounts[account.ID] = &stored
	memory.emails[account.Email] = account.ID
	memory.accountOrder = append(memory.accountOrder, account.ID)
	return nil
}

// GetAccount returns a copy of the account with the given id.
func (memory *Memory) GetAccount(_ context.Context, id string) (*models.Account, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	account, ok := memory.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *account
	return &found, nil
}

// GetAccountByEmail returns a copy of the account registered with the email.
func (memory *Memory) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	id, ok := memory.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	found := *memory.accounts[id]
	return &found, nil
}

// ListAccounts returns every account in registration order.
func (memory *Memory) ListAccounts(_ context.Context) ([]models.Account, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	accounts := make([]models.Account, 0, len(memory.accountOrder))
	for _, id := range memory.accountOrder {
		accounts = append(accounts, *memory.accounts[id])
	}
	return accounts, nil
}

// CreateSession stores a new session.
func (memory *Memory) CreateSession(_ context.Context, session *models.Session) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	if _, ok := memory.sessions[session.ID]; ok {
		return ErrAlreadyExists
	}
	stored := *session
	memory.sessions[session.ID] = &stored
	return nil
}

// GetSession returns a copy of the session with the given id.
func (memory *Memory) GetSession(_ context.Context, id string) (*models.Session, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	session, ok := memory.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *session
	return &found, nil
}

// DeleteSession removes the session. Removing an unknown session is not an error.
func (memory *Memory) DeleteSession(_ context.Context, id string) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	delete(memory.sessions, id)
	return nil
}

// DeleteExpiredSessions removes every session expired at now and reports how many were removed.
func (memory *Memory) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	var removed int64
	for id, session := range memory.sessions {
		if session.Expired(now) {
			delete(memory.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// CreateListing stores a new listing.
func (memory *Memory) CreateListing(_ context.Context, listing *models.Listing) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	if _, ok := memory.listings[listing.ID]; ok {
		return ErrAlreadyExists
	}
	memory.listings[listing.ID] = cloneListing(listing)
	memory.listingOrder = append(memory.listingOrder, listing.ID)
	return nil
}

// GetListing returns a copy of the listing with the given id.
func (memory *Memory) GetListing(_ context.Context, id string) (*models.Listing, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	listing, ok := memory.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneListing(listing), nil
}

// ListListings returns every listing, most recently created first.
func (memory *Memory) ListListings(_ context.Context) ([]models.Listing, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	listings := make([]models.Listing, 0, len(memory.listingOrder))
	for i := len(memory.listingOrder) - 1; i >= 0; i-- {
		listings = append(listings, *cloneListing(memory.listings[memory.listingOrder[i]]))
	}
	return listings, nil
}

// ChangeListingStatus moves the listing to change.To if it is still in change.From.
func (memory *Memory) ChangeListingStatus(_ context.Context, change ListingChange) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	listing, ok := memory.listings[change.ListingID]
	if !ok {
		return ErrNotFound
	}
	if listing.Status != change.From {
		return fmt.Errorf("listing %s is %s: %w", listing.ID, listing.Status, ErrConflict)
	}
	listing.Status = change.To
	return nil
}

// GetSwapRequest returns a copy of the swap request with the given id.
func (memory *Memory) GetSwapRequest(_ context.Context, id string) (*models.SwapRequest, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	request, ok := memory.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *request
	return &found, nil
}

// ListSwapRequests returns every swap request, most recent first.
func (memory *Memory) ListSwapRequests(_ context.Context) ([]models.SwapRequest, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()

	requests := make([]models.SwapRequest, 0, len(memory.requestOrder))
	for i := len(memory.requestOrder) - 1; i >= 0; i-- {
		requests = append(requests, *memory.requests[memory.requestOrder[i]])
	}
	return requests, nil
}

// CreateSwapRequest stores the request and reserves its target and offered listings.
func (memory *Memory) CreateSwapRequest(_ context.Context, request *models.SwapRequest) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	if _, ok := memory.requests[request.ID]; ok {
		return ErrAlreadyExists
	}

	listing, ok := memory.listings[request.ListingID]
	if !ok {
		return ErrNotFound
	}
	if listing.Status != models.ListingAvailable {
		memory.log.Sugar().Debugf("Listing %s is %s, cannot reserve it for request %s", listing.ID, listing.Status, request.ID)
		return ErrConflict
	}

	var offered *models.Listing
	if request.OfferedListingID != "" {
		offered, ok = memory.listings[request.OfferedListingID]
		if !ok || offered.Status != models.ListingAvailable || offered.ID == listing.ID {
			return ErrOfferedUnavailable
		}
		offered.Status = models.ListingPending
	}

	listing.Status = models.ListingPending
	stored := *request
	memory.requests[request.ID] = &stored
	memory.requestOrder = append(memory.requestOrder, request.ID)
	return nil
}

// ApplyTransition validates every precondition of t before changing anything.
func (memory *Memory) ApplyTransition(_ context.Context, t Transition) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	request, ok := memory.requests[t.RequestID]
	if !ok {
		return ErrNotFound
	}
	if request.Status != t.From {
		return fmt.Errorf("request %s is %s: %w", request.ID, request.Status, ErrConflict)
	}

	for _, change := range t.Listings {
		listing, ok := memory.listings[change.ListingID]
		if !ok {
			return fmt.Errorf("listing %s: %w", change.ListingID, ErrNotFound)
		}
		if listing.Status != change.From {
			return fmt.Errorf("listing %s is %s: %w", listing.ID, listing.Status, ErrConflict)
		}
	}

	var debit, credit *models.Account
	if s := t.Settlement; s != nil {
		if debit, ok = memory.accounts[s.DebitAccountID]; !ok {
			return fmt.Errorf("account %s: %w", s.DebitAccountID, ErrNotFound)
		}
		if credit, ok = memory.accounts[s.CreditAccountID]; !ok {
			return fmt.Errorf("account %s: %w", s.CreditAccountID, ErrNotFound)
		}
		if debit.Points < s.Amount {
			return ErrInsufficientPoints
		}
	}

	request.Status = t.To
	request.UpdatedAt = t.At
	for _, change := range t.Listings {
		memory.listings[change.ListingID].Status = change.To
	}
	if s := t.Settlement; s != nil {
		debit.Points -= s.Amount
		credit.Points += s.Amount
	}
	return nil
}

func cloneListing(listing *models.Listing) *models.Listing {
	clone := *listing
	clone.Images = append([]string(nil), listing.Images...)
	clone.Tags = append([]string(nil), listing.Tags...)
	return &clone
}
