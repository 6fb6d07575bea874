// Package storage provides primitives for connecting to and interacting with data storage systems.
// It defines the Storage interface along with an in-memory implementation and a PostgreSQL
// implementation that keep accounts, sessions, listings and swap requests.
// Compound mutations are atomic: either every change of an operation is applied or none is.
package storage

import (
	"context"
	"errors"
	"time"

	"rewear/internal/models"
)

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

// Errors reported by every Storage implementation.
var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrAlreadyExists indicates a uniqueness violation, such as a duplicate email.
	ErrAlreadyExists = errors.New("storage: record already exists")
	// ErrConflict indicates that a record was not in the state an atomic operation expected.
	ErrConflict = errors.New("storage: unexpected record state")
	// ErrInsufficientPoints indicates that a debit would make a balance negative.
	ErrInsufficientPoints = errors.New("storage: insufficient points")
	// ErrOfferedUnavailable indicates that the listing offered in exchange is missing or not available.
	ErrOfferedUnavailable = errors.New("storage: offered listing unavailable")
)

// ListingChange is a compare-and-swap of a listing status.
type ListingChange struct {
	ListingID string
	From      models.ListingStatus
	To        models.ListingStatus
}

// Settlement moves points from one account to another.
type Settlement struct {
	DebitAccountID  string
	CreditAccountID string
	Amount          int
}

// Transition is an atomic change of a swap request status together with the
// listing and balance changes it implies.
type Transition struct {
	RequestID  string
	From       models.RequestStatus
	To         models.RequestStatus
	At         time.Time
	Listings   []ListingChange
	Settlement *Settlement
}

var (
	_ Storage = (*Memory)(nil)
	_ Storage = (*PostgreSQL)(nil)
)

// Storage defines the methods required for data storage operations.
type Storage interface {
	// Close releases the underlying resources.
	Close()

	// Account methods.
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// Session methods.
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Listing methods.
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	ListListings(ctx context.Context) ([]models.Listing, error)
	// ChangeListingStatus moves a listing from change.From to change.To.
	// It fails with ErrConflict if the listing is not in change.From.
	ChangeListingStatus(ctx context.Context, change ListingChange) error

	// Swap request methods.
	GetSwapRequest(ctx context.Context, id string) (*models.SwapRequest, error)
	ListSwapRequests(ctx context.Context) ([]models.SwapRequest, error)
	// CreateSwapRequest stores the request and moves its target listing, and the
	// offered listing if any, from available to pending. It fails with ErrConflict
	// if the target is not available and with ErrOfferedUnavailable if the offered
	// listing is not.
	CreateSwapRequest(ctx context.Context, request *models.SwapRequest) error
	// ApplyTransition performs every change of t or none of them.
	ApplyTransition(ctx context.Context, t Transition) error
}
