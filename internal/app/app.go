// Package app provides the core business logic of the clothing exchange.
// It handles registration and sessions, listing creation and moderation, and the
// swap request lifecycle with its point settlement. Every decision is delegated to
// the pure predicates of the rules package; every mutation is a single atomic
// operation of the storage layer, so a refused operation never leaves partial changes.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rewear/internal/config"
	"rewear/internal/pkg/logger"
	"rewear/internal/rules"
	"rewear/internal/storage"
)

// Predefined errors returned by App operations.
var (
	// ErrMissingFields indicates that a required request field is empty.
	ErrMissingFields = errors.New("app: missing required fields")
	// ErrAlreadyExists indicates that an account with the email is already registered.
	ErrAlreadyExists = errors.New("app: account already exists")
	// ErrInvalidCredentials indicates that the email and password do not match an account.
	ErrInvalidCredentials = errors.New("app: invalid credentials")
	// ErrUnauthorized indicates a missing, unknown or expired session.
	ErrUnauthorized = errors.New("app: unauthorized")
	// ErrNotFound indicates that the referenced listing or request does not exist.
	ErrNotFound = errors.New("app: not found")
	// ErrForbidden indicates that the acting account may not perform the operation.
	ErrForbidden = errors.New("app: forbidden")
	// ErrInvalidTransition indicates that the current status does not allow the operation.
	ErrInvalidTransition = errors.New("app: invalid status transition")
	// ErrInvalidListing indicates a listing draft that breaks a listing invariant.
	ErrInvalidListing = errors.New("app: invalid listing")
	// ErrInvalidStatus indicates an unknown listing status.
	ErrInvalidStatus = errors.New("app: invalid status")
	// ErrInvalidKind indicates an unknown swap request kind.
	ErrInvalidKind = errors.New("app: invalid request kind")
	// ErrInvalidQuery indicates an unknown sort order or filter value.
	ErrInvalidQuery = errors.New("app: invalid query")
)

// RejectedError reports why a swap request was refused.
type RejectedError struct {
	Reason rules.Reason
}

func (e *RejectedError) Error() string {
	return "app: request rejected: " + string(e.Reason)
}

func rejected(reason rules.Reason) error {
	return &RejectedError{Reason: reason}
}

// App encapsulates the application logic and dependencies required to process requests.
type App struct {
	db         storage.Storage // Storage layer for accounts, sessions, listings and requests.
	log        *logger.Logger  // Logger for application events and errors.
	sessionTTL time.Duration
	now        func() time.Time
	newID      func() string
}

// NewApp creates and returns a new instance of App with the provided storage and logger dependencies.
func NewApp(db storage.Storage, log *logger.Logger) *App {
	return &App{
		db:         db,
		log:        log,
		sessionTTL: config.SessionTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// storageError converts a storage lookup error into the app taxonomy.
func storageError(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
