package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/security"
	"rewear/internal/rules"
	"rewear/internal/storage"
)

// Register creates an account with the welcome bonus and opens a session for it.
// Emails are unique by exact match.
func (app *App) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if strings.TrimSpace(req.Name) == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	if _, err := app.db.GetAccountByEmail(ctx, req.Email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		app.log.Sugar().Errorf("Failed to hash password: %s", err)
		return nil, err
	}

	account := &models.Account{
		ID:           app.newID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Points:       models.WelcomeBonus,
		JoinedAt:     app.now().UTC(),
	}
	if err := app.db.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	app.log.Sugar().Infof("Registered account %s", account.ID)

	return app.openSession(ctx, account)
}

// Authenticate verifies the credentials and opens a new session.
// An unknown email and a wrong password are indistinguishable to the caller.
func (app *App) Authenticate(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	account, err := app.db.GetAccountByEmail(ctx, req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		security.WasteComparison(req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := security.CheckPassword(account.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return app.openSession(ctx, account)
}

func (app *App) openSession(ctx context.Context, account *models.Account) (*models.AuthResponse, error) {
	now := app.now().UTC()
	session := &models.Session{
		ID:        app.newID(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(app.sessionTTL),
	}
	if err := app.db.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(session.ID, session.ExpiresAt)
	if err != nil {
		app.log.Sugar().Errorf("Failed to sign token for session %s: %s", session.ID, err)
		return nil, err
	}

	return &models.AuthResponse{Token: token, Account: account, IsAdmin: rules.IsAdmin(account)}, nil
}

// SignOut ends the session. Ending a session that is already gone is not an error.
func (app *App) SignOut(ctx context.Context, sessionID string) error {
	return app.db.DeleteSession(ctx, sessionID)
}

// IsAdmin reports whether the account holds administrator rights.
func IsAdmin(account *models.Account) bool {
	return rules.IsAdmin(account)
}

// ResolveSession returns the live session with the given id and its account.
// Unknown and expired sessions yield ErrUnauthorized; an expired session is removed.
func (app *App) ResolveSession(ctx context.Context, sessionID string) (*models.Account, *models.Session, error) {
	if sessionID == "" {
		return nil, nil, ErrUnauthorized
	}

	session, err := app.db.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}

	if session.Expired(app.now()) {
		if err := app.db.DeleteSession(ctx, session.ID); err != nil {
			app.log.Sugar().Errorf("Failed to delete expired session %s: %s", session.ID, err)
		}
		return nil, nil, ErrUnauthorized
	}

	account, err := app.db.GetAccount(ctx, session.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}

	return account, session, nil
}

// CleanExpiredSessions removes every session that has expired.
func (app *App) CleanExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := app.db.DeleteExpiredSessions(ctx, app.now())
	if err != nil {
		app.log.Sugar().Errorf("Failed to delete expired sessions: %s", err)
		return 0, err
	}
	if removed > 0 {
		app.log.Sugar().Infof("Removed %d expired sessions", removed)
	}
	return removed, nil
}

// Accounts lists every account. Only the administrator may call it.
func (app *App) Accounts(ctx context.Context, actor *models.Account) ([]models.Account, error) {
	if !rules.IsAdmin(actor) {
		return nil, fmt.Errorf("list accounts: %w", ErrForbidden)
	}
	return app.db.ListAccounts(ctx)
}
