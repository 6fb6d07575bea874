package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"rewear/internal/models"
	"rewear/internal/pkg/logger"
)

const schemaQuery = `
CREATE SCHEMA IF NOT EXISTS content;

CREATE TABLE IF NOT EXISTS content.accounts (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar        TEXT NOT NULL DEFAULT '',
	points        INTEGER NOT NULL CONSTRAINT accounts_points_check CHECK (points >= 0),
	location      TEXT NOT NULL DEFAULT '',
	joined_at     TIMESTAMPTZ NOT NULL,
	seq           BIGSERIAL
);

CREATE TABLE IF NOT EXISTS content.sessions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES content.accounts(id),
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS content.listings (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES content.accounts(id),
	owner_name   TEXT NOT NULL,
	owner_avatar TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	item_type    TEXT NOT NULL DEFAULT '',
	size         TEXT NOT NULL DEFAULT '',
	condition    TEXT NOT NULL,
	images       TEXT NOT NULL,
	tags         TEXT NOT NULL,
	point_value  INTEGER NOT NULL,
	status       TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	uploaded_at  TIMESTAMPTZ NOT NULL,
	seq          BIGSERIAL
);

CREATE TABLE IF NOT EXISTS content.swap_requests (
	id                 TEXT PRIMARY KEY,
	requester_id       TEXT NOT NULL REFERENCES content.accounts(id),
	target_id          TEXT NOT NULL REFERENCES content.accounts(id),
	listing_id         TEXT NOT NULL REFERENCES content.listings(id),
	offered_listing_id TEXT NOT NULL DEFAULT '',
	kind               TEXT NOT NULL,
	status             TEXT NOT NULL,
	message            TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	seq                BIGSERIAL
);`

const (
	accountColumns = `id, name, email, password_hash, avatar, points, location, joined_at`
	listingColumns = `id, owner_id, owner_name, owner_avatar, title, description, category, item_type, size, condition, images, tags, point_value, status, location, uploaded_at`
	requestColumns = `id, requester_id, target_id, listing_id, offered_listing_id, kind, status, message, created_at, updated_at`

	createAccountQuery       = `INSERT INTO content.accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	getAccountQuery          = `SELECT ` + accountColumns + ` FROM content.accounts WHERE id = $1;`
	getAccountByEmailQuery   = `SELECT ` + accountColumns + ` FROM content.accounts WHERE email = $1;`
	listAccountsQuery        = `SELECT ` + accountColumns + ` FROM content.accounts ORDER BY seq;`
	updateAccountPointsQuery = `UPDATE content.accounts SET points = points + $1 WHERE id = $2;`

	createSessionQuery        = `INSERT INTO content.sessions (id, account_id, created_at, expires_at) VALUES ($1, $2, $3, $4);`
	getSessionQuery           = `SELECT id, account_id, created_at, expires_at FROM content.sessions WHERE id = $1;`
	deleteSessionQuery        = `DELETE FROM content.sessions WHERE id = $1;`
	deleteExpiredSessionQuery = `DELETE FROM content.sessions WHERE expires_at <= $1;`

	createListingQuery     = `INSERT INTO content.listings (` + listingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`
	getListingQuery        = `SELECT ` + listingColumns + ` FROM content.listings WHERE id = $1;`
	listListingsQuery      = `SELECT ` + listingColumns + ` FROM content.listings ORDER BY seq DESC;`
	swapListingStatusQuery = `UPDATE content.listings SET status = $1 WHERE id = $2 AND status = $3;`
	getListingStatusQuery  = `SELECT status FROM content.listings WHERE id = $1;`

	createRequestQuery     = `INSERT INTO content.swap_requests (` + requestColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	getRequestQuery        = `SELECT ` + requestColumns + ` FROM content.swap_requests WHERE id = $1;`
	listRequestsQuery      = `SELECT ` + requestColumns + ` FROM content.swap_requests ORDER BY seq DESC;`
	swapRequestStatusQuery = `UPDATE content.swap_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4;`
	getRequestStatusQuery  = `SELECT status FROM content.swap_requests WHERE id = $1;`
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection, pings the database and creates the schema if it is missing.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	if _, err := db.ExecContext(ctx, schemaQuery); err != nil {
		l.Sugar().Errorf("Failed to create schema: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// CreateAccount inserts a new account. A duplicate email is reported as ErrAlreadyExists.
func (postgresql *PostgreSQL) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := postgresql.db.ExecContext(ctx, createAccountQuery,
		account.ID, account.Name, account.Email, account.PasswordHash, account.Avatar, account.Points, account.Location, account.JoinedAt)
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return ErrAlreadyExists
		}
		postgresql.log.Sugar().Errorf("Failed to execute a query createAccountQuery: %s", err)
		return err
	}
	return nil
}

// GetAccount retrieves an account by id.
func (postgresql *PostgreSQL) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(postgresql.db.QueryRowContext(ctx, getAccountQuery, id))
	if err != nil {
		return nil, postgresql.notFound(err, "getAccountQuery")
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by its exact email.
func (postgresql *PostgreSQL) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := scanAccount(postgresql.db.QueryRowContext(ctx, getAccountByEmailQuery, email))
	if err != nil {
		return nil, postgresql.notFound(err, "getAccountByEmailQuery")
	}
	return account, nil
}

// ListAccounts retrieves every account in registration order.
func (postgresql *PostgreSQL) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := postgresql.db.QueryContext(ctx, listAccountsQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listAccountsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan account in ListAccounts method: %s", err)
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListAccounts method: %s", err)
		return accounts, err
	}
	return accounts, nil
}

// CreateSession inserts a new session.
func (postgresql *PostgreSQL) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := postgresql.db.ExecContext(ctx, createSessionQuery, session.ID, session.AccountID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createSessionQuery: %s", err)
		return err
	}
	return nil
}

// GetSession retrieves a session by id.
func (postgresql *PostgreSQL) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	err := postgresql.db.QueryRowContext(ctx, getSessionQuery, id).Scan(&session.ID, &session.AccountID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, postgresql.notFound(err, "getSessionQuery")
	}
	return session, nil
}

// DeleteSession removes a session; removing an unknown session is not an error.
func (postgresql *PostgreSQL) DeleteSession(ctx context.Context, id string) error {
	if _, err := postgresql.db.ExecContext(ctx, deleteSessionQuery, id); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query deleteSessionQuery: %s", err)
		return err
	}
	return nil
}

// DeleteExpiredSessions removes the sessions expired at now.
func (postgresql *PostgreSQL) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := postgresql.db.ExecContext(ctx, deleteExpiredSessionQuery, now)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query deleteExpiredSessionQuery: %s", err)
		return 0, err
	}
	return result.RowsAffected()
}

// CreateListing inserts a new listing. Images and tags are stored as JSON arrays.
func (postgresql *PostgreSQL) CreateListing(ctx context.Context, listing *models.Listing) error {
	images, err := json.Marshal(listing.Images)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(listing.Tags)
	if err != nil {
		return err
	}

	_, err = postgresql.db.ExecContext(ctx, createListingQuery,
		listing.ID, listing.OwnerID, listing.Owner.Name, listing.Owner.Avatar, listing.Title, listing.Description,
		listing.Category, listing.Type, listing.Size, string(listing.Condition), string(images), string(tags),
		listing.PointValue, string(listing.Status), listing.Location, listing.UploadedAt)
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return ErrAlreadyExists
		}
		postgresql.log.Sugar().Errorf("Failed to execute a query createListingQuery: %s", err)
		return err
	}
	return nil
}

// GetListing retrieves a listing by id.
func (postgresql *PostgreSQL) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := scanListing(postgresql.db.QueryRowContext(ctx, getListingQuery, id))
	if err != nil {
		return nil, postgresql.notFound(err, "getListingQuery")
	}
	return listing, nil
}

// ListListings retrieves every listing, most recently created first.
func (postgresql *PostgreSQL) ListListings(ctx context.Context) ([]models.Listing, error) {
	rows, err := postgresql.db.QueryContext(ctx, listListingsQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listListingsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialListingCapacity = 32
	listings := make([]models.Listing, 0, initialListingCapacity)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan listing in ListListings method: %s", err)
			return nil, err
		}
		listings = append(listings, *listing)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListListings method: %s", err)
		return listings, err
	}
	return listings, nil
}

// ChangeListingStatus moves a listing between two statuses with a conditional update.
func (postgresql *PostgreSQL) ChangeListingStatus(ctx context.Context, change ListingChange) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = postgresql.swapListingStatus(ctx, tx, change); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSwapRequest retrieves a swap request by id.
func (postgresql *PostgreSQL) GetSwapRequest(ctx context.Context, id string) (*models.SwapRequest, error) {
	request, err := scanRequest(postgresql.db.QueryRowContext(ctx, getRequestQuery, id))
	if err != nil {
		return nil, postgresql.notFound(err, "getRequestQuery")
	}
	return request, nil
}

// ListSwapRequests retrieves every swap request, most recent first.
func (postgresql *PostgreSQL) ListSwapRequests(ctx context.Context) ([]models.SwapRequest, error) {
	rows, err := postgresql.db.QueryContext(ctx, listRequestsQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listRequestsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.SwapRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan swap request in ListSwapRequests method: %s", err)
			return nil, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListSwapRequests method: %s", err)
		return requests, err
	}
	return requests, nil
}

// CreateSwapRequest reserves the target and offered listings and records the request within a transaction.
func (postgresql *PostgreSQL) CreateSwapRequest(ctx context.Context, request *models.SwapRequest) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	change := ListingChange{ListingID: request.ListingID, From: models.ListingAvailable, To: models.ListingPending}
	if err = postgresql.swapListingStatus(ctx, tx, change); err != nil {
		return err
	}
	if request.OfferedListingID != "" {
		change = ListingChange{ListingID: request.OfferedListingID, From: models.ListingAvailable, To: models.ListingPending}
		if err = postgresql.swapListingStatus(ctx, tx, change); err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%s: %w", err, ErrOfferedUnavailable)
			}
			return err
		}
	}

	_, err = tx.ExecContext(ctx, createRequestQuery,
		request.ID, request.RequesterID, request.TargetID, request.ListingID, request.OfferedListingID,
		string(request.Kind), string(request.Status), request.Message, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return ErrAlreadyExists
		}
		postgresql.log.Sugar().Errorf("Failed to execute a query createRequestQuery: %s", err)
		return err
	}

	return tx.Commit()
}

// ApplyTransition performs a request transition with its listing and balance changes in one transaction.
// Every status change is a conditional update, so a concurrent change makes the whole transaction fail.
func (postgresql *PostgreSQL) ApplyTransition(ctx context.Context, t Transition) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, swapRequestStatusQuery, string(t.To), t.At, t.RequestID, string(t.From))
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query swapRequestStatusQuery: %s", err)
		return err
	}
	if err = postgresql.checkSwapped(ctx, tx, result, getRequestStatusQuery, t.RequestID); err != nil {
		return err
	}

	for _, change := range t.Listings {
		if err = postgresql.swapListingStatus(ctx, tx, change); err != nil {
			return err
		}
	}

	if s := t.Settlement; s != nil {
		if err = postgresql.updateAccountPoints(ctx, tx, s.DebitAccountID, -s.Amount); err != nil {
			return err
		}
		if err = postgresql.updateAccountPoints(ctx, tx, s.CreditAccountID, s.Amount); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (postgresql *PostgreSQL) swapListingStatus(ctx context.Context, tx *sql.Tx, change ListingChange) error {
	result, err := tx.ExecContext(ctx, swapListingStatusQuery, string(change.To), change.ListingID, string(change.From))
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query swapListingStatusQuery: %s", err)
		return err
	}
	return postgresql.checkSwapped(ctx, tx, result, getListingStatusQuery, change.ListingID)
}

// checkSwapped tells a missing record from one in an unexpected state after a conditional update.
func (postgresql *PostgreSQL) checkSwapped(ctx context.Context, tx *sql.Tx, result sql.Result, statusQuery, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected: %s", err)
		return err
	}
	if rows > 0 {
		return nil
	}

	var status string
	err = tx.QueryRowContext(ctx, statusQuery, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("record %s is %s: %w", id, status, ErrConflict)
}

func (postgresql *PostgreSQL) updateAccountPoints(ctx context.Context, tx *sql.Tx, accountID string, points int) error {
	result, err := tx.ExecContext(ctx, updateAccountPointsQuery, points, accountID)
	if err != nil {
		if isPgError(err, pgerrcode.CheckViolation) {
			return ErrInsufficientPoints
		}
		postgresql.log.Sugar().Errorf("Failed to execute a query updateAccountPointsQuery: %s", err)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in updateAccountPointsQuery: %s", err)
		return err
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

func (postgresql *PostgreSQL) notFound(err error, query string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	postgresql.log.Sugar().Errorf("Failed to execute a query %s: %s", query, err)
	return err
}

func isPgError(err error, code string) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == code
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash, &account.Avatar, &account.Points, &account.Location, &account.JoinedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var condition, status, images, tags string
	err := row.Scan(&listing.ID, &listing.OwnerID, &listing.Owner.Name, &listing.Owner.Avatar, &listing.Title, &listing.Description,
		&listing.Category, &listing.Type, &listing.Size, &condition, &images, &tags, &listing.PointValue, &status, &listing.Location, &listing.UploadedAt)
	if err != nil {
		return nil, err
	}

	listing.Condition = models.Condition(condition)
	listing.Status = models.ListingStatus(status)
	if err := json.Unmarshal([]byte(images), &listing.Images); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &listing.Tags); err != nil {
		return nil, err
	}
	return &listing, nil
}

func scanRequest(row rowScanner) (*models.SwapRequest, error) {
	var request models.SwapRequest
	var kind, status string
	err := row.Scan(&request.ID, &request.RequesterID, &request.TargetID, &request.ListingID, &request.OfferedListingID,
		&kind, &status, &request.Message, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, err
	}
	request.Kind = models.RequestKind(kind)
	request.Status = models.RequestStatus(status)
	return &request, nil
}
