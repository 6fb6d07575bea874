package storage

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"

	"rewear/internal/models"
	"rewear/internal/pkg/logger"
)

var testDatabaseURI string

func init() {
	if err := godotenv.Load(".env.test"); err != nil {
		log.Println("No .env.test file found, using environment")
	}
	testDatabaseURI = os.Getenv("TEST_DATABASE_URI")
}

type PostgreSQLTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *PostgreSQL
}

func TestPostgreSQLTestSuite(t *testing.T) {
	if testDatabaseURI == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}
	suite.Run(t, new(PostgreSQLTestSuite))
}

func (s *PostgreSQLTestSuite) SetupSuite() {
	l, err := logger.CreateLogger("error")
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db, err = NewPostgreSQL(testDatabaseURI, l)
	s.Require().NoError(err, "Error connecting to test database")
}

func (s *PostgreSQLTestSuite) TearDownSuite() {
	s.db.Close()
}

func (s *PostgreSQLTestSuite) account(points int) *models.Account {
	id := uuid.NewString()
	account := &models.Account{ID: id, Name: "user", Email: id + "@example.com", PasswordHash: "hash", Points: points, JoinedAt: time.Now().UTC()}
	s.Require().NoError(s.db.CreateAccount(s.ctx, account))
	return account
}

func (s *PostgreSQLTestSuite) listing(owner *models.Account, points int) *models.Listing {
	listing := &models.Listing{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		Owner:      models.Owner{Name: owner.Name},
		Title:      "Denim Jacket",
		Category:   "Outerwear",
		Condition:  models.ConditionGood,
		Images:     []string{"https://img.example.com/jacket.jpg"},
		Tags:       []string{"denim"},
		PointValue: points,
		Status:     models.ListingAvailable,
		UploadedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.db.CreateListing(s.ctx, listing))
	return listing
}

func (s *PostgreSQLTestSuite) request(requester *models.Account, listing *models.Listing) *models.SwapRequest {
	now := time.Now().UTC()
	return &models.SwapRequest{
		ID:          uuid.NewString(),
		RequesterID: requester.ID,
		TargetID:    listing.OwnerID,
		ListingID:   listing.ID,
		Kind:        models.KindPoints,
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *PostgreSQLTestSuite) TestAccounts() {
	account := s.account(50)

	duplicate := *account
	duplicate.ID = uuid.NewString()
	s.ErrorIs(s.db.CreateAccount(s.ctx, &duplicate), ErrAlreadyExists)

	found, err := s.db.GetAccountByEmail(s.ctx, account.Email)
	s.Require().NoError(err)
	s.Equal(account.ID, found.ID)
	s.Equal(50, found.Points)

	_, err = s.db.GetAccount(s.ctx, uuid.NewString())
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgreSQLTestSuite) TestSessions() {
	account := s.account(0)
	now := time.Now().UTC()
	expired := &models.Session{ID: uuid.NewString(), AccountID: account.ID, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	live := &models.Session{ID: uuid.NewString(), AccountID: account.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	s.Require().NoError(s.db.CreateSession(s.ctx, expired))
	s.Require().NoError(s.db.CreateSession(s.ctx, live))

	removed, err := s.db.DeleteExpiredSessions(s.ctx, now)
	s.Require().NoError(err)
	s.GreaterOrEqual(removed, int64(1))

	_, err = s.db.GetSession(s.ctx, expired.ID)
	s.ErrorIs(err, ErrNotFound)
	_, err = s.db.GetSession(s.ctx, live.ID)
	s.NoError(err)

	s.Require().NoError(s.db.DeleteSession(s.ctx, live.ID))
	_, err = s.db.GetSession(s.ctx, live.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgreSQLTestSuite) TestListings() {
	owner := s.account(0)
	listing := s.listing(owner, 75)

	found, err := s.db.GetListing(s.ctx, listing.ID)
	s.Require().NoError(err)
	s.Equal(listing.Images, found.Images)
	s.Equal(listing.Tags, found.Tags)
	s.Equal(owner.Name, found.Owner.Name)

	err = s.db.ChangeListingStatus(s.ctx, ListingChange{ListingID: listing.ID, From: models.ListingAvailable, To: models.ListingPending})
	s.Require().NoError(err)
	err = s.db.ChangeListingStatus(s.ctx, ListingChange{ListingID: uuid.NewString(), From: models.ListingAvailable, To: models.ListingPending})
	s.ErrorIs(err, ErrNotFound)

	err = s.db.ChangeListingStatus(s.ctx, ListingChange{ListingID: listing.ID, From: models.ListingAvailable, To: models.ListingSwapped})
	s.ErrorIs(err, ErrConflict)
	err = s.db.ChangeListingStatus(s.ctx, ListingChange{ListingID: listing.ID, From: models.ListingPending, To: models.ListingAvailable})
	s.NoError(err)
}

func (s *PostgreSQLTestSuite) TestConcurrentReservation() {
	owner := s.account(0)
	listing := s.listing(owner, 10)

	const contenders = 8
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		requester := s.account(100)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.db.CreateSwapRequest(s.ctx, s.request(requester, listing))
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrConflict)
	}
	s.Equal(1, succeeded)
}

func (s *PostgreSQLTestSuite) TestOfferedListingReservation() {
	owner := s.account(0)
	requester := s.account(0)
	target := s.listing(owner, 75)
	second := s.listing(owner, 50)
	offered := s.listing(requester, 60)

	swap := s.request(requester, target)
	swap.Kind = models.KindSwap
	swap.OfferedListingID = offered.ID
	s.Require().NoError(s.db.CreateSwapRequest(s.ctx, swap))

	found, err := s.db.GetListing(s.ctx, offered.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingPending, found.Status)

	again := s.request(requester, second)
	again.Kind = models.KindSwap
	again.OfferedListingID = offered.ID
	s.ErrorIs(s.db.CreateSwapRequest(s.ctx, again), ErrOfferedUnavailable)

	found, err = s.db.GetListing(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingAvailable, found.Status, "the failed reservation rolls back")
	_, err = s.db.GetSwapRequest(s.ctx, again.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgreSQLTestSuite) TestApplyTransition() {
	owner := s.account(0)
	requester := s.account(100)
	listing := s.listing(owner, 75)
	request := s.request(requester, listing)
	s.Require().NoError(s.db.CreateSwapRequest(s.ctx, request))

	accept := Transition{RequestID: request.ID, From: models.RequestPending, To: models.RequestAccepted, At: time.Now().UTC()}
	s.Require().NoError(s.db.ApplyTransition(s.ctx, accept))
	s.ErrorIs(s.db.ApplyTransition(s.ctx, accept), ErrConflict)

	complete := Transition{
		RequestID:  request.ID,
		From:       models.RequestAccepted,
		To:         models.RequestCompleted,
		At:         time.Now().UTC(),
		Listings:   []ListingChange{{ListingID: listing.ID, From: models.ListingPending, To: models.ListingSwapped}},
		Settlement: &Settlement{DebitAccountID: requester.ID, CreditAccountID: owner.ID, Amount: 175},
	}
	s.ErrorIs(s.db.ApplyTransition(s.ctx, complete), ErrInsufficientPoints)

	stored, err := s.db.GetSwapRequest(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestAccepted, stored.Status, "a failed settlement rolls the status back")
	found, err := s.db.GetListing(s.ctx, listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingPending, found.Status)

	complete.Settlement.Amount = 75
	s.Require().NoError(s.db.ApplyTransition(s.ctx, complete))

	debited, err := s.db.GetAccount(s.ctx, requester.ID)
	s.Require().NoError(err)
	s.Equal(25, debited.Points)
	credited, err := s.db.GetAccount(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(75, credited.Points)

	s.ErrorIs(s.db.ApplyTransition(s.ctx, Transition{RequestID: uuid.NewString(), From: models.RequestPending, To: models.RequestRejected}), ErrNotFound)
}
