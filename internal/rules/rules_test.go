package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rewear/internal/models"
)

func TestPredicates(t *testing.T) {
	owner := &models.Account{ID: "owner", Email: "owner@x.com", Points: 10}
	other := &models.Account{ID: "other", Email: models.AdminEmail, Points: 75}
	listing := &models.Listing{ID: "l1", OwnerID: "owner", PointValue: 75, Status: models.ListingAvailable}

	assert.True(t, IsOwner(owner, listing))
	assert.False(t, IsOwner(other, listing))
	assert.True(t, CanAfford(other, listing), "equal balance is enough")
	assert.False(t, CanAfford(owner, listing))
	assert.True(t, IsAvailable(listing))
	assert.False(t, IsAvailable(&models.Listing{Status: models.ListingPending}))
	assert.True(t, IsAdmin(other))
	assert.False(t, IsAdmin(owner))
	assert.False(t, IsAdmin(&models.Account{Email: "Admin@rewear.com"}))
	assert.False(t, IsAdmin(nil))
}

func TestCanTransitionListing(t *testing.T) {
	testCases := []struct {
		from, to models.ListingStatus
		want     bool
	}{
		{models.ListingAvailable, models.ListingPending, true},
		{models.ListingPending, models.ListingAvailable, true},
		{models.ListingPending, models.ListingSwapped, true},
		{models.ListingAvailable, models.ListingSwapped, false},
		{models.ListingSwapped, models.ListingAvailable, false},
		{models.ListingSwapped, models.ListingPending, false},
		{models.ListingSwapped, models.ListingSwapped, true},
		{models.ListingAvailable, "archived", false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransitionListing(tc.from, tc.to))
		})
	}
}

func TestCanTransitionRequest(t *testing.T) {
	legal := map[[2]models.RequestStatus]bool{
		{models.RequestPending, models.RequestAccepted}:   true,
		{models.RequestPending, models.RequestRejected}:   true,
		{models.RequestAccepted, models.RequestCompleted}: true,
		{models.RequestAccepted, models.RequestRejected}:  true,
	}
	all := []models.RequestStatus{models.RequestPending, models.RequestAccepted, models.RequestRejected, models.RequestCompleted}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]models.RequestStatus{from, to}], CanTransitionRequest(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckRequest(t *testing.T) {
	requester := &models.Account{ID: "req", Points: 40}
	target := &models.Listing{ID: "t", OwnerID: "own", PointValue: 75, Status: models.ListingAvailable}
	mine := &models.Listing{ID: "m", OwnerID: "req", Status: models.ListingAvailable}

	testCases := []struct {
		name      string
		requester *models.Account
		target    *models.Listing
		kind      models.RequestKind
		offered   *models.Listing
		want      Reason
	}{
		{name: "self target", requester: requester, target: mine, kind: models.KindPoints, want: ReasonSelfTarget},
		{name: "unavailable", requester: requester, target: &models.Listing{OwnerID: "own", Status: models.ListingPending}, kind: models.KindPoints, want: ReasonListingUnavailable},
		{name: "insufficient points", requester: requester, target: target, kind: models.KindPoints, want: ReasonInsufficientPoints},
		{name: "enough points", requester: &models.Account{ID: "req", Points: 75}, target: target, kind: models.KindPoints, want: ReasonNone},
		{name: "swap without offer", requester: requester, target: target, kind: models.KindSwap, want: ReasonMissingOfferedItem},
		{name: "swap with foreign offer", requester: requester, target: target, kind: models.KindSwap, offered: &models.Listing{ID: "f", OwnerID: "own", Status: models.ListingAvailable}, want: ReasonInvalidOfferedItem},
		{name: "swap with reserved offer", requester: requester, target: target, kind: models.KindSwap, offered: &models.Listing{ID: "m", OwnerID: "req", Status: models.ListingPending}, want: ReasonInvalidOfferedItem},
		{name: "swap ignores balance", requester: requester, target: target, kind: models.KindSwap, offered: mine, want: ReasonNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckRequest(tc.requester, tc.target, tc.kind, tc.offered))
		})
	}
}
