// Package rules holds the pure eligibility predicates and transition tables that
// gate every mutation of listings and swap requests. Nothing here touches storage.
package rules

import "rewear/internal/models"

// Reason names why a swap request cannot be created.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonSelfTarget         Reason = "self_target"
	ReasonListingUnavailable Reason = "listing_unavailable"
	ReasonInsufficientPoints Reason = "insufficient_points"
	ReasonMissingOfferedItem Reason = "missing_offered_item"
	ReasonInvalidOfferedItem Reason = "invalid_offered_item"
)

// CanAfford reports whether the account holds enough points to redeem the listing.
func CanAfford(account *models.Account, listing *models.Listing) bool {
	return account.Points >= listing.PointValue
}

// IsOwner reports whether the account uploaded the listing.
func IsOwner(account *models.Account, listing *models.Listing) bool {
	return account.ID == listing.OwnerID
}

// IsAvailable reports whether the listing may be targeted by a new request.
func IsAvailable(listing *models.Listing) bool {
	return listing.Status == models.ListingAvailable
}

// IsAdmin reports whether the account is the administrator.
func IsAdmin(account *models.Account) bool {
	return account != nil && account.Email == models.AdminEmail
}

var listingEdges = map[models.ListingStatus][]models.ListingStatus{
	models.ListingAvailable: {models.ListingPending},
	models.ListingPending:   {models.ListingAvailable, models.ListingSwapped},
}

// CanTransitionListing reports whether a listing may move from one status to another.
// Staying in the same status is always allowed; swapped is terminal.
func CanTransitionListing(from, to models.ListingStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range listingEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

var requestEdges = map[models.RequestStatus][]models.RequestStatus{
	models.RequestPending:  {models.RequestAccepted, models.RequestRejected},
	models.RequestAccepted: {models.RequestCompleted, models.RequestRejected},
}

// CanTransitionRequest reports whether a swap request may move from one status to another.
func CanTransitionRequest(from, to models.RequestStatus) bool {
	for _, next := range requestEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckRequest returns the first reason a request by requester against target
// must be refused, or ReasonNone. offered is nil when no listing was offered.
func CheckRequest(requester *models.Account, target *models.Listing, kind models.RequestKind, offered *models.Listing) Reason {
	if IsOwner(requester, target) {
		return ReasonSelfTarget
	}
	if !IsAvailable(target) {
		return ReasonListingUnavailable
	}

	switch kind {
	case models.KindPoints:
		if !CanAfford(requester, target) {
			return ReasonInsufficientPoints
		}
	case models.KindSwap:
		if offered == nil {
			return ReasonMissingOfferedItem
		}
		if offered.ID == target.ID || !IsOwner(requester, offered) || !IsAvailable(offered) {
			return ReasonInvalidOfferedItem
		}
	}

	return ReasonNone
}
