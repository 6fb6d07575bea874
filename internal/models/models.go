// Package models defines the data structures used throughout the application.
// It includes the exchange domain entities (accounts, sessions, listings and swap
// requests) together with the request and response payloads of the HTTP API.
package models

import "time"

// AdminEmail is the address that grants administrator rights to its account.
const AdminEmail = "admin@rewear.com"

// WelcomeBonus is the points balance a freshly registered account starts with.
const WelcomeBonus = 50

// Listing point value and image count bounds.
const (
	MinPointValue = 10
	MaxPointValue = 500
	MinImages     = 1
	MaxImages     = 5
)

// Account represents a registered user of the exchange.
// The password hash never leaves the service: it is excluded from JSON output.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	Points       int       `json:"points"`
	JoinedAt     time.Time `json:"joinDate"`
	Location     string    `json:"location,omitempty"`
}

// Session binds an authenticated account to a client until sign-out or expiry.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at the given moment.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Condition describes the wear state of a listed item.
type Condition string

const (
	ConditionNew     Condition = "New"
	ConditionLikeNew Condition = "Like New"
	ConditionGood    Condition = "Good"
	ConditionFair    Condition = "Fair"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingPending   ListingStatus = "pending"
	ListingSwapped   ListingStatus = "swapped"
)

// Valid reports whether s is one of the known listing states.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingAvailable, ListingPending, ListingSwapped:
		return true
	}
	return false
}

// Owner is the display snapshot of the uploader taken when a listing is created.
// It is not refreshed when the account changes later.
type Owner struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Listing represents a clothing item offered for swap or point redemption.
type Listing struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"uploaderId"`
	Owner       Owner         `json:"uploader"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Type        string        `json:"type"`
	Size        string        `json:"size"`
	Condition   Condition     `json:"condition"`
	Images      []string      `json:"images"`
	Tags        []string      `json:"tags"`
	PointValue  int           `json:"pointValue"`
	Status      ListingStatus `json:"status"`
	UploadedAt  time.Time     `json:"uploadDate"`
	Location    string        `json:"location,omitempty"`
}

// ListingDraft carries the owner-supplied fields of a new listing.
type ListingDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Size        string    `json:"size"`
	Condition   Condition `json:"condition"`
	Images      []string  `json:"images"`
	Tags        []string  `json:"tags"`
	PointValue  int       `json:"pointValue"`
	Location    string    `json:"location,omitempty"`
}

// RequestKind tells how the requester intends to pay for the target listing.
type RequestKind string

const (
	// KindSwap offers one of the requester's own listings in exchange.
	KindSwap RequestKind = "swap"
	// KindPoints redeems the listing with the requester's points.
	KindPoints RequestKind = "points"
)

// Valid reports whether k is one of the known request kinds.
func (k RequestKind) Valid() bool {
	return k == KindSwap || k == KindPoints
}

// RequestStatus is the lifecycle state of a swap request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCompleted
}

// SwapRequest is a proposal by one account to acquire another account's listing.
type SwapRequest struct {
	ID               string        `json:"id"`
	RequesterID      string        `json:"fromUserId"`
	TargetID         string        `json:"toUserId"`
	ListingID        string        `json:"toItemId"`
	OfferedListingID string        `json:"fromItemId,omitempty"`
	Kind             RequestKind   `json:"type"`
	Status           RequestStatus `json:"status"`
	Message          string        `json:"message,omitempty"`
	CreatedAt        time.Time     `json:"createdDate"`
	UpdatedAt        time.Time     `json:"updatedDate"`
}

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the authentication request payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful registration or login.
// It carries the signed session token and the authenticated account.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
	IsAdmin bool     `json:"isAdmin"`
}

// ErrorResponse represents a generic error response payload.
type ErrorResponse struct {
	Errors string `json:"errors"`
}

// CreateSwapRequest represents the payload of a new swap or redemption request.
type CreateSwapRequest struct {
	ListingID        string      `json:"toItemId"`
	OfferedListingID string      `json:"fromItemId,omitempty"`
	Kind             RequestKind `json:"type"`
	Message          string      `json:"message,omitempty"`
}

// SetStatusRequest represents the payload of an administrative status overwrite.
type SetStatusRequest struct {
	Status ListingStatus `json:"status"`
}

// ListingDetail is a single listing together with related listings of its category.
type ListingDetail struct {
	Listing *Listing  `json:"item"`
	Related []Listing `json:"related"`
}

// SwapHistory splits a user's requests into the ones received and the ones sent.
type SwapHistory struct {
	Incoming []SwapRequest `json:"incoming"`
	Outgoing []SwapRequest `json:"outgoing"`
}

// Dashboard represents the response payload for the /api/me endpoint.
type Dashboard struct {
	Account         *Account     `json:"account"`
	IsAdmin         bool         `json:"isAdmin"`
	Listings        []Listing    `json:"listings"`
	Swaps           *SwapHistory `json:"swaps"`
	ActiveListings  int          `json:"activeListings"`
	CompletedSwaps  int          `json:"completedSwaps"`
	PendingRequests int          `json:"pendingRequests"`
}

// Stats holds the administrative overview counters.
type Stats struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveListings  int `json:"activeListings"`
	PendingListings int `json:"pendingListings"`
	SwappedListings int `json:"swappedListings"`
	OpenRequests    int `json:"openRequests"`
}
