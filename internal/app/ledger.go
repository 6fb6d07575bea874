package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rewear/internal/catalog"
	"rewear/internal/models"
	"rewear/internal/rules"
	"rewear/internal/storage"
)

// CreateRequest records a swap or points request of requester for the target listing
// and reserves the listing, together with the offered listing of a swap.
// A refusal is reported as *RejectedError and stores nothing.
func (app *App) CreateRequest(ctx context.Context, requester *models.Account, req models.CreateSwapRequest) (*models.SwapRequest, error) {
	if req.ListingID == "" {
		return nil, ErrMissingFields
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	// Balances change behind the caller's back, so eligibility uses a fresh copy.
	current, err := app.db.GetAccount(ctx, requester.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	target, err := app.db.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, storageError(err, "listing "+req.ListingID)
	}

	var offered *models.Listing
	offeredID := ""
	if req.Kind == models.KindSwap && req.OfferedListingID != "" {
		offeredID = req.OfferedListingID
		offered, err = app.db.GetListing(ctx, offeredID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, rejected(rules.ReasonInvalidOfferedItem)
		}
		if err != nil {
			return nil, err
		}
	}

	if reason := rules.CheckRequest(current, target, req.Kind, offered); reason != rules.ReasonNone {
		return nil, rejected(reason)
	}

	now := app.now().UTC()
	request := &models.SwapRequest{
		ID:               app.newID(),
		RequesterID:      current.ID,
		TargetID:         target.OwnerID,
		ListingID:        target.ID,
		OfferedListingID: offeredID,
		Kind:             req.Kind,
		Status:           models.RequestPending,
		Message:          strings.TrimSpace(req.Message),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = app.db.CreateSwapRequest(ctx, request)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return nil, rejected(rules.ReasonListingUnavailable)
	case errors.Is(err, storage.ErrOfferedUnavailable):
		return nil, rejected(rules.ReasonInvalidOfferedItem)
	case err != nil:
		return nil, storageError(err, "listing "+target.ID)
	}

	app.log.Sugar().Infof("Account %s requested listing %s (%s) as %s", current.ID, target.ID, request.Kind, request.ID)
	return request, nil
}

// Accept moves a pending request to accepted. Only the owner of the target listing may accept.
func (app *App) Accept(ctx context.Context, actor *models.Account, requestID string) (*models.SwapRequest, error) {
	request, err := app.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.ID != request.TargetID {
		return nil, fmt.Errorf("accept request %s: %w", requestID, ErrForbidden)
	}

	return app.apply(ctx, request, models.RequestAccepted, nil, nil)
}

// Complete finishes an accepted request. Points requests move the listing value from the
// requester to the owner; swap requests mark the reserved offered listing swapped as well.
func (app *App) Complete(ctx context.Context, actor *models.Account, requestID string) (*models.SwapRequest, error) {
	request, err := app.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isParty(actor, request) {
		return nil, fmt.Errorf("complete request %s: %w", requestID, ErrForbidden)
	}
	if !rules.CanTransitionRequest(request.Status, models.RequestCompleted) {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, request.Status, ErrInvalidTransition)
	}

	changes := []storage.ListingChange{
		{ListingID: request.ListingID, From: models.ListingPending, To: models.ListingSwapped},
	}
	var settlement *storage.Settlement

	switch request.Kind {
	case models.KindSwap:
		if request.OfferedListingID != "" {
			changes = append(changes, storage.ListingChange{
				ListingID: request.OfferedListingID, From: models.ListingPending, To: models.ListingSwapped,
			})
		}
	case models.KindPoints:
		listing, err := app.db.GetListing(ctx, request.ListingID)
		if err != nil {
			return nil, storageError(err, "listing "+request.ListingID)
		}
		settlement = &storage.Settlement{
			DebitAccountID:  request.RequesterID,
			CreditAccountID: request.TargetID,
			Amount:          listing.PointValue,
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, request.Kind)
	}

	return app.apply(ctx, request, models.RequestCompleted, changes, settlement)
}

// Reject closes a pending or accepted request and makes the listings it reserved available again.
// The owner rejects, the requester withdraws, and the administrator may do either.
func (app *App) Reject(ctx context.Context, actor *models.Account, requestID string) (*models.SwapRequest, error) {
	request, err := app.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isParty(actor, request) {
		return nil, fmt.Errorf("reject request %s: %w", requestID, ErrForbidden)
	}

	changes := []storage.ListingChange{
		{ListingID: request.ListingID, From: models.ListingPending, To: models.ListingAvailable},
	}
	if request.OfferedListingID != "" {
		changes = append(changes, storage.ListingChange{
			ListingID: request.OfferedListingID, From: models.ListingPending, To: models.ListingAvailable,
		})
	}
	return app.apply(ctx, request, models.RequestRejected, changes, nil)
}

func isParty(actor *models.Account, request *models.SwapRequest) bool {
	return actor.ID == request.TargetID || actor.ID == request.RequesterID || rules.IsAdmin(actor)
}

func (app *App) loadRequest(ctx context.Context, requestID string) (*models.SwapRequest, error) {
	request, err := app.db.GetSwapRequest(ctx, requestID)
	if err != nil {
		return nil, storageError(err, "request "+requestID)
	}
	return request, nil
}

// apply performs the transition of request to status with its side effects as one storage operation.
func (app *App) apply(ctx context.Context, request *models.SwapRequest, status models.RequestStatus,
	changes []storage.ListingChange, settlement *storage.Settlement) (*models.SwapRequest, error) {
	if !rules.CanTransitionRequest(request.Status, status) {
		return nil, fmt.Errorf("request %s is %s: %w", request.ID, request.Status, ErrInvalidTransition)
	}

	now := app.now().UTC()
	err := app.db.ApplyTransition(ctx, storage.Transition{
		RequestID:  request.ID,
		From:       request.Status,
		To:         status,
		At:         now,
		Listings:   changes,
		Settlement: settlement,
	})
	switch {
	case errors.Is(err, storage.ErrInsufficientPoints):
		return nil, rejected(rules.ReasonInsufficientPoints)
	case errors.Is(err, storage.ErrConflict):
		return nil, fmt.Errorf("request %s: %s: %w", request.ID, err, ErrInvalidTransition)
	case err != nil:
		return nil, storageError(err, "request "+request.ID)
	}

	app.log.Sugar().Infof("Request %s moved from %s to %s", request.ID, request.Status, status)
	request.Status = status
	request.UpdatedAt = now
	return request, nil
}

// Requests returns every swap request, most recent first.
func (app *App) Requests(ctx context.Context) ([]models.SwapRequest, error) {
	return app.db.ListSwapRequests(ctx)
}

// History splits the requests involving account into incoming and outgoing ones.
func (app *App) History(ctx context.Context, account *models.Account) (*models.SwapHistory, error) {
	requests, err := app.db.ListSwapRequests(ctx)
	if err != nil {
		return nil, err
	}
	return splitRequests(requests, account.ID), nil
}

// Incoming returns the requests targeting listings of account.
func (app *App) Incoming(ctx context.Context, account *models.Account) ([]models.SwapRequest, error) {
	history, err := app.History(ctx, account)
	if err != nil {
		return nil, err
	}
	return history.Incoming, nil
}

// Outgoing returns the requests made by account.
func (app *App) Outgoing(ctx context.Context, account *models.Account) ([]models.SwapRequest, error) {
	history, err := app.History(ctx, account)
	if err != nil {
		return nil, err
	}
	return history.Outgoing, nil
}

func splitRequests(requests []models.SwapRequest, accountID string) *models.SwapHistory {
	history := &models.SwapHistory{
		Incoming: make([]models.SwapRequest, 0),
		Outgoing: make([]models.SwapRequest, 0),
	}
	for _, request := range requests {
		if request.TargetID == accountID {
			history.Incoming = append(history.Incoming, request)
		}
		if request.RequesterID == accountID {
			history.Outgoing = append(history.Outgoing, request)
		}
	}
	return history
}

// Dashboard gathers the balance, listings and requests of account.
func (app *App) Dashboard(ctx context.Context, account *models.Account) (*models.Dashboard, error) {
	all, err := app.db.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	history, err := app.History(ctx, account)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard{
		Account:  account,
		IsAdmin:  rules.IsAdmin(account),
		Listings: catalog.Select(all, catalog.Filter{OwnerID: account.ID}, catalog.SortNewest),
		Swaps:    history,
	}
	for _, listing := range dashboard.Listings {
		if listing.Status == models.ListingAvailable {
			dashboard.ActiveListings++
		}
	}
	for _, request := range history.Incoming {
		switch request.Status {
		case models.RequestPending:
			dashboard.PendingRequests++
		case models.RequestCompleted:
			dashboard.CompletedSwaps++
		}
	}
	for _, request := range history.Outgoing {
		if request.Status == models.RequestCompleted {
			dashboard.CompletedSwaps++
		}
	}
	return dashboard, nil
}
