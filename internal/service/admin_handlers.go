package service

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rewear/internal/models"
)

// statsHandler returns the administrative overview counters.
func (handlers *handlers) statsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, _ := currentAccount(req)
	stats, err := handlers.app.Stats(ctx, account)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, stats, http.StatusOK)
}

// accountsHandler lists every account.
func (handlers *handlers) accountsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, _ := currentAccount(req)
	accounts, err := handlers.app.Accounts(ctx, account)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, accounts, http.StatusOK)
}

// approveListingHandler makes a pending listing available again.
func (handlers *handlers) approveListingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, _ := currentAccount(req)
	listing, err := handlers.app.ModerateListing(ctx, account, chi.URLParam(req, "id"), models.ListingAvailable)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, listing, http.StatusOK)
}

// setListingStatusHandler overwrites the status of a listing.
func (handlers *handlers) setListingStatusHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var statusRequest models.SetStatusRequest
	if !readJSON(res, req, &statusRequest) {
		return
	}

	id := chi.URLParam(req, "id")
	if err := handlers.app.SetListingStatus(ctx, id, statusRequest.Status); err != nil {
		handlers.writeAppError(res, err)
		return
	}

	listing, err := handlers.app.Listing(ctx, id)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, listing, http.StatusOK)
}
