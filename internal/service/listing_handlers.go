package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rewear/internal/catalog"
	"rewear/internal/models"
)

// browseHandler runs a catalog query built from the URL parameters.
func (handlers *handlers) browseHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	params := req.URL.Query()
	query := catalog.Query{
		Filter: catalog.Filter{
			Search:    params.Get("search"),
			Category:  params.Get("category"),
			Condition: models.Condition(params.Get("condition")),
			Status:    models.ListingStatus(params.Get("status")),
			OwnerID:   params.Get("owner"),
		},
		Sort: catalog.SortKey(params.Get("sort")),
	}

	var err error
	if query.Page, err = intParam(params.Get("page")); err != nil {
		writeErrorResponse(res, "invalid page", http.StatusBadRequest)
		return
	}
	if query.Limit, err = intParam(params.Get("limit")); err != nil {
		writeErrorResponse(res, "invalid limit", http.StatusBadRequest)
		return
	}

	page, err := handlers.app.Browse(ctx, query)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, page, http.StatusOK)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// listingHandler returns one listing together with related listings.
func (handlers *handlers) listingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	detail, err := handlers.app.ListingDetail(ctx, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, detail, http.StatusOK)
}

// createListingHandler publishes a listing owned by the current account.
func (handlers *handlers) createListingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, ok := currentAccount(req)
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	var draft models.ListingDraft
	if !readJSON(res, req, &draft) {
		return
	}

	listing, err := handlers.app.CreateListing(ctx, account, draft)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, listing, http.StatusCreated)
}
