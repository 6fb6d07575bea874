package service

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rewear/internal/models"
)

// createSwapHandler records a swap or points request of the current account.
func (handlers *handlers) createSwapHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, ok := currentAccount(req)
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	var swapRequest models.CreateSwapRequest
	if !readJSON(res, req, &swapRequest) {
		return
	}

	request, err := handlers.app.CreateRequest(ctx, account, swapRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, request, http.StatusCreated)
}

// swapsHandler returns the incoming and outgoing requests of the current account.
func (handlers *handlers) swapsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, ok := currentAccount(req)
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	history, err := handlers.app.History(ctx, account)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, history, http.StatusOK)
}

type transitionFunc func(ctx context.Context, actor *models.Account, requestID string) (*models.SwapRequest, error)

// transitionHandler applies a ledger transition to the request named in the URL.
func (handlers *handlers) transitionHandler(res http.ResponseWriter, req *http.Request, transition transitionFunc) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, ok := currentAccount(req)
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	request, err := transition(ctx, account, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, request, http.StatusOK)
}

func (handlers *handlers) acceptSwapHandler(res http.ResponseWriter, req *http.Request) {
	handlers.transitionHandler(res, req, handlers.app.Accept)
}

func (handlers *handlers) completeSwapHandler(res http.ResponseWriter, req *http.Request) {
	handlers.transitionHandler(res, req, handlers.app.Complete)
}

func (handlers *handlers) rejectSwapHandler(res http.ResponseWriter, req *http.Request) {
	handlers.transitionHandler(res, req, handlers.app.Reject)
}
