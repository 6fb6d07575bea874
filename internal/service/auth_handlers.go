package service

import (
	"context"
	"net/http"

	"rewear/internal/models"
	"rewear/internal/pkg/auth"
)

// registerHandler creates an account and answers with a token for its first session.
func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var registerRequest models.RegisterRequest
	if !readJSON(res, req, &registerRequest) {
		return
	}

	authResponse, err := handlers.app.Register(ctx, registerRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, authResponse, http.StatusCreated)
}

// loginHandler verifies credentials and answers with a token for a new session.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest
	if !readJSON(res, req, &loginRequest) {
		return
	}

	authResponse, err := handlers.app.Authenticate(ctx, loginRequest)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, authResponse, http.StatusOK)
}

// logoutHandler ends the session the request was made with.
func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	sessionID, _ := auth.SessionID(req.Context())
	if err := handlers.app.SignOut(ctx, sessionID); err != nil {
		handlers.writeAppError(res, err)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}

// dashboardHandler returns the balance, listings and requests of the current account.
func (handlers *handlers) dashboardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, ok := currentAccount(req)
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	dashboard, err := handlers.app.Dashboard(ctx, account)
	if err != nil {
		handlers.writeAppError(res, err)
		return
	}

	writeJSON(res, dashboard, http.StatusOK)
}
