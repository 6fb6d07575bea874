// Package service contains HTTP handler implementations for the exchange API endpoints.
// It orchestrates request parsing, calls the underlying business logic in the app package,
// maps application errors onto status codes, and writes JSON responses.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"rewear/internal/app"
	"rewear/internal/models"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/logger"
)

const requestTimeout = 10 * time.Second

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

// contextAccount is the key under which the account of the current session is stored.
const contextAccount contextKey = "contextAccount"

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic and logger.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// sessionMiddleware resolves the session carried by the token and stores its account in the context.
// It must run after auth.CheckJWTMiddleware.
func (handlers *handlers) sessionMiddleware(h http.Handler) http.Handler {
	fn := func(res http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
		defer cancel()

		sessionID, _ := auth.SessionID(req.Context())
		account, _, err := handlers.app.ResolveSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, app.ErrUnauthorized) {
				writeErrorResponse(res, "session expired", http.StatusUnauthorized)
				return
			}
			handlers.log.Sugar().Errorf("Failed to resolve session: %s", err)
			writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
			return
		}

		h.ServeHTTP(res, req.WithContext(context.WithValue(req.Context(), contextAccount, account)))
	}
	return http.HandlerFunc(fn)
}

// adminMiddleware lets only the administrator through. It must run after sessionMiddleware.
func (handlers *handlers) adminMiddleware(h http.Handler) http.Handler {
	fn := func(res http.ResponseWriter, req *http.Request) {
		account, ok := currentAccount(req)
		if !ok {
			writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !app.IsAdmin(account) {
			writeErrorResponse(res, "admin access required", http.StatusForbidden)
			return
		}
		h.ServeHTTP(res, req)
	}
	return http.HandlerFunc(fn)
}

func currentAccount(req *http.Request) (*models.Account, bool) {
	account, ok := req.Context().Value(contextAccount).(*models.Account)
	return account, ok && account != nil
}

// readJSON decodes the request body into v and answers 400 on failure.
func readJSON(res http.ResponseWriter, req *http.Request, v any) bool {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}

	if err = json.Unmarshal(requestBody, v); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(res http.ResponseWriter, v any, statusCode int) {
	result, err := json.Marshal(v)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}

// writeAppError maps an app error onto its status code.
func (handlers *handlers) writeAppError(res http.ResponseWriter, err error) {
	var rejectedErr *app.RejectedError

	switch {
	case errors.As(err, &rejectedErr):
		writeErrorResponse(res, "request rejected: "+string(rejectedErr.Reason), http.StatusUnprocessableEntity)
	case errors.Is(err, app.ErrMissingFields):
		writeErrorResponse(res, "missing required fields", http.StatusBadRequest)
	case errors.Is(err, app.ErrInvalidListing), errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidKind), errors.Is(err, app.ErrInvalidQuery):
		writeErrorResponse(res, strings.TrimPrefix(err.Error(), "app: "), http.StatusBadRequest)
	case errors.Is(err, app.ErrInvalidCredentials):
		writeErrorResponse(res, "invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, app.ErrUnauthorized):
		writeErrorResponse(res, "session expired", http.StatusUnauthorized)
	case errors.Is(err, app.ErrForbidden):
		writeErrorResponse(res, "action not permitted", http.StatusForbidden)
	case errors.Is(err, app.ErrNotFound):
		writeErrorResponse(res, "not found", http.StatusNotFound)
	case errors.Is(err, app.ErrAlreadyExists):
		writeErrorResponse(res, "account with provided email already exists", http.StatusConflict)
	case errors.Is(err, app.ErrInvalidTransition):
		writeErrorResponse(res, "invalid status transition", http.StatusConflict)
	default:
		handlers.log.Sugar().Errorf("Request failed: %s", err)
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
	}
}
