package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP identity middleware.
type Middleware struct {
	logger *zap.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(logger *zap.Logger) *Middleware {
	return &Middleware{logger: logger}
}

// RequireAuth requires the gateway identity headers and puts the Caller
// in the context for downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := CallerFromRequest(r)
		if err != nil {
			m.logger.Debug("Rejected request without caller identity",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "Valid caller identity must be provided")
			return
		}

		next(w, r.WithContext(WithCaller(r.Context(), caller)))
	}
}

// RequireAdmin is RequireAuth plus the admin flag.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := GetCaller(r.Context())
		if !caller.IsAdmin {
			m.logger.Warn("Non-admin caller attempted to access admin endpoint",
				zap.String("user_id", caller.UserID),
				zap.String("path", r.URL.Path))
			m.forbidden(w, "Admin privileges required")
			return
		}
		next(w, r)
	})
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
