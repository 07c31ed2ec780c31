package transport

import (
	"context"
	"net/http"
	"strings"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type principalCtxKey struct{}

// authMiddleware resolves the bearer session token and binds the Principal
// to the request context for every handler downstream.
func (svc *Services) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, apperr.New(apperr.Unauthenticated, "missing bearer token"))
			return
		}
		principal, err := svc.Oracle.ResolvePrincipal(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalCtxKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(r *http.Request) domain.Principal {
	p, _ := r.Context().Value(principalCtxKey{}).(domain.Principal)
	return p
}

type bootstrapRequest struct {
	InitData string `json:"initData"`
}

type bootstrapResponse struct {
	AccessToken string       `json:"accessToken"`
	Principal   principalDTO `json:"principal"`
}

type principalDTO struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// handleBootstrap implements POST /auth/session.
func (svc *Services) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := svc.Oracle.Bootstrap(r.Context(), req.InitData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bootstrapResponse{
		AccessToken: result.AccessToken,
		Principal:   principalDTO{ID: result.Principal.ID, Role: string(result.Principal.Role)},
	})
}
