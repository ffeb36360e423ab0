package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// Headers set by the authenticating gateway in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type callerKey struct{}

// callerFromHeaders puts the gateway-authenticated caller on the context.
func callerFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUserID + " header"})
			return
		}

		role := domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
		if role == "" {
			role = domain.RoleMember
		}
		if !role.Valid() {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unknown role " + string(role)})
			return
		}

		ctx := context.WithValue(r.Context(), callerKey{}, domain.Caller{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFrom returns the caller stored by callerFromHeaders.
func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(domain.Caller)
	return c, ok
}
