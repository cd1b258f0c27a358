package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

var errMissingUser = fmt.Errorf("%w: missing user context", common.ErrUnauthorized)

// UserIDFromContext returns the authenticated user id placed by
// requireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// requireAuth verifies the bearer token and stashes the user id in the
// request context.
func (s *HTTPServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, fmt.Errorf("%w: missing bearer token", common.ErrUnauthorized))
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}
