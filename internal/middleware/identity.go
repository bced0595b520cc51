package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// UserIDHeader carries the caller identity issued by the upstream auth layer.
const UserIDHeader = "X-User-ID"

type contextKey string

const userContextKey contextKey = "user"

// UserLookup loads the caller named by the identity header.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (chat.User, error)
}

// Identity resolves X-User-ID into a user and stores it in the request
// context. Missing, malformed or unknown identities get 401. isNotFound tells
// an unknown user apart from a storage failure.
func Identity(users UserLookup, isNotFound func(error) bool, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				utils.RespondError(w, http.StatusUnauthorized, "invalid "+UserIDHeader+" header")
				return
			}

			user, err := users.GetUser(r.Context(), id)
			switch {
			case err != nil && isNotFound(err):
				utils.RespondError(w, http.StatusUnauthorized, "unknown user")
				return
			case err != nil:
				logger.Error().Err(err).Int64("user_id", id).Msg("identity lookup failed")
				utils.RespondError(w, http.StatusInternalServerError, "identity lookup failed")
				return
			case user.IsBot:
				utils.RespondError(w, http.StatusUnauthorized, "bot identity cannot make requests")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated caller.
func UserFromContext(ctx context.Context) (chat.User, bool) {
	user, ok := ctx.Value(userContextKey).(chat.User)
	return user, ok
}

// UserID returns the authenticated caller's id, or 0 when there is none.
func UserID(ctx context.Context) int64 {
	user, _ := UserFromContext(ctx)
	return user.ID
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user chat.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// ErrIs adapts errors.Is for Identity's isNotFound argument.
func ErrIs(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}
