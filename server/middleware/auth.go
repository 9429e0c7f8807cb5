package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"trendsetter/sessions"
	"trendsetter/storage"
	"trendsetter/storage/cache"
	"trendsetter/storage/models"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	userContextKey   contextKey = "user"
	claimsContextKey contextKey = "claims"
)

type TokenVerifier interface {
	Verify(token string) (sessions.Claims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth admits requests carrying a valid, unrevoked bearer token of an
// existing account. The wrapped handler is never called otherwise.
type Auth struct {
	verifier TokenVerifier
	denylist cache.TokenDenylist
	users    UserLoader
}

func NewAuth(verifier TokenVerifier, denylist cache.TokenDenylist, users UserLoader) *Auth {
	return &Auth{
		verifier: verifier,
		denylist: denylist,
		users:    users,
	}
}

func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.SendError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			log.Debugf("Rejected token: %v", err)
			utils.SendError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		revoked, err := a.denylist.IsRevoked(r.Context(), claims.TokenId)
		if err != nil {
			log.Errorf("Error checking revoked tokens: %v", err)
			utils.SendError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if revoked {
			utils.SendError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := a.users.GetByID(r.Context(), claims.UserId)
		if errors.Is(err, storage.ErrNotFound) {
			log.WithField("user_id", claims.UserId).Debug("Token for deleted user")
			utils.SendError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if err != nil {
			log.WithField("user_id", claims.UserId).Errorf("Error loading user: %v", err)
			utils.SendError(w, http.StatusInternalServerError, "Server error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) RequireFunc(next http.HandlerFunc) http.Handler {
	return a.Require(next)
}

func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func ClaimsFromContext(ctx context.Context) (sessions.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(sessions.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
