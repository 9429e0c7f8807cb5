package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"trendsetter/accounts"
	"trendsetter/server/middleware"
	"trendsetter/sessions"
	"trendsetter/storage"
	"trendsetter/storage/cache"
	"trendsetter/storage/models"
	"trendsetter/utils"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type authEnv struct {
	auth     *middleware.Auth
	issuer   *sessions.Issuer
	denylist *cache.MemoryTokenDenylist
	accounts *accounts.Service
	clock    *utils.StubClock
}

func newAuthEnv() *authEnv {
	clock := utils.NewStubClock()
	issuer := sessions.NewIssuer("test-secret", time.Hour, clock)
	denylist := cache.NewMemoryTokenDenylist(clock)
	accountsService := accounts.NewService(storage.NewMemoryManager(), accounts.MinBcryptCost, clock)
	return &authEnv{
		auth:     middleware.NewAuth(issuer, denylist, accountsService),
		issuer:   issuer,
		denylist: denylist,
		accounts: accountsService,
		clock:    clock,
	}
}

func errorMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthRequire(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv()

	user, err := env.accounts.Register(ctx, accounts.RegisterInput{
		Email:    strings.ToLower(gofakeit.LetterN(10)) + "@example.com",
		Password: "secret123",
		Username: "user_" + gofakeit.LetterN(8),
		FullName: gofakeit.Name(),
	})
	require.NoError(t, err)

	validToken, _, err := env.issuer.Issue(user.Id.Hex())
	require.NoError(t, err)
	revokedToken, revokedClaims, err := env.issuer.Issue(user.Id.Hex())
	require.NoError(t, err)
	require.NoError(t, env.denylist.Revoke(ctx, revokedClaims.TokenId, revokedClaims.ExpiresAt))
	orphanToken, _, err := env.issuer.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	expiredToken, _, err := sessions.NewIssuer("test-secret", time.Minute, utils.NewStubClock()).Issue(user.Id.Hex())
	require.NoError(t, err)
	env.clock.Advance(2 * time.Minute)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic " + validToken, http.StatusUnauthorized, "Access token required"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access token required"},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized, "Invalid or expired token"},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized, "Invalid or expired token"},
		{"revoked token", "Bearer " + revokedToken, http.StatusUnauthorized, "Invalid or expired token"},
		{"deleted user", "Bearer " + orphanToken, http.StatusUnauthorized, "Invalid or expired token"},
		{"valid token", "Bearer " + validToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := env.auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				caller := middleware.UserFromContext(r.Context())
				require.NotNil(t, caller)
				require.Equal(t, user.Id, caller.Id)
				claims, ok := middleware.ClaimsFromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, user.Id.Hex(), claims.UserId)
				w.WriteHeader(http.StatusOK)
			}))

			request := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			require.Equal(t, tt.expectedStatus, recorder.Code)
			require.Equal(t, tt.expectedStatus == http.StatusOK, called)
			if tt.expectedError != "" {
				require.Equal(t, tt.expectedError, errorMessage(t, recorder))
			}
		})
	}
}

type failingUserLoader struct {
	err error
}

func (l failingUserLoader) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, l.err
}

func TestAuthRequireUserLoadErrors(t *testing.T) {
	clock := utils.NewStubClock()
	issuer := sessions.NewIssuer("test-secret", time.Hour, clock)
	token, _, err := issuer.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"store unavailable", errors.New("server selection timeout"), http.StatusInternalServerError, "Server error"},
		{"wrapped not found", fmt.Errorf("find user: %w", storage.ErrNotFound), http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := middleware.NewAuth(issuer, cache.NewMemoryTokenDenylist(clock), failingUserLoader{err: tt.err})
			handler := auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not be called")
			}))

			request := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
			request.Header.Set("Authorization", "Bearer "+token)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			require.Equal(t, tt.expectedStatus, recorder.Code)
			require.Equal(t, tt.expectedError, errorMessage(t, recorder))
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := cache.NewMemoryRateLimiter(2, time.Minute, utils.NewStubClock())
	handler := middleware.RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remoteAddr string) int {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		request.RemoteAddr = remoteAddr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	require.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	require.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS("http://localhost:5173")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, preflight)
	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	foreign := httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	foreign.Header.Set("Origin", "http://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, foreign)
	require.Equal(t, http.StatusTeapot, recorder.Code)
	require.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("first"), tag("second"), middleware.SecureHeaders)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
	require.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
}
