package server

import (
	"context"
	"errors"
	"net/http"
	"time"
	"trendsetter/accounts"
	"trendsetter/content"
	"trendsetter/monitoring"
	monitoringMiddleware "trendsetter/monitoring/middleware"
	"trendsetter/notifications"
	"trendsetter/relations"
	"trendsetter/server/middleware"
	"trendsetter/sessions"
	"trendsetter/storage"
	"trendsetter/storage/cache"
	"trendsetter/uploads"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Addr          string
	AllowedOrigin string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

type Server struct {
	options   Options
	store     storage.Store
	accounts  *accounts.Service
	issuer    *sessions.Issuer
	denylist  cache.TokenDenylist
	limiter   cache.RateLimiter
	relations *relations.Service
	content   *content.Service
	uploads   *uploads.Store
	streamer  *notifications.Streamer
	auth      *middleware.Auth
}

func NewServer(
	options Options,
	store storage.Store,
	accountsService *accounts.Service,
	issuer *sessions.Issuer,
	denylist cache.TokenDenylist,
	limiter cache.RateLimiter,
	relationsService *relations.Service,
	contentService *content.Service,
	uploadsStore *uploads.Store,
	streamer *notifications.Streamer,
) *Server {
	return &Server{
		options:   options,
		store:     store,
		accounts:  accountsService,
		issuer:    issuer,
		denylist:  denylist,
		limiter:   limiter,
		relations: relationsService,
		content:   contentService,
		uploads:   uploadsStore,
		streamer:  streamer,
		auth:      middleware.NewAuth(issuer, denylist, accountsService),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	limited := middleware.RateLimit(s.limiter)
	protected := s.auth.RequireFunc

	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.register)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.login)))
	mux.Handle("POST /api/auth/logout", protected(s.logout))

	mux.Handle("GET /api/user/profile", protected(s.getProfile))
	mux.Handle("PUT /api/user/profile", protected(s.updateProfile))
	mux.Handle("GET /api/users/{id}", protected(s.getUser))
	mux.Handle("GET /api/users/{id}/posts", protected(s.getUserPosts))
	mux.Handle("POST /api/users/{id}/follow", protected(s.toggleFollow))

	mux.Handle("POST /api/posts", protected(s.createPost))
	mux.Handle("GET /api/posts", protected(s.listPosts))
	mux.Handle("GET /api/posts/{id}", protected(s.getPost))
	mux.Handle("POST /api/posts/{id}/like", protected(s.toggleLike))

	mux.HandleFunc("GET /api/trends", s.listTrends)
	mux.Handle("GET /api/ai/analysis", protected(s.trendAnalysis))
	mux.Handle("GET /api/notifications/ws", protected(s.notificationsStream))

	mux.Handle("GET /uploads/", s.uploads.Handler())
	mux.Handle("GET /metrics", monitoring.Handler())
	mux.HandleFunc("GET /healthz", s.healthz)

	return middleware.Chain(mux,
		monitoringMiddleware.Instrument,
		middleware.Logger,
		middleware.SecureHeaders,
		middleware.CORS(s.options.AllowedOrigin),
	)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.options.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", s.options.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Errorf("Health check failed: %v", err)
		sendError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	sendJson(w, http.StatusOK, map[string]string{"status": "ok"})
}
