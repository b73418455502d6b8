// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"digitalindian/chat"
	"digitalindian/email"
	"digitalindian/metrics"
	"digitalindian/notify"
	"digitalindian/pkg/site"
	"digitalindian/storage"

	"github.com/go-chi/chi/v5"
)

// Store interface for subscribers and site content.
type Store interface {
	Ping(ctx context.Context) error

	AddSubscriber(ctx context.Context, email string) error
	RemoveSubscriber(ctx context.Context, email string) error
	ListSubscribers(ctx context.Context) ([]*site.Subscriber, error)

	ContentItem(ctx context.Context, kind site.ContentKind, id string) (site.ContentItem, error)

	CreatePost(ctx context.Context, p *site.Post) error
	GetPost(ctx context.Context, id string) (*site.Post, error)
	ListPosts(ctx context.Context) ([]*site.Post, error)
	UpdatePost(ctx context.Context, p *site.Post) error
	DeletePost(ctx context.Context, id string) error

	CreateUpdate(ctx context.Context, u *site.CompanyUpdate) error
	ListUpdates(ctx context.Context) ([]*site.CompanyUpdate, error)
	UpdateUpdate(ctx context.Context, u *site.CompanyUpdate) error
	DeleteUpdate(ctx context.Context, id string) error

	CreateJob(ctx context.Context, j *site.JobOpening) error
	ListJobs(ctx context.Context) ([]*site.JobOpening, error)
	UpdateJob(ctx context.Context, j *site.JobOpening) error
	DeleteJob(ctx context.Context, id string) error

	CreateGalleryItem(ctx context.Context, g *site.GalleryItem) error
	GetGalleryItem(ctx context.Context, id string) (*site.GalleryItem, error)
	ListGallery(ctx context.Context) ([]*site.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, g *site.GalleryItem) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

// ImageStore interface for uploaded post and gallery images.
type ImageStore interface {
	Upload(ctx context.Context, prefix, filename, contentType string, r io.Reader) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(u string) string
}

// Responder answers chat widget messages.
type Responder interface {
	Answer(ctx context.Context, message string) chat.Reply
}

// Mailer interface for the emails sent directly from request handlers.
type Mailer interface {
	SendWelcome(ctx context.Context, to string) error
	SendContact(ctx context.Context, form *email.ContactForm) error
	SendApplication(ctx context.Context, app *email.Application) error
}

// Notifier fans a content item out to every subscriber.
type Notifier interface {
	NotifySubscribers(ctx context.Context, item site.ContentItem) notify.Result
}

// Authenticator guards the admin routes.
type Authenticator interface {
	Middleware(logger *slog.Logger) func(http.Handler) http.Handler
}

// Server handles HTTP requests.
type Server struct {
	store           Store
	images          ImageStore
	responder       Responder
	mailer          Mailer
	notifier        Notifier
	auth            Authenticator
	logger          *slog.Logger
	limiter         *rateLimiter
	uploadsDir      string
	emailConfigured bool
}

// Config holds server configuration.
type Config struct {
	Store     Store
	Images    ImageStore
	Responder Responder
	Mailer    Mailer
	Notifier  Notifier
	Auth      Authenticator
	Logger    *slog.Logger

	// UploadsDir is served under /uploads/ when images are kept on local disk.
	UploadsDir string

	// EmailConfigured is false when no mail credentials are present. Contact and
	// career submissions are refused in that case.
	EmailConfigured bool
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		store:           cfg.Store,
		images:          cfg.Images,
		responder:       cfg.Responder,
		mailer:          cfg.Mailer,
		notifier:        cfg.Notifier,
		auth:            cfg.Auth,
		logger:          cfg.Logger,
		limiter:         newRateLimiter(5, time.Hour),
		uploadsDir:      cfg.UploadsDir,
		emailConfigured: cfg.EmailConfigured,
	}
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if s.uploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/subscribe", s.handleSubscribe)
		r.Post("/contact", s.handleContact)
		r.Post("/careers/apply", s.handleApply)

		r.Get("/posts", s.handleListPosts)
		r.Get("/posts/{id}", s.handleGetPost)
		r.Get("/updates", s.handleListUpdates)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/gallery", s.handleListGallery)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.Middleware(s.logger))

			r.Post("/posts", s.handleCreatePost)
			r.Put("/posts/{id}", s.handleUpdatePost)
			r.Delete("/posts/{id}", s.handleDeletePost)

			r.Post("/updates", s.handleCreateUpdate)
			r.Put("/updates/{id}", s.handleUpdateUpdate)
			r.Delete("/updates/{id}", s.handleDeleteUpdate)

			r.Post("/jobs", s.handleCreateJob)
			r.Put("/jobs/{id}", s.handleUpdateJob)
			r.Delete("/jobs/{id}", s.handleDeleteJob)

			r.Post("/gallery", s.handleCreateGalleryItem)
			r.Put("/gallery/{id}", s.handleUpdateGalleryItem)
			r.Delete("/gallery/{id}", s.handleDeleteGalleryItem)

			r.Post("/notify/{kind}/{id}", s.handleNotify)

			r.Get("/subscribers", s.handleListSubscribers)
			r.Delete("/subscribers/{email}", s.handleRemoveSubscriber)
		})
	})

	return r
}

// Serve listens on port until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, port string) error {
	// Configure server with timeouts to prevent resource exhaustion
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,  // Time to read request headers and body
		WriteTimeout:      60 * time.Second,  // Fan-out runs synchronously inside admin requests
		IdleTimeout:       120 * time.Second, // Time to keep connection alive between requests
		ReadHeaderTimeout: 5 * time.Second,   // Time to read request headers only
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("Health check failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := fmt.Fprint(w, `{"status":"unhealthy"}`); err != nil {
			s.logger.Warn("Failed to write health response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
		return
	}
}
