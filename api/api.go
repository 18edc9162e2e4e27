// Package api serves snapshots and group generation over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"groups/config"
	"groups/metrics"
	"groups/snapshot"
	"groups/solver"
	"groups/store"
)

// Store is the persistence the handlers need.
type Store interface {
	CreateSnapshot(ctx context.Context, name string, cfg *snapshot.Configuration) (*store.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*store.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]store.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	CreateRun(ctx context.Context, run *store.Run) error
	ListRuns(ctx context.Context, snapshotID string) ([]store.Run, error)
	Ping(ctx context.Context) error
}

// TokenValidator checks a Google ID token for audience and returns the
// signed-in email address.
type TokenValidator func(ctx context.Context, credential, audience string) (email string, claims map[string]any, err error)

type Options struct {
	Store          Store
	Logger         *slog.Logger
	Metrics        metrics.Collector
	MetricsHandler http.Handler
	Auth           config.AuthConfig
	ValidateToken  TokenValidator
	GroupSize      int
	MaxAttempts    int
	RateLimit      RateLimitConfig
}

type server struct {
	store       Store
	logger      *slog.Logger
	metrics     metrics.Collector
	auth        *auth
	groupSize   int
	maxAttempts int
}

func NewRouter(opts Options) http.Handler {
	s := &server{
		store:       opts.Store,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		auth:        newAuth(opts.Auth, opts.ValidateToken),
		groupSize:   opts.GroupSize,
		maxAttempts: opts.MaxAttempts,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	if s.groupSize <= 0 {
		s.groupSize = solver.DefaultGroupSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = solver.DefaultMaxAttempts
	}
	limit := RateLimiter(opts.RateLimit, s.metrics)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(1 << 20))

	r.Post("/auth/google/callback", s.handleGoogleCallback())
	r.Get("/api/admin/check", s.handleAdminCheck())

	r.Get("/api/snapshots", s.handleListSnapshots())
	r.Post("/api/snapshots", s.handleCreateSnapshot())
	r.Get("/api/snapshots/{snapshotID}", s.handleGetSnapshot())
	r.Get("/api/snapshots/{snapshotID}/export", s.handleExportSnapshot())
	r.Delete("/api/snapshots/{snapshotID}", s.handleDeleteSnapshot())
	r.With(limit).Post("/api/snapshots/{snapshotID}/generate", s.handleGenerateSnapshot())
	r.Get("/api/snapshots/{snapshotID}/runs", s.handleListRuns())
	r.With(limit).Post("/api/generate", s.handleGenerate())

	r.Get("/healthz", s.handleHealthz())
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	return r
}
