package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatepass/gatepass/internal/guest"
	"github.com/gatepass/gatepass/internal/observability"
	"github.com/gatepass/gatepass/internal/rotation"
	"github.com/gatepass/gatepass/internal/verifier"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	GuestHandler    *guest.Handler
	RotationHandler *rotation.Handler
	VerifierHandler *verifier.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with gatepass defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.GuestHandler != nil {
		params.GuestHandler.MountRoutes(r)
	}
	if params.RotationHandler != nil {
		params.RotationHandler.MountRoutes(r)
	}
	if params.VerifierHandler != nil {
		params.VerifierHandler.MountRoutes(r)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
