package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/time/rate"

	"github.com/pulsewatch/vigil/internal/config"
	"github.com/pulsewatch/vigil/internal/db"
	_ "github.com/pulsewatch/vigil/internal/docs"
	"github.com/pulsewatch/vigil/internal/event"
	"github.com/pulsewatch/vigil/internal/health"
	"github.com/pulsewatch/vigil/internal/logging"
	"github.com/pulsewatch/vigil/internal/verify"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Scheduler is what the monitor handlers poke after store writes so the
// pipeline picks the change up without waiting for the next sync tick.
type Scheduler interface {
	Sync()
	RemoveMonitor(id string)
	RunningCount() int
}

// Verifier triggers an on-demand multi-vantage check of a monitor.
type Verifier interface {
	TriggerVerification(ctx context.Context, mon db.Monitor, state health.HealthState) (verify.Summary, error)
}

// EventSource feeds the live transition stream endpoint.
type EventSource interface {
	Subscribe(buffer int) (<-chan event.Event, func())
}

// Deps carries everything the router wires into handlers. Verifier and
// Events may be nil; the corresponding endpoints answer 503.
type Deps struct {
	Store    *db.Store
	Sched    Scheduler
	Engine   *health.Engine
	Verifier Verifier
	Events   EventSource
	Metrics  http.Handler
	Config   *config.Config
	Logger   *log.Logger
}

// SecureHeaders adds the standard security headers to every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the HTTP surface: JSON API under /api, health probes
// and metrics at the root. Mutating routes require a Bearer API key once
// at least one key exists; until then they stay open so the first key
// can be created.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logging.New("api")
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Only trust X-Forwarded-For behind a reverse proxy we control;
	// otherwise clients could spoof their IP past the rate limiter.
	if d.Config != nil && d.Config.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(SecureHeaders)

	limiter := NewIPRateLimiter(rate.Limit(100), 200)

	auth := NewAuth(d.Store, d.Logger)
	monitorH := NewMonitorHandler(d.Store, d.Sched)
	healthH := NewHealthHandler(d.Store, d.Engine)
	incidentH := NewIncidentHandler(d.Store)
	verifyH := NewVerifyHandler(d.Store, d.Engine, d.Verifier)
	eventsH := NewEventsHandler(d.Store, d.Events)
	keyH := NewAPIKeyHandler(d.Store, d.Logger)
	settingsH := NewSettingsHandler(d.Store)
	maintH := NewMaintenanceHandler(d.Store)
	notifH := NewNotificationChannelsHandler(d.Store)
	statsH := NewStatsHandler(d.Store, d.Sched)

	// Kubernetes probes and scrape endpoint, unauthenticated and unlimited.
	r.Get("/healthz", Healthz)
	r.Get("/readyz", Readyz(d.Store))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))

		api.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/api/docs/doc.json"),
		))

		// Read surface.
		api.Get("/status", healthH.Overview)
		api.Get("/monitors", monitorH.List)
		api.Get("/monitors/{id}", monitorH.Get)
		api.Get("/monitors/{id}/health", healthH.MonitorHealth)
		api.Get("/monitors/{id}/checks", monitorH.Checks)
		api.Get("/monitors/{id}/transitions", monitorH.Transitions)
		api.Get("/incidents", incidentH.List)
		api.Get("/incidents/{id}", incidentH.Get)
		api.Get("/events", eventsH.Recent)
		api.Get("/events/stream", eventsH.Stream)
		api.Get("/maintenance", maintH.List)
		api.Get("/stats", statsH.Get)

		// Mutations and operator data.
		api.Group(func(protected chi.Router) {
			protected.Use(auth.Require)

			protected.Post("/monitors", monitorH.Create)
			protected.Put("/monitors/{id}", monitorH.Update)
			protected.Delete("/monitors/{id}", monitorH.Delete)
			protected.Post("/monitors/{id}/pause", monitorH.Pause)
			protected.Post("/monitors/{id}/resume", monitorH.Resume)
			protected.Post("/monitors/{id}/verify", verifyH.Trigger)

			protected.Get("/settings", settingsH.Get)
			protected.Patch("/settings", settingsH.Update)

			protected.Get("/api-keys", keyH.List)
			protected.Post("/api-keys", keyH.Create)
			protected.Delete("/api-keys/{id}", keyH.Delete)

			protected.Post("/maintenance", maintH.Create)
			protected.Delete("/maintenance/{id}", maintH.Delete)

			protected.Get("/notifications/channels", notifH.List)
			protected.Post("/notifications/channels", notifH.Create)
			protected.Delete("/notifications/channels/{id}", notifH.Delete)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
