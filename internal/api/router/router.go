// Package router wires the portal's HTTP surface: public booking endpoints,
// the wizard, and JWT-guarded staff routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/availability"
	"github.com/vetline/clinic-portal/internal/booking"
	httpmiddleware "github.com/vetline/clinic-portal/internal/http/middleware"
	"github.com/vetline/clinic-portal/internal/mobileservice"
	"github.com/vetline/clinic-portal/internal/slots"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	SlotsHandler        *slots.Handler
	AvailabilityHandler *availability.Handler
	AppointmentsHandler *appointments.Handler
	MobileHandler       *mobileservice.Handler
	BookingHandler      *booking.Handler
	MetricsHandler      http.Handler

	StaffJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints: health, bookable options, the wizard.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.SlotsHandler != nil {
			public.Get("/slots/enabled", cfg.SlotsHandler.ListEnabled)
		}
		if cfg.AvailabilityHandler != nil {
			public.Get("/availability", cfg.AvailabilityHandler.Check)
		}
		if cfg.AppointmentsHandler != nil {
			public.Post("/appointments", cfg.AppointmentsHandler.Create)
		}
		if cfg.MobileHandler != nil {
			public.Post("/mobile-services", cfg.MobileHandler.Create)
		}
		if cfg.BookingHandler != nil {
			public.Route("/booking/sessions", func(b chi.Router) {
				b.Post("/", cfg.BookingHandler.Start)
				b.Get("/{id}", cfg.BookingHandler.Get)
				b.Post("/{id}/advance", cfg.BookingHandler.Advance)
				b.Post("/{id}/back", cfg.BookingHandler.Back)
				b.Post("/{id}/submit", cfg.BookingHandler.Submit)
			})
		}
	})

	// Staff endpoints behind JWT. Slot administration is admin-only; the
	// day-to-day views are open to every staff role.
	r.Group(func(staff chi.Router) {
		staff.Use(httpmiddleware.StaffJWT(cfg.StaffJWTSecret))

		if cfg.SlotsHandler != nil {
			staff.Get("/slots", cfg.SlotsHandler.List)
		}
		if cfg.AppointmentsHandler != nil {
			staff.Get("/appointments", cfg.AppointmentsHandler.List)
			staff.Get("/appointments/{id}", cfg.AppointmentsHandler.GetByID)
			staff.Put("/appointments/{id}", cfg.AppointmentsHandler.Transition)
		}
		if cfg.MobileHandler != nil {
			staff.Get("/mobile-services", cfg.MobileHandler.List)
			staff.Get("/mobile-services/{id}", cfg.MobileHandler.GetByID)
			staff.Put("/mobile-services/{id}", cfg.MobileHandler.Update)
		}
	})

	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.StaffJWT(cfg.StaffJWTSecret, httpmiddleware.RoleAdmin))

		if cfg.SlotsHandler != nil {
			admin.Post("/slots", cfg.SlotsHandler.Create)
			admin.Patch("/slots/{id}", cfg.SlotsHandler.SetEnabled)
			admin.Delete("/slots/{id}", cfg.SlotsHandler.Remove)
		}
	})

	return r
}
