package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://dispatch.pulse.local"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(v1 chi.Router) {
		// Apply JWT authentication to all v1 routes
		v1.Use(s.authMw.Middleware)

		// Any authenticated principal may file an emergency.
		v1.Post("/emergencies", s.handleCreateEmergency)

		// Everything else is the dispatcher surface.
		v1.Group(func(admin chi.Router) {
			admin.Use(s.authMw.RequireRole(RoleDispatcher))

			admin.Get("/emergencies", s.handleListEmergencies)
			admin.Get("/emergencies/{emergencyID}", s.handleGetEmergency)
			admin.Patch("/emergencies/{emergencyID}/resolve", s.handleResolveEmergency)

			admin.Get("/ambulances", s.handleListAmbulances)
			admin.Post("/ambulances", s.handleCreateAmbulance)
			admin.Get("/ambulances/{ambulanceID}", s.handleGetAmbulance)
			admin.Patch("/ambulances/{ambulanceID}/status", s.handleUpdateAmbulanceStatus)
			admin.Patch("/ambulances/{ambulanceID}/location", s.handleUpdateAmbulanceLocation)
			admin.Delete("/ambulances/{ambulanceID}", s.handleDeleteAmbulance)

			admin.Get("/hospitals", s.handleListHospitals)
			admin.Post("/hospitals", s.handleCreateHospital)
			admin.Get("/hospitals/{hospitalID}", s.handleGetHospital)
			admin.Put("/hospitals/{hospitalID}", s.handleUpdateHospital)
			admin.Delete("/hospitals/{hospitalID}", s.handleDeleteHospital)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("http request")
	})
}
