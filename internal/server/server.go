package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pulse/dispatch/internal/config"
	"pulse/dispatch/internal/database"
	"pulse/dispatch/internal/dispatch"
	"pulse/dispatch/internal/geo"
	"pulse/dispatch/internal/mailer"
	"pulse/dispatch/internal/repository/postgres"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ambulanceStore is the administrative view over the ambulance fleet.
type ambulanceStore interface {
	Create(ctx context.Context, params dispatch.CreateAmbulanceParams) (dispatch.Ambulance, error)
	List(ctx context.Context, limit, offset int32) ([]dispatch.Ambulance, error)
	Get(ctx context.Context, id uuid.UUID) (dispatch.Ambulance, error)
	SetStatus(ctx context.Context, id uuid.UUID, status dispatch.Status) (dispatch.Ambulance, error)
	SetLocation(ctx context.Context, id uuid.UUID, latitude, longitude string) (dispatch.Ambulance, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type hospitalStore interface {
	Create(ctx context.Context, params dispatch.CreateHospitalParams) (dispatch.Hospital, error)
	List(ctx context.Context, limit, offset int32) ([]dispatch.Hospital, error)
	Get(ctx context.Context, id uuid.UUID) (dispatch.Hospital, error)
	Update(ctx context.Context, id uuid.UUID, params dispatch.CreateHospitalParams) (dispatch.Hospital, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type emergencyStore interface {
	Get(ctx context.Context, id uuid.UUID) (dispatch.EmergencyRequest, error)
	List(ctx context.Context, limit, offset int32) ([]dispatch.EmergencyRequest, error)
	SetResolved(ctx context.Context, id uuid.UUID, resolved bool) (dispatch.EmergencyRequest, error)
}

// emergencySubmitter is the allocation entry point the emergency handlers use.
type emergencySubmitter interface {
	Submit(ctx context.Context, params dispatch.SubmitParams) (dispatch.EmergencyRequest, error)
}

// Server wires configuration, dependencies and HTTP routing together.
type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	pool      *pgxpool.Pool
	validate  *validator.Validate
	authMw    *AuthMiddleware
	startedAt time.Time

	ambulances  ambulanceStore
	hospitals   hospitalStore
	emergencies emergencyStore
	lifecycle   emergencySubmitter
	reclaimer   *dispatch.Reclaimer
	mail        *mailer.Mailer
}

// New instantiates the HTTP server, runs DB migrations and prepares shared dependencies.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	pool, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	authMw, err := NewAuthMiddleware(ctx, cfg.Keycloak, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init auth middleware: %w", err)
	}

	mail, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		authMw.Close()
		pool.Close()
		return nil, fmt.Errorf("init mailer: %w", err)
	}

	ambulances := postgres.NewAmbulanceRepo(pool)
	emergencies := postgres.NewEmergencyRepo(pool)

	reclaimer := dispatch.NewReclaimer(ambulances, log)
	engine := dispatch.NewEngine(ambulances, reclaimer, nil, log)
	lifecycle := dispatch.NewLifecycle(emergencies, engine, nil, log)

	srv := &Server{
		cfg:         cfg,
		log:         log,
		pool:        pool,
		validate:    newValidator(),
		authMw:      authMw,
		startedAt:   time.Now().UTC(),
		ambulances:  ambulances,
		hospitals:   postgres.NewHospitalRepo(pool),
		emergencies: emergencies,
		lifecycle:   lifecycle,
		reclaimer:   reclaimer,
		mail:        mail,
	}

	return srv, nil
}

// Close releases database resources.
func (s *Server) Close() {
	if s.authMw != nil {
		s.authMw.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or an unrecoverable error occurs.
func (s *Server) Run(ctx context.Context) error {
	// Hygiene sweep for lapsed reservations. Allocation reclaims on its own
	// at every attempt, so correctness never depends on this loop.
	s.startReclaimSweep(ctx, s.cfg.Dispatch.ReclaimInterval)

	httpServer := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.cfg.HTTP.Address).Msg("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) startReclaimSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.reclaimer.ReclaimExpired(ctx, time.Now().UTC())
				if err != nil {
					s.log.Warn().Err(err).Msg("reclaim sweep failed")
					continue
				}
				if n > 0 {
					s.log.Info().Int("reclaimed", n).Msg("reclaim sweep released ambulances")
				}
			}
		}
	}()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Coordinates travel as decimal strings; validity means "parses and is in
	// range", exactly the geo package's definition.
	_ = v.RegisterValidation("latitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := geo.ParseLatitude(val)
		return err == nil
	})
	_ = v.RegisterValidation("longitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := geo.ParseLongitude(val)
		return err == nil
	})
	return v
}
