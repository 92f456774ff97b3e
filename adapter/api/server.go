package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oncall/oncall/internal/authz"
	"github.com/oncall/oncall/internal/authz/sso"
	"github.com/oncall/oncall/internal/calendar/application/commands"
	"github.com/oncall/oncall/internal/calendar/application/queries"
	calendarDomain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/calendar/infrastructure/icalendar"
	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	rosterApp "github.com/oncall/oncall/internal/roster/application"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	schedulingApp "github.com/oncall/oncall/internal/scheduling/application"
	"github.com/oncall/oncall/pkg/observability"
)

// Handlers bundles everything the route handlers call into.
type Handlers struct {
	Logger *slog.Logger

	Resolver   *authz.Resolver
	Authorizer *authz.Authorizer
	Sessions   authz.SessionStore
	SSO        *sso.Client

	CreateEvent        *commands.CreateEventHandler
	CreateLinkedEvents *commands.CreateLinkedEventsHandler
	EditEvent          *commands.EditEventHandler
	EditLinkedGroup    *commands.EditLinkedGroupHandler
	DeleteEvent        *commands.DeleteEventHandler
	DeleteLinkedGroup  *commands.DeleteLinkedGroupHandler
	SwapEvents         *commands.SwapEventsHandler
	OverrideEvents     *commands.OverrideEventsHandler

	Queries   *queries.EventQueryService
	Reader    queries.EventReader
	Projector *icalendar.Projector
	IcalKeys  calendarDomain.IcalKeyRepository

	Schedules     *schedulingApp.ScheduleService
	Engine        *schedulingApp.Engine
	TeamService   *rosterApp.TeamService
	Subscriptions rosterDomain.SubscriptionRepository

	Users    identityDomain.UserRepository
	Teams    rosterDomain.TeamRepository
	Roles    rosterDomain.RoleRepository
	Rosters  rosterDomain.RosterRepository
	Settings notificationDomain.SettingRepository
	Types    notificationDomain.TypeRepository

	SessionTTL time.Duration
	Clock      core.Clock
	Health     *observability.HealthRegistry
}

func (h *Handlers) now() time.Time {
	if h.Clock == nil {
		return core.SystemClock()
	}
	return h.Clock()
}

// Server is the HTTP ingress process.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
	logger *slog.Logger
	h      *Handlers
}

// ServerConfig holds the listener configuration.
type ServerConfig struct {
	Addr            string
	HealthcheckPath string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// NewServer builds the ingress with all routes registered.
func NewServer(cfg ServerConfig, h *Handlers) *Server {
	if cfg.HealthcheckPath == "" {
		cfg.HealthcheckPath = "/healthcheck"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: h.Logger,
		h:      h,
	}
	s.registerRoutes(cfg.HealthcheckPath)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes(healthcheckPath string) {
	s.mux.HandleFunc("GET "+healthcheckPath, s.handleHealthcheck)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /login", s.h.handleLogin)
	s.mux.HandleFunc("POST /logout", s.h.handleLogout)

	// Event mutation + query surface. All authenticated routes run
	// through the principal middleware.
	s.mux.HandleFunc("GET /api/v0/events", s.auth(s.h.handleListEvents))
	s.mux.HandleFunc("POST /api/v0/events", s.auth(s.h.handleCreateEvent))
	s.mux.HandleFunc("GET /api/v0/events/{id}", s.auth(s.h.handleGetEvent))
	s.mux.HandleFunc("PUT /api/v0/events/{id}", s.auth(s.h.handleEditEvent))
	s.mux.HandleFunc("DELETE /api/v0/events/{id}", s.auth(s.h.handleDeleteEvent))
	s.mux.HandleFunc("POST /api/v0/events/link", s.auth(s.h.handleCreateLinkedEvents))
	s.mux.HandleFunc("PUT /api/v0/events/link/{link_id}", s.auth(s.h.handleEditLinkedGroup))
	s.mux.HandleFunc("DELETE /api/v0/events/link/{link_id}", s.auth(s.h.handleDeleteLinkedGroup))
	s.mux.HandleFunc("POST /api/v0/events/swap", s.auth(s.h.handleSwapEvents))
	s.mux.HandleFunc("POST /api/v0/events/override", s.auth(s.h.handleOverrideEvents))

	// Team lifecycle operations that affect the calendar.
	s.mux.HandleFunc("DELETE /api/v0/teams/{team}", s.auth(s.h.handleDeleteTeam))
	s.mux.HandleFunc("DELETE /api/v0/teams/{team}/rosters/{roster}", s.auth(s.h.handleDeleteRoster))
	s.mux.HandleFunc("POST /api/v0/teams/{team}/subscriptions", s.auth(s.h.handleSubscribe))
	s.mux.HandleFunc("DELETE /api/v0/teams/{team}/subscriptions", s.auth(s.h.handleUnsubscribe))

	// Schedules.
	s.mux.HandleFunc("GET /api/v0/teams/{team}/schedules", s.auth(s.h.handleListSchedules))
	s.mux.HandleFunc("POST /api/v0/teams/{team}/schedules", s.auth(s.h.handleCreateSchedule))
	s.mux.HandleFunc("GET /api/v0/schedules/{id}", s.auth(s.h.handleGetSchedule))
	s.mux.HandleFunc("PUT /api/v0/schedules/{id}", s.auth(s.h.handleUpdateSchedule))
	s.mux.HandleFunc("DELETE /api/v0/schedules/{id}", s.auth(s.h.handleDeleteSchedule))
	s.mux.HandleFunc("POST /api/v0/schedules/{id}/populate", s.auth(s.h.handlePopulateSchedule))
	s.mux.HandleFunc("GET /api/v0/schedules/{id}/preview", s.auth(s.h.handlePreviewSchedule))

	// Oncall queries.
	s.mux.HandleFunc("GET /api/v0/teams/{team}/oncall", s.auth(s.h.handleTeamOncall))
	s.mux.HandleFunc("GET /api/v0/teams/{team}/oncall/{role}", s.auth(s.h.handleTeamOncall))
	s.mux.HandleFunc("GET /api/v0/services/{service}/oncall", s.auth(s.h.handleServiceOncall))

	// iCal projections. The key route is public by design.
	s.mux.HandleFunc("GET /api/v0/teams/{team}/ical", s.auth(s.h.handleTeamIcal))
	s.mux.HandleFunc("GET /api/v0/users/{user}/ical", s.auth(s.h.handleUserIcal))
	s.mux.HandleFunc("GET /api/v0/ical/{key}", s.h.handleKeyIcal)

	// Notification settings.
	s.mux.HandleFunc("GET /api/v0/notifications", s.auth(s.h.handleListNotificationTypes))
	s.mux.HandleFunc("GET /api/v0/users/{user}/notifications", s.auth(s.h.handleListUserSettings))
	s.mux.HandleFunc("POST /api/v0/users/{user}/notifications", s.auth(s.h.handleCreateUserSetting))
	s.mux.HandleFunc("DELETE /api/v0/users/{user}/notifications/{id}", s.auth(s.h.handleDeleteUserSetting))
}

// auth resolves the request principal before dispatching.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.h.Resolver.Resolve(r.Context(), r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, apiError{
				Title:       titleForStatus(http.StatusUnauthorized),
				Description: "authentication failed",
			})
			return
		}
		if principal != nil {
			r = r.WithContext(authz.WithPrincipal(r.Context(), principal))
		}
		next(w, r)
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if s.h.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	health := s.h.Health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server stopping")
	return s.server.Shutdown(ctx)
}

// principalOr403 returns the principal resolved for the request, or an
// Unauthorized error when none was resolved.
func principalOr403(r *http.Request) (*authz.Principal, error) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		return nil, core.Unauthorized("authentication required")
	}
	return p, nil
}
