// Package app assembles the process-wide dependency container: one
// explicit object built at init and carried through the three processes
// (server, scheduler, notifier) instead of module-level globals.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/oncall/oncall/adapter/api"
	"github.com/oncall/oncall/internal/authz"
	"github.com/oncall/oncall/internal/authz/sso"
	calendarCommands "github.com/oncall/oncall/internal/calendar/application/commands"
	calendarQueries "github.com/oncall/oncall/internal/calendar/application/queries"
	"github.com/oncall/oncall/internal/calendar/infrastructure/icalendar"
	calendarPersistence "github.com/oncall/oncall/internal/calendar/infrastructure/persistence"
	"github.com/oncall/oncall/internal/core"
	identityPersistence "github.com/oncall/oncall/internal/identity/infrastructure/persistence"
	notificationApp "github.com/oncall/oncall/internal/notification/application"
	notificationPersistence "github.com/oncall/oncall/internal/notification/infrastructure/persistence"
	rosterApp "github.com/oncall/oncall/internal/roster/application"
	rosterPersistence "github.com/oncall/oncall/internal/roster/infrastructure/persistence"
	schedulingApp "github.com/oncall/oncall/internal/scheduling/application"
	schedulingPersistence "github.com/oncall/oncall/internal/scheduling/infrastructure/persistence"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
	_ "github.com/oncall/oncall/internal/shared/infrastructure/database/postgres" // register driver
	_ "github.com/oncall/oncall/internal/shared/infrastructure/database/sqlite"   // register driver
	"github.com/oncall/oncall/internal/shared/infrastructure/eventbus"
	"github.com/oncall/oncall/internal/shared/infrastructure/migrations"
	"github.com/oncall/oncall/internal/shared/infrastructure/outbox"
	"github.com/oncall/oncall/pkg/config"
	"github.com/oncall/oncall/pkg/observability"
)

// Container holds all wired application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Conn      database.Connection
	UoW       *database.GenericUnitOfWork
	Outbox    outbox.Repository
	Publisher eventbus.Publisher
	// Bus is set in local mode (no RabbitMQ): the outbox processor
	// publishes into it and registered consumers dispatch in-process.
	Bus *eventbus.InProcessEventBus

	Users    *identityPersistence.SQLUserRepository
	Apps     *identityPersistence.SQLApplicationRepository
	Teams    *rosterPersistence.SQLTeamRepository
	Rosters  *rosterPersistence.SQLRosterRepository
	Members  *rosterPersistence.SQLMembershipRepository
	Roles    *rosterPersistence.SQLRoleRepository
	Subs     *rosterPersistence.SQLSubscriptionRepository
	Services *rosterPersistence.SQLServiceRepository

	Events    *calendarPersistence.SQLEventRepository
	Reader    *calendarPersistence.SQLEventReader
	IcalKeys  *calendarPersistence.SQLIcalKeyRepository
	Projector *icalendar.Projector

	Schedules *schedulingPersistence.SQLScheduleRepository
	Registry  *schedulingApp.Registry
	Engine    *schedulingApp.Engine

	Types    *notificationPersistence.SQLTypeRepository
	Settings *notificationPersistence.SQLSettingRepository
	Queue    *notificationPersistence.SQLQueueRepository
	Audit    *notificationPersistence.SQLAuditRepository
	Sink     *notificationApp.Sink

	Authorizer *authz.Authorizer
	Resolver   *authz.Resolver
	Sessions   authz.SessionStore
	SSO        *sso.Client

	Metrics observability.Metrics
	Clock   core.Clock
}

// New builds the container: connects the store, runs migrations, and
// wires every repository and service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(cfg.DB.Driver),
		URL:        cfg.DB.ConnStr,
		SQLitePath: database.DefaultSQLitePath(),
		MaxConns:   cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrations.Run(ctx, conn); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Conn:    conn,
		UoW:     database.NewUnitOfWork(conn),
		Metrics: observability.NewPrometheusMetrics(),
		Clock:   core.SystemClock,
	}

	if conn.Driver() == database.DriverPostgres {
		c.Outbox = outbox.NewPostgresRepository(conn)
	} else {
		c.Outbox = outbox.NewSQLiteRepository(conn)
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
		}
		c.Publisher = publisher
	} else {
		c.Bus = eventbus.NewInProcessEventBus(logger)
		c.Publisher = c.Bus
	}

	c.Users = identityPersistence.NewSQLUserRepository(conn)
	c.Apps = identityPersistence.NewSQLApplicationRepository(conn)
	c.Teams = rosterPersistence.NewSQLTeamRepository(conn)
	c.Rosters = rosterPersistence.NewSQLRosterRepository(conn)
	c.Members = rosterPersistence.NewSQLMembershipRepository(conn)
	c.Roles = rosterPersistence.NewSQLRoleRepository(conn)
	c.Subs = rosterPersistence.NewSQLSubscriptionRepository(conn)
	c.Services = rosterPersistence.NewSQLServiceRepository(conn)

	c.Events = calendarPersistence.NewSQLEventRepository(conn)
	c.Reader = calendarPersistence.NewSQLEventReader(conn)
	c.IcalKeys = calendarPersistence.NewSQLIcalKeyRepository(conn)
	c.Projector = icalendar.NewProjector()

	c.Schedules = schedulingPersistence.NewSQLScheduleRepository(conn)
	c.Registry = schedulingApp.NewRegistry()
	c.Registry.Register(schedulingApp.NewDefaultScheduler())
	c.Registry.Register(schedulingApp.NewRoundRobinScheduler())
	c.Engine = schedulingApp.NewEngine(c.Teams, c.Rosters, c.Schedules, c.Events, c.Members,
		c.Registry, c.UoW, logger, c.Metrics, c.Clock)

	c.Types = notificationPersistence.NewSQLTypeRepository(conn)
	c.Settings = notificationPersistence.NewSQLSettingRepository(conn)
	c.Queue = notificationPersistence.NewSQLQueueRepository(conn)
	c.Audit = notificationPersistence.NewSQLAuditRepository(conn)
	c.Sink = notificationApp.NewSink(c.Types, c.Settings, c.Queue, c.Audit, c.Outbox, c.Clock)

	c.Authorizer = authz.NewAuthorizer(c.Users, c.Teams, c.Members)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		c.Sessions = authz.NewRedisSessionStore(redis.NewClient(opts))
	} else {
		c.Sessions = authz.NewInMemorySessionStore()
	}
	c.Resolver = authz.NewResolver(c.Sessions, authz.NewAppAuthenticator(c.Apps), c.Users,
		cfg.Auth.Debug, cfg.Auth.RequireAuth)
	if cfg.Auth.SSOModule == "oauth2" {
		c.SSO = sso.NewClient(sso.Config{
			ClientID:     cfg.Auth.SSO.ClientID,
			ClientSecret: cfg.Auth.SSO.ClientSecret,
			AuthURL:      cfg.Auth.SSO.AuthURL,
			TokenURL:     cfg.Auth.SSO.TokenURL,
			UserinfoURL:  cfg.Auth.SSO.UserinfoURL,
			RedirectURL:  cfg.Auth.SSO.RedirectURL,
		})
	}

	return c, nil
}

// CommandDeps bundles the mutation engine's dependencies.
func (c *Container) CommandDeps() calendarCommands.Deps {
	return calendarCommands.Deps{
		Events:     c.Events,
		Users:      c.Users,
		Teams:      c.Teams,
		Roles:      c.Roles,
		Members:    c.Members,
		Authorizer: c.Authorizer,
		Sink:       c.Sink,
		UoW:        c.UoW,
		Clock:      c.Clock,
	}
}

// APIHandlers builds the ingress handler set.
func (c *Container) APIHandlers() *api.Handlers {
	deps := c.CommandDeps()
	return &api.Handlers{
		Logger:     c.Logger,
		Resolver:   c.Resolver,
		Authorizer: c.Authorizer,
		Sessions:   c.Sessions,
		SSO:        c.SSO,

		CreateEvent:        calendarCommands.NewCreateEventHandler(deps),
		CreateLinkedEvents: calendarCommands.NewCreateLinkedEventsHandler(deps),
		EditEvent:          calendarCommands.NewEditEventHandler(deps),
		EditLinkedGroup:    calendarCommands.NewEditLinkedGroupHandler(deps),
		DeleteEvent:        calendarCommands.NewDeleteEventHandler(deps),
		DeleteLinkedGroup:  calendarCommands.NewDeleteLinkedGroupHandler(deps),
		SwapEvents:         calendarCommands.NewSwapEventsHandler(deps),
		OverrideEvents:     calendarCommands.NewOverrideEventsHandler(deps),

		Queries:   calendarQueries.NewEventQueryService(c.Reader, c.Teams, c.Services),
		Reader:    c.Reader,
		Projector: c.Projector,
		IcalKeys:  c.IcalKeys,

		Schedules: schedulingApp.NewScheduleService(c.Schedules, c.Rosters, c.Roles, c.UoW),
		Engine:    c.Engine,
		TeamService: rosterApp.NewTeamService(c.Teams, c.Rosters, c.Schedules, c.Events,
			rosterPersistence.NewSQLDeletedTeamRepository(c.Conn), c.Audit, c.UoW, c.Clock),
		Subscriptions: c.Subs,

		Users:    c.Users,
		Teams:    c.Teams,
		Roles:    c.Roles,
		Rosters:  c.Rosters,
		Settings: c.Settings,
		Types:    c.Types,

		SessionTTL: c.Config.Auth.SessionTTL,
		Clock:      c.Clock,
		Health:     c.healthRegistry(),
	}
}

// healthRegistry wires the backing-service probes the healthcheck
// endpoint reports on.
func (c *Container) healthRegistry() *observability.HealthRegistry {
	registry := observability.NewHealthRegistry()
	registry.Register("database", observability.DatabaseHealthChecker(c.Conn.Ping))
	return registry
}

// Close releases held resources.
func (c *Container) Close() error {
	return c.Conn.Close()
}
