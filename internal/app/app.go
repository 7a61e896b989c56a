// Package app builds the API's services, handlers and router from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	authhandler "github.com/RyneJoanams/gulf-main-sub001/internal/handler/auth"
	dashboardhandler "github.com/RyneJoanams/gulf-main-sub001/internal/handler/dashboard"
	"github.com/RyneJoanams/gulf-main-sub001/internal/handler/health"
	"github.com/RyneJoanams/gulf-main-sub001/internal/handler/resource"
	workflowhandler "github.com/RyneJoanams/gulf-main-sub001/internal/handler/workflow"
	"github.com/RyneJoanams/gulf-main-sub001/internal/middleware"
	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/internal/router"
	authservice "github.com/RyneJoanams/gulf-main-sub001/internal/service/auth"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/dashboard"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/workflow"
	"github.com/RyneJoanams/gulf-main-sub001/internal/storage"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/auth"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging/redis"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/metrics"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

// Services holds one service per resource plus the cross-record services.
type Services struct {
	Patients   *record.Service[model.Patient]
	Phlebotomy *record.Service[model.Phlebotomy]
	Labs       *record.Service[model.LabReport]
	Clinicals  *record.Service[model.ClinicalReport]
	Radiology  *record.Service[model.RadiologyReport]
	Payments   *record.Service[model.Payment]
	Expenses   *record.Service[model.Expense]
	Users      *record.Service[model.User]

	Auth      *authservice.Service
	Workflow  *workflow.Service
	Dashboard *dashboard.Service
}

type App struct {
	Config   *config.Config
	Store    *storage.Store
	Metrics  *metrics.Metrics
	Services *Services
	Router   *router.Router

	broker *redis.RedisBroker
}

// New connects to the configured store and broker and builds the app.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, storeLogger *zap.SugaredLogger) (*App, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace, "api")
	}

	store, err := storage.Open(ctx, cfg.Storage, storeLogger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.EnsureIndexes(ctx, repository.Indexes()); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	var (
		publisher messaging.Publisher = messaging.Nop{}
		broker    *redis.RedisBroker
	)
	if cfg.Redis.Enabled {
		broker, err = redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, logger)
		if err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		publisher = messaging.NewBrokerPublisher(broker, cfg.Redis.Channel)
	}

	a := Build(cfg, store, publisher, m, logger)
	a.broker = broker
	return a, nil
}

// Build wires services, handlers and routes over an open store.
func Build(cfg *config.Config, store *storage.Store, publisher messaging.Publisher, m *metrics.Metrics, logger zerolog.Logger) *App {
	if m != nil {
		store.WithMetrics(m)
	}
	svcs := NewServices(cfg, store, publisher, m, logger)

	authMW := middleware.NewAuthMiddleware(svcs.Auth, cfg.Auth.Enabled)
	admin := authMW.RequireDepartment(model.DepartmentAdmin)

	routerCfg := router.RouterConfig{
		Mode: cfg.Server.Mode,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  cfg.CORS.AllowedMethods,
			AllowHeaders:  cfg.CORS.AllowedHeaders,
			ExposeHeaders: []string{"Content-Length", middleware.HeaderXRequestID},
			MaxAge:        cfg.CORS.MaxAge,
		},
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Security:     middleware.DefaultSecurityConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		}
	}
	var registry *prometheus.Registry
	if m != nil {
		registry = m.Registry
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	healthH := health.NewHandler(store, registry)

	r := router.NewRouter(routerCfg, logger, m, authMW, healthH)
	r.Public(authhandler.NewHandler(svcs.Auth, authMW))
	r.Protected(
		resource.NewHandler(svcs.Patients, resource.Config[model.Patient]{
			Path:    "/patients",
			Filters: []string{"labNumber", "patientName", "agent", "status", "medicalType", "passportNumber"},
		}),
		resource.NewHandler(svcs.Phlebotomy, resource.Config[model.Phlebotomy]{
			Path:    "/phlebotomy",
			Filters: []string{"labNumber", "patientName", "collectedBy"},
		}),
		resource.NewHandler(svcs.Labs, resource.Config[model.LabReport]{
			Path:    "/lab",
			Filters: []string{"labNumber", "patientName", "selectedReport"},
		}),
		resource.NewHandler(svcs.Clinicals, resource.Config[model.ClinicalReport]{
			Path:    "/clinical",
			Filters: []string{"labNumber", "patientName", "fitnessStatus", "clinicalOfficer"},
		}),
		resource.NewHandler(svcs.Radiology, resource.Config[model.RadiologyReport]{
			Path:    "/radiology",
			Filters: []string{"labNumber", "patientName", "radiologist"},
		}),
		resource.NewHandler(svcs.Payments, resource.Config[model.Payment]{
			Path:    "/payments",
			Filters: []string{"labNumber", "patientName", "agent", "paymentStatus", "paymentMethod"},
		}),
		resource.NewHandler(svcs.Expenses, resource.Config[model.Expense]{
			Path:    "/expenses",
			Filters: []string{"category", "paidTo", "recordedBy"},
		}),
		resource.NewHandler(svcs.Users, resource.Config[model.User]{
			Path:       "/users",
			Filters:    []string{"department", "email"},
			View:       func(u *model.User) any { return u.Public() },
			Inbound:    resource.StripKeys(record.UserProtected...),
			Middleware: []gin.HandlerFunc{admin},
		}),
		workflowhandler.NewHandler(svcs.Workflow),
		dashboardhandler.NewHandler(svcs.Dashboard, admin),
	)
	r.Setup()

	return &App{
		Config:   cfg,
		Store:    store,
		Metrics:  m,
		Services: svcs,
		Router:   r,
	}
}

// NewServices builds every service over store. It is shared by the API and
// the admin CLI.
func NewServices(cfg *config.Config, store *storage.Store, publisher messaging.Publisher, m *metrics.Metrics, logger zerolog.Logger) *Services {
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	patients := storage.Collection[model.Patient](store, model.CollectionPatients)
	phlebotomy := storage.Collection[model.Phlebotomy](store, model.CollectionPhlebotomies)
	labs := storage.Collection[model.LabReport](store, model.CollectionLabReports)
	clinicals := storage.Collection[model.ClinicalReport](store, model.CollectionClinicals)
	radiology := storage.Collection[model.RadiologyReport](store, model.CollectionRadiology)
	payments := storage.Collection[model.Payment](store, model.CollectionPayments)
	expenses := storage.Collection[model.Expense](store, model.CollectionExpenses)
	users := storage.Collection[model.User](store, model.CollectionUsers)

	s := &Services{
		Patients: record.NewService(patients, publisher, logger, record.Options[model.Patient]{
			Resource: record.ResourcePatient,
			Prepare:  record.PreparePatient,
		}).WithMetrics(m),
		Phlebotomy: record.NewService(phlebotomy, publisher, logger, record.Options[model.Phlebotomy]{
			Resource: record.ResourcePhlebotomy,
			Label:    "phlebotomy record",
			Prepare:  record.PreparePhlebotomy,
		}).WithMetrics(m),
		Labs: record.NewService(labs, publisher, logger, record.Options[model.LabReport]{
			Resource: record.ResourceLabReport,
			Prepare:  record.PrepareLabReport,
		}).WithMetrics(m),
		Clinicals: record.NewService(clinicals, publisher, logger, record.Options[model.ClinicalReport]{
			Resource: record.ResourceClinical,
			Prepare:  record.PrepareClinical,
		}).WithMetrics(m),
		Radiology: record.NewService(radiology, publisher, logger, record.Options[model.RadiologyReport]{
			Resource: record.ResourceRadiology,
			Prepare:  record.PrepareRadiology,
		}).WithMetrics(m),
		Payments: record.NewService(payments, publisher, logger, record.Options[model.Payment]{
			Resource: record.ResourcePayment,
			Prepare:  record.PreparePayment,
		}).WithMetrics(m),
		Expenses: record.NewService(expenses, publisher, logger, record.Options[model.Expense]{
			Resource: record.ResourceExpense,
			Prepare:  record.PrepareExpense,
		}).WithMetrics(m),
		Users: record.NewService(users, publisher, logger, record.Options[model.User]{
			Resource:  record.ResourceUser,
			Prepare:   record.PrepareUser(hasher),
			Protected: record.UserProtected,
		}).WithMetrics(m),
	}

	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	s.Auth = authservice.NewService(s.Users, jwtSvc, hasher, logger)
	s.Workflow = workflow.NewService(labs, radiology, phlebotomy, clinicals)
	s.Dashboard = dashboard.NewService(map[string]dashboard.Counter{
		model.CollectionPatients:     patients,
		model.CollectionPhlebotomies: phlebotomy,
		model.CollectionLabReports:   labs,
		model.CollectionClinicals:    clinicals,
		model.CollectionRadiology:    radiology,
		model.CollectionPayments:     payments,
		model.CollectionExpenses:     expenses,
	}, payments, expenses, labs)
	return s
}

func (a *App) Handler() http.Handler {
	return a.Router.Engine()
}

// Close releases the broker and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	errs = append(errs, a.Store.Close(ctx))
	return errors.Join(errs...)
}
