// api/routes/router.go
package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"turnstile/internal/auth"
	"turnstile/internal/events"
	"turnstile/internal/notifications"
	"turnstile/internal/payments"
	"turnstile/internal/queue"
	"turnstile/internal/seats"
	"turnstile/internal/seed"
	"turnstile/internal/shared/config"
	"turnstile/internal/shared/constants"
	"turnstile/internal/shared/database"
	"turnstile/internal/tokens"
	"turnstile/pkg/cache"
	"turnstile/pkg/logger"
	"turnstile/pkg/metrics"
)

// Router builds every component from config and owns their background lifecycles
type Router struct {
	config  *config.Config
	db      *database.DB
	log     *logger.Logger
	metrics *metrics.AdmissionMetrics

	hub          *notifications.Hub
	scheduler    *queue.AdmissionScheduler
	pushConsumer *notifications.PushConsumer
	kafka        *notifications.KafkaPublisher

	eventController   *events.Controller
	seatController    *seats.Controller
	queueController   *queue.Controller
	paymentController *payments.Controller
	authController    *auth.Controller
	adminMiddleware   []gin.HandlerFunc
}

// NewRouter creates a new router instance; Build must run before SetupRoutes
func NewRouter(cfg *config.Config, db *database.DB, log *logger.Logger, m *metrics.AdmissionMetrics) *Router {
	return &Router{
		config:  cfg,
		db:      db,
		log:     logger.OrDefault(log).WithComponent("router"),
		metrics: m,
	}
}

// Build wires repositories, stores and services for the configured backends
func (r *Router) Build(ctx context.Context) error {
	cfg := r.config

	// Catalog, reservations and oauth clients
	var (
		eventRepo   events.Repository
		seatRepo    seats.Repository
		paymentRepo payments.Repository
		clientRepo  auth.Repository
	)
	if cfg.UsesPostgres() {
		eventRepo = events.NewRepository(r.db.PostgreSQL)
		seatRepo = seats.NewRepository(r.db.PostgreSQL)
		paymentRepo = payments.NewRepository(r.db.PostgreSQL)
		clientRepo = auth.NewRepository(r.db.PostgreSQL)
	} else {
		eventRepo = events.NewMemoryRepository()
		seatRepo = seats.NewMemoryRepository()
		paymentRepo = payments.NewMemoryRepository()
		clientRepo = auth.NewMemoryRepository()
		if cfg.Store.SeedMemory {
			if err := seed.Load(ctx, eventRepo, seatRepo); err != nil {
				return err
			}
			r.log.Info("Memory catalog seeded", "events", len(seed.Events()), "seats", len(seed.Seats()))
		}
	}

	// Admission state
	var (
		queueStore queue.Store
		tokenStore tokens.Store
		lockStore  seats.LockStore
	)
	if cfg.UsesRedis() {
		if err := tokens.PreloadScripts(ctx, r.db.Redis); err != nil {
			r.log.WithError(err).Warn("Failed to preload token scripts, they load on first use")
		}
		if err := seats.PreloadScripts(ctx, r.db.Redis); err != nil {
			r.log.WithError(err).Warn("Failed to preload seat lock scripts, they load on first use")
		}
		queueStore = queue.NewRedisStore(r.db.Redis)
		tokenStore = tokens.NewRedisStore(r.db.Redis, cfg.Admission.TokenTTL)
		lockStore = seats.NewRedisLockStore(r.db.Redis, cfg.Admission.SeatLockTTL)
	} else {
		queueStore = queue.NewMemoryStore()
		tokenStore = tokens.NewMemoryStore(cfg.Admission.TokenTTL)
		lockStore = seats.NewMemoryLockStore(cfg.Admission.SeatLockTTL)
	}

	eventService := events.NewService(eventRepo, r.log)
	if r.db.Redis != nil {
		eventService.SetCacheService(cache.NewService(r.db.Redis, r.log), constants.TTL_EVENT_DETAIL)
	}

	// Push delivery: the local hub alone, or fanned out through Kafka
	r.hub = notifications.NewHub(cfg.Admission.SSEBuffer, r.log, r.metrics)
	var (
		notifier  notifications.Notifier        = r.hub
		publisher notifications.DomainPublisher = notifications.NewLogDomainPublisher(r.log)
	)
	if cfg.Kafka.Enabled {
		if err := r.buildKafka(); err != nil {
			return err
		}
		notifier = notifications.NewKafkaNotifier(r.kafka, r.hub, cfg.InstanceID, r.log)
		publisher = r.kafka
	}

	tokenService := tokens.NewService(tokenStore)
	seatService := seats.NewService(seatRepo, lockStore, eventService, paymentRepo, r.log, r.metrics)
	queueService := queue.NewService(queueStore, tokenStore, eventService, notifier, r.hub, &queue.ServiceConfig{
		AvgProcessingSeconds: cfg.Admission.AvgProcessingSeconds,
		BroadcastLimit:       cfg.Admission.BroadcastLimit,
	}, r.log, r.metrics)

	var gateway payments.Gateway = payments.NewRandomGateway(cfg.Payment.SuccessRate)
	paymentService := payments.NewService(paymentRepo, seatService, tokenService, gateway, publisher, r.log, r.metrics)

	schedulerConfig := &queue.SchedulerConfig{Interval: cfg.Admission.SchedulerInterval}
	if cfg.Admission.SchedulerLeaderLock {
		lease := time.Duration(cfg.Admission.SchedulerLeaderLeaseMs) * time.Millisecond
		schedulerConfig.Lease = queue.NewRedisLeaderLease(r.db.Redis, constants.KEY_SCHEDULER_LEAD, cfg.InstanceID, lease)
	}
	r.scheduler = queue.NewAdmissionScheduler(queueService, eventService, tokenStore, schedulerConfig, r.log, r.metrics)

	authService := auth.NewService(clientRepo, auth.ServiceConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	}, r.log)
	if cfg.Auth.BootstrapClientID != "" {
		err := authService.RegisterClient(ctx, &auth.Client{
			ClientID: cfg.Auth.BootstrapClientID,
			Name:     "bootstrap",
			Scopes:   strings.ReplaceAll(cfg.Auth.BootstrapClientScopes, ",", " "),
			Enabled:  true,
		}, cfg.Auth.BootstrapClientSecret)
		if err != nil {
			return err
		}
	}
	if cfg.Auth.Enabled {
		r.adminMiddleware = append(r.adminMiddleware, auth.RequireScope(authService, auth.ScopeQueueAdmin))
	}

	r.eventController = events.NewController(eventService)
	r.seatController = seats.NewController(seatService, tokenService)
	r.queueController = queue.NewController(queueService, r.hub, cfg.Admission.SSETimeout, r.log)
	r.paymentController = payments.NewController(paymentService)
	r.authController = auth.NewController(authService)
	return nil
}

func (r *Router) buildKafka() error {
	cfg := r.config.Kafka

	producerConfig := notifications.DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Brokers
	producerConfig.PushTopic = cfg.PushTopic
	producerConfig.DomainTopic = cfg.DomainTopic

	publisher, err := notifications.NewKafkaPublisher(producerConfig, r.log)
	if err != nil {
		return err
	}
	r.kafka = publisher

	consumerConfig := notifications.DefaultConsumerConfig(cfg.GroupPrefix, r.config.InstanceID)
	consumerConfig.Brokers = cfg.Brokers
	consumerConfig.Topics = []string{cfg.PushTopic}

	consumer, err := notifications.NewPushConsumer(consumerConfig, r.hub, r.log)
	if err != nil {
		_ = publisher.Close()
		return err
	}
	r.pushConsumer = consumer
	return nil
}

// Start launches the scheduler and, with Kafka, the push consumer
func (r *Router) Start(ctx context.Context) {
	if r.pushConsumer != nil {
		r.pushConsumer.Start(ctx)
	}
	r.scheduler.Start(ctx)
}

// Shutdown stops background work and closes open push streams
func (r *Router) Shutdown() error {
	var errs []error

	if r.scheduler != nil {
		r.scheduler.Stop()
	}
	if r.pushConsumer != nil {
		if err := r.pushConsumer.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.hub != nil {
		r.hub.CloseAll()
	}
	if r.kafka != nil {
		if err := r.kafka.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if r.config.Metrics.Enabled {
		engine.GET(r.config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Token endpoint sits at the root, outside the API prefix
	auth.SetupAuthRoutes(engine.Group(""), r.authController)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		events.SetupEventRoutes(api, r.eventController)
		seats.SetupSeatRoutes(api, r.seatController)
		queue.SetupQueueRoutes(api, r.queueController, r.adminMiddleware...)
		payments.SetupPaymentRoutes(api, r.paymentController)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "turnstile",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "turnstile",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "operational",
			"api_version":      r.config.APIVersion,
			"instance_id":      r.config.InstanceID,
			"store_backend":    r.config.Store.Backend,
			"catalog_backend":  r.config.Store.CatalogBackend,
			"push_connections": r.hub.CountAll(),
			"timestamp":        time.Now(),
		})
	})
}
