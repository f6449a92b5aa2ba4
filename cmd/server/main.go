package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"licensing/internal/admin"
	adminhandler "licensing/internal/admin/handler"
	"licensing/internal/artifact"
	candidatehandler "licensing/internal/candidate/handler"
	candidateservice "licensing/internal/candidate/service"
	"licensing/internal/eligibility"
	eligibilityhandler "licensing/internal/eligibility/handler"
	eligibilitymetrics "licensing/internal/eligibility/metrics"
	examhandler "licensing/internal/exam/handler"
	exammetrics "licensing/internal/exam/metrics"
	exammodels "licensing/internal/exam/models"
	examservice "licensing/internal/exam/service"
	licensehandler "licensing/internal/license/handler"
	licensemetrics "licensing/internal/license/metrics"
	licenseservice "licensing/internal/license/service"
	"licensing/internal/notification"
	notificationmetrics "licensing/internal/notification/metrics"
	"licensing/internal/notification/publisher"
	"licensing/internal/payment/gateway"
	paymenthandler "licensing/internal/payment/handler"
	paymentmetrics "licensing/internal/payment/metrics"
	paymentservice "licensing/internal/payment/service"
	"licensing/internal/photo"
	"licensing/internal/platform/config"
	"licensing/internal/platform/httpserver"
	"licensing/internal/platform/kafka"
	"licensing/internal/platform/logger"
	"licensing/internal/platform/metrics"
	"licensing/internal/platform/mongo"
	"licensing/internal/platform/redis"
	ratelimitmetrics "licensing/internal/ratelimit/metrics"
	ratelimit "licensing/internal/ratelimit/middleware"
	ratelimitmodels "licensing/internal/ratelimit/models"
	"licensing/internal/ratelimit/store/bucket"
	staffhandler "licensing/internal/staff/handler"
	staffmodels "licensing/internal/staff/models"
	staffservice "licensing/internal/staff/service"
	"licensing/internal/staff/token"
	httptransport "licensing/internal/transport/http"
	dErrors "licensing/pkg/domain-errors"
)

// main wires dependencies, serves HTTP and runs the outbox worker until
// SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("licensing stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	checks := map[string]httptransport.HealthCheck{"database": st.health}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
	}

	mongoDB, disconnectMongo, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	if disconnectMongo != nil {
		defer func() { _ = disconnectMongo(context.Background()) }()
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	var pub notification.Publisher = publisher.NewLog(log)
	if kafkaClient != nil {
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopic(ctx, cfg.Kafka.Topic, 3, 1); err != nil {
			log.Warn("could not ensure notification topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		pub = publisher.NewKafka(kafkaClient, cfg.Kafka.Topic)
		checks["kafka"] = kafkaClient.Health
	}

	httpMetrics := metrics.New()
	events := notification.NewOutbox(st.outbox)
	tokens := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	candidates := candidateservice.New(st.candidates, candidateservice.WithLogger(log))
	staff := staffservice.New(st.staff,
		staffservice.WithLogger(log),
		staffservice.WithTokenIssuer(tokens, cfg.Auth.TokenTTL),
	)
	if err := bootstrapAdmin(ctx, staff, cfg.Auth, log); err != nil {
		return err
	}

	exams := examservice.New(st.exams, st.runner, candidates, staff,
		examservice.WithLogger(log),
		examservice.WithMetrics(exammetrics.New()),
		examservice.WithEvents(events),
		examservice.WithConfig(examservice.Config{
			PassThreshold: cfg.Exam.PassThreshold,
			Window:        exammodels.Window{OpensBefore: cfg.Exam.OpensBefore, ClosesAfter: cfg.Exam.ClosesAfter},
		}),
	)

	paymentOpts := []paymentservice.Option{
		paymentservice.WithLogger(log),
		paymentservice.WithMetrics(paymentmetrics.New()),
		paymentservice.WithEvents(events),
	}
	if cfg.Midtrans.ServerKey != "" {
		paymentOpts = append(paymentOpts, paymentservice.WithGateway(gateway.NewMidtrans(cfg.Midtrans.ServerKey, cfg.Midtrans.Production)))
	}
	payments := paymentservice.New(st.payments, st.runner, candidates, staff, paymentOpts...)

	evaluator := eligibility.New(candidates, exams, payments,
		eligibility.WithLogger(log),
		eligibility.WithMetrics(eligibilitymetrics.New()),
		eligibility.WithTracer(otel.Tracer("licensing/eligibility")),
	)

	photos, err := photoSource(cfg, redisClient, mongoDB, log)
	if err != nil {
		return err
	}
	licenses := licenseservice.New(st.licenses, st.runner, candidates, staff, evaluator, payments,
		licenseservice.WithLogger(log),
		licenseservice.WithMetrics(licensemetrics.New()),
		licenseservice.WithTracer(otel.Tracer("licensing/license")),
		licenseservice.WithEvents(events),
		licenseservice.WithConfig(licenseservice.Config{
			Jurisdiction:   cfg.License.Jurisdiction,
			ValidityYears:  cfg.License.ValidityYears,
			InitialPoints:  cfg.License.InitialPoints,
			DefaultClass:   cfg.License.DefaultClass,
			NumberAttempts: cfg.License.NumberAttempts,
		}),
		licenseservice.WithRenderer(artifact.NewRenderer(cfg.License.Authority, []byte(cfg.License.QRSigningKey))),
		licenseservice.WithPhotos(photos),
	)

	dashboard := admin.New(st.dashboardSource(admin.ServiceSource{
		Candidates: candidates,
		Exams:      exams,
		Payments:   payments,
		Licenses:   licenses,
	}), admin.WithLogger(log))

	limiter, sweeper := rateLimiter(cfg.RateLimit, redisClient, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        httpMetrics,
		Tokens:         tokens,
		RequireAuth:    cfg.Auth.RequireAuth,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      limiter,
		Checks:         checks,

		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Auth:           []httptransport.RouteRegistrar{staffhandler.New(staff, log)},
		API: []httptransport.RouteRegistrar{
			candidatehandler.New(candidates, log),
			examhandler.New(exams, log),
			paymenthandler.New(payments, log),
			eligibilityhandler.New(evaluator, log),
			licensehandler.New(licenses, log),
		},
		Admin: []httptransport.RouteRegistrar{adminhandler.New(dashboard, log)},
	})

	worker := notification.NewWorker(st.outbox, pub, st.runner,
		notification.WithWorkerLogger(log),
		notification.WithWorkerMetrics(notificationmetrics.New()),
		notification.WithBatchSize(cfg.Kafka.BatchSize),
		notification.WithInterval(cfg.Kafka.Interval),
	)

	srv := httpserver.New(cfg.Server.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting licensing", "addr", cfg.Server.Addr, "postgres", st.db != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweeper(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// photoSource routes URL refs through the HTTP fetcher and gridfs refs to
// Mongo, with an optional Redis cache in front.
func photoSource(cfg config.Config, redisClient *redis.Client, db *mongodriver.Database, log *slog.Logger) (photo.Source, error) {
	opts := []photo.HTTPOption{photo.WithAllowedHosts(cfg.Photo.AllowedHosts)}
	if cfg.Photo.AllowPrivateNetworks {
		opts = append(opts, photo.WithPrivateNetworks())
	}
	router := photo.Router{HTTP: photo.NewHTTPSource(cfg.Photo.FetchTimeout, cfg.Photo.MaxBytes, opts...)}
	if db != nil {
		gridfs, err := photo.NewGridFSSource(db, cfg.Mongo.Bucket, cfg.Photo.MaxBytes)
		if err != nil {
			return nil, err
		}
		router.GridFS = gridfs
	}
	if redisClient == nil {
		return router, nil
	}
	return photo.NewRedisCache(redisClient.Client, router, cfg.Photo.CacheTTL, log), nil
}

// rateLimiter uses Redis as the shared window store with an in-memory
// fallback. Without Redis the in-memory store is primary and is swept
// periodically.
func rateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client, log *slog.Logger) (*ratelimit.Middleware, func(context.Context)) {
	memory := bucket.NewInMemory()
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(cfg.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithLimit(ratelimitmodels.ClassWrite, ratelimitmodels.Limit{Requests: cfg.Limit, Window: cfg.Window}),
	}

	var primary ratelimit.Store = memory
	if redisClient != nil {
		primary = bucket.NewRedis(redisClient.Client)
		opts = append(opts, ratelimit.WithFallback(memory))
	}

	window := max(cfg.Window, ratelimit.DefaultLimits()[ratelimitmodels.ClassAuth].Window)
	sweep := func(ctx context.Context) {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := memory.Sweep(window); n > 0 {
					log.Debug("rate limit windows swept", "keys", n)
				}
			}
		}
	}
	return ratelimit.New(primary, log, opts...), sweep
}

func bootstrapAdmin(ctx context.Context, staff *staffservice.Service, cfg config.Auth, log *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	st, err := staff.Create(ctx, staffservice.CreateRequest{
		Email:    cfg.BootstrapAdminEmail,
		Name:     "Bootstrap Admin",
		Role:     string(staffmodels.RoleAdmin),
		Password: cfg.BootstrapAdminPassword,
	})
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("bootstrap admin created", "staff_id", st.ID)
	return nil
}
