package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stylocore/catalog-api/internal/handlers"
	"github.com/stylocore/catalog-api/internal/platform/auth"
	"github.com/stylocore/catalog-api/internal/platform/config"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/platform/idempotency"
	"github.com/stylocore/catalog-api/internal/platform/jobs"
	"github.com/stylocore/catalog-api/internal/platform/observability"
	"github.com/stylocore/catalog-api/internal/platform/requestctx"
	"github.com/stylocore/catalog-api/internal/platform/secrets"
	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
	"github.com/stylocore/catalog-api/internal/repositories"
	firestoreRepo "github.com/stylocore/catalog-api/internal/repositories/firestore"
	"github.com/stylocore/catalog-api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("catalog")
	ctx = requestctx.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageOpts := []pstorage.BlobStoreOption{}
	if host := strings.TrimSpace(cfg.Storage.EmulatorHost); host != "" {
		if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
			_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		}
		storageOpts = append(storageOpts, pstorage.WithDownloadHost(emulatorURL(host)))
	}
	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	blobStore, err := pstorage.NewBlobStore(storageClient, cfg.Storage.Bucket, storageOpts...)
	if err != nil {
		logger.Fatal("failed to initialise blob store", zap.Error(err))
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(verifier,
		auth.WithRoleClaim(cfg.Security.RoleClaim),
		auth.WithAdminRole(cfg.Security.AdminRole),
	)

	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	categoryRepo, err := firestoreRepo.NewCategoryRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise category repository", zap.Error(err))
	}
	couponRepo, err := firestoreRepo.NewCouponRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise coupon repository", zap.Error(err))
	}
	bookingRepo, err := firestoreRepo.NewBookingRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise booking repository", zap.Error(err))
	}

	assetLogger := observability.NewEventLogger(logger, "assets")
	productUploader, err := services.NewAssetUploader(services.AssetUploaderDeps{
		Store:         blobStore,
		Prefix:        cfg.Storage.ProductPrefix,
		Purpose:       pstorage.PurposeProductImage,
		MaxConcurrent: cfg.Uploads.MaxConcurrent,
		Logger:        assetLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise product uploader", zap.Error(err))
	}
	galleryUploader, err := services.NewAssetUploader(services.AssetUploaderDeps{
		Store:         blobStore,
		Prefix:        cfg.Storage.GalleryPrefix,
		Purpose:       pstorage.PurposeGalleryImage,
		MaxConcurrent: cfg.Uploads.MaxConcurrent,
		Logger:        assetLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise gallery uploader", zap.Error(err))
	}

	gallerySvc, err := services.NewGalleryService(services.GalleryServiceDeps{Uploader: galleryUploader})
	if err != nil {
		logger.Fatal("failed to initialise gallery service", zap.Error(err))
	}

	var publisher services.CatalogEventPublisher
	if cfg.Events.Enabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(cfg.Events.TopicID)
		defer topic.Stop()
		pubsubPublisher, err := jobs.NewPubSubCatalogPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise catalog publisher", zap.Error(err))
		}
		publisher = pubsubPublisher
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:  productRepo,
		Uploader:  productUploader,
		Gallery:   gallerySvc,
		Publisher: publisher,
		Clock:     time.Now,
		Logger:    observability.NewEventLogger(logger, "catalog"),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    orderRepo,
		Publisher: publisher,
		Clock:     time.Now,
		Logger:    observability.NewEventLogger(logger, "orders"),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	categorySvc, err := services.NewCategoryService(services.CategoryServiceDeps{Categories: categoryRepo})
	if err != nil {
		logger.Fatal("failed to initialise category service", zap.Error(err))
	}
	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{Coupons: couponRepo})
	if err != nil {
		logger.Fatal("failed to initialise coupon service", zap.Error(err))
	}
	bookingSvc, err := services.NewBookingService(services.BookingServiceDeps{
		Bookings: bookingRepo,
		Logger:   observability.NewEventLogger(logger, "bookings"),
	})
	if err != nil {
		logger.Fatal("failed to initialise booking service", zap.Error(err))
	}

	systemSvc, err := newSystemService(firestoreClient, storageClient.Bucket(cfg.Storage.Bucket), fetcher, buildInfo)
	if err != nil {
		logger.Fatal("failed to initialise system service", zap.Error(err))
	}

	adminRoutes := handlers.NewAdminRoutes(handlers.AdminServices{
		Catalog:    catalogSvc,
		Gallery:    gallerySvc,
		Categories: categorySvc,
		Coupons:    couponSvc,
		Orders:     orderSvc,
		Bookings:   bookingSvc,
	}, handlers.UploadLimitsFromConfig(cfg.Uploads))

	adminMiddlewares := []func(http.Handler) http.Handler{authenticator.RequireAdmin()}
	if cfg.Replay.Enabled {
		replayStore, err := idempotency.NewFirestoreStore(firestoreProvider, cfg.Replay.Collection)
		if err != nil {
			logger.Fatal("failed to initialise idempotency store", zap.Error(err))
		}
		replayOpts := []idempotency.MiddlewareOption{
			idempotency.WithTTL(cfg.Replay.TTL),
			idempotency.WithMaxBodyBytes(int64(cfg.Uploads.MaxFiles)*cfg.Uploads.MaxFileBytes + 1<<20),
			idempotency.WithLogger(observability.NewEventLogger(logger, "idempotency")),
		}
		if cfg.Replay.RequireKey {
			replayOpts = append(replayOpts, idempotency.WithRequiredKey())
		}
		adminMiddlewares = append(adminMiddlewares, idempotency.Middleware(replayStore, replayOpts...))
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(traceProjectID(cfg)),
			observability.RecoveryMiddleware(logger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(buildInfo),
			handlers.WithHealthSystemService(systemSvc),
		)),
		handlers.WithAdminMiddlewares(adminMiddlewares...),
		handlers.WithAdminRoutes(adminRoutes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("stylocore catalog api listening", zap.Bool("events", publisher != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["CATALOG_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["CATALOG_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(client *firestore.Client, bucket *cloudstorage.BucketHandle, fetcher *secrets.Fetcher, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 3)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if bucket != nil {
		b := bucket
		checks = append(checks, repositories.DependencyCheck{
			Name:    "storage",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				_, err := b.Attrs(ctx)
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func emulatorURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("CATALOG_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("CATALOG_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("CATALOG_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("CATALOG_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists config fields that must resolve to a value when they are given as
// secret references.
func requiredSecretNames(env map[string]string) []string {
	if env == nil {
		return nil
	}
	var required []string
	raw := strings.TrimSpace(env["CATALOG_FIREBASE_CREDENTIALS_JSON"])
	if strings.HasPrefix(raw, "secret://") || strings.HasPrefix(raw, "sm://") {
		required = append(required, "Firebase.CredentialsJSON")
	}
	return required
}
