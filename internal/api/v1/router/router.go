package router

import (
	"context"
	"encoding/json"
	"net/http"

	"app/internal/api/v1/handler"
	"app/internal/cache"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New builds the HTTP handler tree and the backing store. The store connects
// in the background; until it reports ready, API routes answer 503 so load
// balancers and webhook providers retry instead of hitting a half-built app.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *store.Store, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initialized")

	// 1. Build the store and start connecting without blocking startup.
	st, err := store.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	st.Connect(context.Background())

	// 2. Redis cache, optional: a nil cache is a no-op.
	lessonCache, err := cache.New(context.Background(), cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, continuing without lesson cache")
		lessonCache = nil
	}

	// 3. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize Pub/Sub publisher, optional in local development.
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(context.Background(), cfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("GCP project not configured, moderation events disabled")
	}

	// 6. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(st.Pool)
	paymentRepo := repository.NewPaymentRepo(st.Pool)
	lessonRepo := repository.NewLessonRepo(st.Pool)
	commentRepo := repository.NewCommentRepo(st.Pool)
	reportRepo := repository.NewReportRepo(st.Pool)

	entitlementSvc := service.NewEntitlementService(userRepo, paymentRepo, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, entitlementSvc, logger)
	userSvc := service.NewUserService(userRepo, s3Client, cfg.S3Bucket, logger)
	lessonSvc := service.NewLessonService(lessonRepo, lessonCache, s3Client, cfg.S3Bucket, logger)
	commentSvc := service.NewCommentService(commentRepo, lessonRepo, logger)
	reportSvc := service.NewReportService(reportRepo, lessonRepo, publisher, cfg.ModerationTopicName, logger)

	userHandler := handler.NewUserHandler(userSvc, lessonSvc, validate)
	lessonHandler := handler.NewLessonHandler(lessonSvc, commentSvc, reportSvc, userSvc, validate)
	commentHandler := handler.NewCommentHandler(commentSvc, userSvc, validate)
	paymentHandler := handler.NewPaymentHandler(stripeSvc, entitlementSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(userSvc, validate, logger)

	// 7. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 8. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	lessonHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	commentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	paymentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1, gated on store readiness.
	mux.Handle("/v1/", http.StripPrefix("/v1", middleware.RequireReady(st)(apiV1Mux)))

	// Health probe stays outside the readiness gate so orchestrators can
	// distinguish "starting" from "dead".
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "ready": st.Ready()})
	})

	// 9. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), st, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
