package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/config"
	"github.com/guzzle999/coinkept-backend/internal/handlers"
	"github.com/guzzle999/coinkept-backend/internal/middleware"
	"github.com/guzzle999/coinkept-backend/internal/repository"
	"github.com/guzzle999/coinkept-backend/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, cfg.DynamoDB.EmailIndex, logger)
	categoryRepo := repository.NewCategoryRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	transactionRepo := repository.NewTransactionRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	refreshStore, err := initRefreshTokenStore(cfg, dynamoClient, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize refresh token store")
	}

	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	passwordService := service.NewPasswordService(cfg.Auth.HashWorkers, logger)
	refreshTokenService := service.NewRefreshTokenService(refreshStore, jwtService, &cfg.JWT, logger)

	authHandlers := handlers.NewAuthHandlers(
		userRepo,
		categoryRepo,
		passwordService,
		jwtService,
		refreshTokenService,
		logger,
	)
	categoryHandlers := handlers.NewCategoryHandlers(categoryRepo, logger)
	transactionHandlers := handlers.NewTransactionHandlers(transactionRepo, logger)

	authMiddleware := middleware.NewAuthMiddleware(jwtService, userRepo, logger)
	router := setupRouter(cfg, authHandlers, categoryHandlers, transactionHandlers, authMiddleware, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweep(sweepCtx, refreshTokenService, cfg.Auth.SweepInterval, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initRefreshTokenStore(cfg *config.Config, dynamoClient *dynamodb.Client, logger *logrus.Logger) (service.RefreshTokenStore, error) {
	switch cfg.Auth.RefreshStore {
	case "dynamodb":
		logger.Info("Using DynamoDB refresh token store")
		return repository.NewDynamoRefreshTokenRepository(dynamoClient, cfg.DynamoDB.TableName, logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Using Redis refresh token store")
		return repository.NewRedisRefreshTokenRepository(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown refresh token store %q", cfg.Auth.RefreshStore)
	}
}

// runSweep removes expired refresh credentials on a fixed interval. It only
// touches already-expired rows, so it never contends with live verifies.
func runSweep(ctx context.Context, refreshTokenService *service.RefreshTokenService, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := refreshTokenService.Sweep(ctx); err != nil {
				logger.WithError(err).Warn("Refresh token sweep failed")
			}
		}
	}
}

func setupRouter(
	cfg *config.Config,
	authHandlers *handlers.AuthHandlers,
	categoryHandlers *handlers.CategoryHandlers,
	transactionHandlers *handlers.TransactionHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandlers.Register).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/refresh", authHandlers.Refresh).Methods("POST", "OPTIONS")
	auth.HandleFunc("/forgot-password", authHandlers.ForgotPassword).Methods("POST", "OPTIONS")

	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(authMiddleware.RequireAuth)
	authProtected.HandleFunc("/logout", authHandlers.Logout).Methods("POST")
	authProtected.HandleFunc("/logout-all", authHandlers.LogoutAll).Methods("POST")
	authProtected.HandleFunc("/me", authHandlers.Me).Methods("GET")

	transactions := api.PathPrefix("/transactions").Subrouter()
	transactions.Use(authMiddleware.RequireAuth)
	transactions.HandleFunc("", transactionHandlers.List).Methods("GET")
	transactions.HandleFunc("", transactionHandlers.Create).Methods("POST")
	transactions.HandleFunc("/statistics", transactionHandlers.Statistics).Methods("GET")
	transactions.HandleFunc("/categories/{type}", transactionHandlers.CategoryBreakdown).Methods("GET")
	transactions.HandleFunc("/{id}", transactionHandlers.Get).Methods("GET")
	transactions.HandleFunc("/{id}", transactionHandlers.Update).Methods("PUT")
	transactions.HandleFunc("/{id}", transactionHandlers.Delete).Methods("DELETE")

	categories := api.PathPrefix("/categories").Subrouter()
	categories.Use(authMiddleware.RequireAuth)
	categories.HandleFunc("", categoryHandlers.List).Methods("GET")
	categories.HandleFunc("", categoryHandlers.Create).Methods("POST")
	categories.HandleFunc("/{id}", categoryHandlers.Get).Methods("GET")
	categories.HandleFunc("/{id}", categoryHandlers.Update).Methods("PUT")
	categories.HandleFunc("/{id}", categoryHandlers.Delete).Methods("DELETE")

	return router
}
