package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"brokerage-backoffice/internal/adapters/crm_client"
	"brokerage-backoffice/internal/adapters/inmemory"
	logger_adapter "brokerage-backoffice/internal/adapters/logger"
	"brokerage-backoffice/internal/adapters/notifier"
	postgres_adapter "brokerage-backoffice/internal/adapters/postgres"
	rabbitmq_adapter "brokerage-backoffice/internal/adapters/rabbitmq"
	"brokerage-backoffice/internal/adapters/redis_cache"
	"brokerage-backoffice/internal/adapters/rest"
	"brokerage-backoffice/internal/configs"
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/contracts"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/store"
	"brokerage-backoffice/internal/core/usecase"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *configs.AppConfig
	apiServer   *rest.Server
	sseNotifier *notifier.SSENotifier
	leads       *usecase.LeadService

	dbPool        *pgxpool.Pool
	rabbitManager *rabbitmq_adapter.ConnectionManager
	rabbitPub     *rabbitmq_adapter.Publisher
	redisClient   *redis.Client

	logger       port.LoggerPort
	fluentClient *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ЛОГГЕРЫ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = logger_adapter.NewFluentClient(logger_adapter.FluentConfig{
			Host: appConfig.FluentBit.Host,
			Port: appConfig.FluentBit.Port,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, appConfig.AppName, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	application := &App{
		config:       appConfig,
		logger:       appLogger,
		fluentClient: fluentClient,
	}

	// --- 2. ИНФРАСТРУКТУРА ---
	crmClient := crm_client.NewClient(appConfig.RemoteAPI.BaseURL, appConfig.RemoteAPI.Token, appConfig.RemoteAPI.Timeout)
	appLogger.Info("Remote CRM client configured", port.Fields{"base_url": appConfig.RemoteAPI.BaseURL})

	journal, err := application.initJournal(baseLogger)
	if err != nil {
		application.closeResources()
		return nil, err
	}

	var publisher port.EventPublisherPort
	if appConfig.RabbitMQ.URL != "" {
		eventPublisher, err := application.initPublisher(baseLogger)
		if err != nil {
			application.closeResources()
			return nil, err
		}
		publisher = eventPublisher
	} else {
		appLogger.Info("RABBITMQ_URL is not set, CRM events are not published", nil)
	}

	var listingCache port.ListingCachePort
	if appConfig.Redis.Addr != "" {
		cache, err := application.initListingCache()
		if err != nil {
			application.closeResources()
			return nil, err
		}
		listingCache = cache
	} else {
		appLogger.Info("REDIS_ADDR is not set, listing cache disabled", nil)
	}

	schemaValidator, err := contracts.NewSchemaValidator()
	if err != nil {
		appLogger.Error("Failed to compile listing schemas", err, nil)
		application.closeResources()
		return nil, fmt.Errorf("failed to compile listing schemas: %w", err)
	}

	application.sseNotifier = notifier.NewSSENotifier(baseLogger)
	appLogger.Info("SSE Notifier initialized.", nil)

	// --- 3. ЯДРО ---
	pipelineStore := store.NewPipelineStore(crmClient, crmClient, application.sseNotifier, publisher)
	boardService := usecase.NewBoardService(pipelineStore)
	dealRegistry := usecase.NewDealDetailRegistry(crmClient, crmClient, pipelineStore, publisher, appConfig.Board.Location)
	dealRegistry.SetIdleTTL(appConfig.Board.DealIdleTTL)
	stageEditor := usecase.NewStageConfigEditor(pipelineStore, crmClient, appConfig.Board.StageSaveConcurrency)
	application.leads = usecase.NewLeadService(crmClient, crmClient, journal, pipelineStore, publisher)
	listingService := usecase.NewListingService(crmClient, listingCache, schemaValidator)
	favoritesService := usecase.NewFavoritesService(crmClient, crmClient)
	appLogger.Info("All use cases initialized.", nil)

	// --- 4. REST API ---
	handlers := rest.Handlers{
		Board:       rest.NewBoardHandler(boardService, application.sseNotifier),
		Deals:       rest.NewDealHandler(dealRegistry),
		StageConfig: rest.NewStageConfigHandler(stageEditor, pipelineStore),
		Leads:       rest.NewLeadHandler(application.leads),
		Listings:    rest.NewListingHandler(listingService),
		Favorites:   rest.NewFavoritesHandler(favoritesService),
	}
	router := rest.NewRouter(handlers, appConfig.Rest.CORSAllowedOrigins, baseLogger)
	application.apiServer = rest.NewServer(appConfig.Rest.Port, router, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	return application, nil
}

// initJournal: при заданном DATABASE_URL журнал конвертаций хранится в Postgres, иначе в памяти.
func (a *App) initJournal(baseLogger port.LoggerPort) (port.ConversionJournalPort, error) {
	if a.config.Database.URL == "" {
		a.logger.Warn("DATABASE_URL is not set, conversion journal is kept in memory", nil)
		return inmemory.NewConversionJournal(), nil
	}

	ctx := contextkeys.ContextWithLogger(context.Background(), baseLogger)
	dbPool, err := postgres_adapter.NewClient(ctx, postgres_adapter.Config{DatabaseURL: a.config.Database.URL})
	if err != nil {
		a.logger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.dbPool = dbPool
	a.logger.Info("Successfully connected to PostgreSQL pool!", nil)

	journal, err := postgres_adapter.NewConversionJournal(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion journal: %w", err)
	}
	if err := journal.EnsureSchema(ctx); err != nil {
		a.logger.Error("Failed to prepare conversion journal schema", err, nil)
		return nil, fmt.Errorf("failed to prepare conversion journal schema: %w", err)
	}
	return journal, nil
}

func (a *App) initPublisher(baseLogger port.LoggerPort) (*rabbitmq_adapter.EventPublisher, error) {
	managerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
	manager, err := rabbitmq_adapter.NewConnectionManager(a.config.RabbitMQ.URL, managerLogger)
	if err != nil {
		a.logger.Error("Failed to create connection manager", err, nil)
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.rabbitManager = manager

	pub, err := rabbitmq_adapter.NewPublisher(rabbitmq_adapter.PublisherConfig{
		ExchangeName: a.config.RabbitMQ.Exchange,
		Durable:      true,
	}, manager, baseLogger.WithFields(port.Fields{"component": "rabbitmq_publisher"}))
	if err != nil {
		a.logger.Error("Failed to create RabbitMQ publisher", err, nil)
		return nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
	}
	a.rabbitPub = pub

	eventPublisher, err := rabbitmq_adapter.NewEventPublisher(pub, "crm")
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	a.logger.Info("RabbitMQ event publisher initialized.", port.Fields{"exchange": a.config.RabbitMQ.Exchange})
	return eventPublisher, nil
}

func (a *App) initListingCache() (*redis_cache.ListingCache, error) {
	client, err := redis_cache.NewClient(context.Background(), a.config.Redis.Addr, a.config.Redis.Password, a.config.Redis.DB)
	if err != nil {
		a.logger.Error("Failed to connect to Redis", err, nil)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.redisClient = client

	cache, err := redis_cache.NewListingCache(client, a.config.Redis.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing cache: %w", err)
	}
	a.logger.Info("Redis listing cache initialized.", port.Fields{"ttl": a.config.Redis.TTL.String()})
	return cache, nil
}

func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	appCtx = contextkeys.ContextWithLogger(appCtx, a.logger)

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		// потоки SSE завершаются по закрытию нотификатора, иначе Shutdown ждал бы их до таймаута
		if a.sseNotifier != nil {
			a.sseNotifier.Close()
		}
		if a.apiServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.apiServer.Stop(ctx); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
			cancel()
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()

		a.closeResources()
		a.logger.Info("Application shut down gracefully.", nil)
		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 1)

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.Port})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("HTTP server start error: %w", err)
		}
	}()

	if a.config.Board.RecoverOnStartup {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recovered, err := a.leads.RecoverConversions(appCtx)
			if err != nil {
				a.logger.Warn("Some lead conversions could not be recovered", port.Fields{"error": err.Error()})
			}
			if recovered > 0 {
				a.logger.Info("Interrupted lead conversions recovered", port.Fields{"recovered": recovered})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
		cancelApp()
		return err
	}

	cancelApp()
	return nil
}

// closeResources закрывает инфраструктуру. Безопасно вызывать с частично собранным App.
func (a *App) closeResources() {
	if a.rabbitPub != nil {
		if err := a.rabbitPub.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ publisher", err, nil)
		}
	}
	if a.rabbitManager != nil {
		if err := a.rabbitManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Error closing Redis client", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
