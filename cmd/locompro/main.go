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

	"github.com/google/uuid"

	"github.com/locomproapp/locompro/internal/app/commands"
	buyrequestsapp "github.com/locomproapp/locompro/internal/app/handlers/buyrequests"
	chatsapp "github.com/locomproapp/locompro/internal/app/handlers/chats"
	offersapp "github.com/locomproapp/locompro/internal/app/handlers/offers"
	reviewsapp "github.com/locomproapp/locompro/internal/app/handlers/reviews"
	"github.com/locomproapp/locompro/internal/app/middleware"
	appoutbox "github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/queries"
	authsvc "github.com/locomproapp/locompro/internal/app/services/auth"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainauth "github.com/locomproapp/locompro/internal/domain/auth"
	domainuser "github.com/locomproapp/locompro/internal/domain/user"
	"github.com/locomproapp/locompro/internal/infra/broker/kafka"
	"github.com/locomproapp/locompro/internal/infra/config"
	mongodb "github.com/locomproapp/locompro/internal/infra/db/mongo"
	ginserver "github.com/locomproapp/locompro/internal/infra/http/gin"
	"github.com/locomproapp/locompro/internal/infra/obs"
	infraoutbox "github.com/locomproapp/locompro/internal/infra/outbox"
	"github.com/locomproapp/locompro/internal/infra/security"
	"github.com/locomproapp/locompro/internal/infra/storage/memory"
	"github.com/locomproapp/locompro/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Worker != nil {
		go func() {
			if err := app.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	obsMW := obs.Middleware{Logger: logger}
	health := obs.HealthHandlers{Checks: app.HealthChecks}
	srv := ginserver.NewServer(cfg, obsMW, health, app.Handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type application struct {
	Handlers     ginserver.Handlers
	HealthChecks map[string]obs.ReadinessCheck
	Worker       *infraoutbox.Worker

	producer *kafka.Producer
	logger   *slog.Logger
}

func (a *application) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		HealthChecks: map[string]obs.ReadinessCheck{},
		logger:       logger,
	}

	var (
		uowFactory  uow.UoWFactory
		outboxStore appoutbox.Outbox
		idemStore   middleware.IdempotencyStore
		users       domainuser.Repository
		sessions    domainauth.SessionStore
		eventStore  *infraoutbox.Store
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		buyRequests := mongodb.NewBuyRequestRepository(client.DB)
		offers := mongodb.NewOfferRepository(client.DB)
		chats := mongodb.NewChatRepository(client.DB)
		reviews := mongodb.NewReviewRepository(client.DB)
		userRepo := mongodb.NewUserRepository(client.DB)
		sessionStore := mongodb.NewSessionStore(client.DB)
		idempotency := mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		eventStore = infraoutbox.NewStore(client.DB)

		indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		for _, ensure := range []func(context.Context) error{
			offers.EnsureIndexes,
			chats.EnsureIndexes,
			reviews.EnsureIndexes,
			userRepo.EnsureIndexes,
			sessionStore.EnsureIndexes,
			idempotency.EnsureIndexes,
			eventStore.EnsureIndexes,
		} {
			if err := ensure(indexCtx); err != nil {
				return nil, err
			}
		}

		uowFactory = mongodb.Factory{
			DB:             client.DB,
			BuyRequestRepo: buyRequests,
			OfferRepo:      offers,
			ChatRepo:       chats,
			ReviewRepo:     reviews,
		}
		outboxStore = eventStore
		idemStore = idempotency
		users = userRepo
		sessions = sessionStore
		app.HealthChecks["mongo"] = client.Ping
		logger.Info("storage configured", "backend", "mongo", "database", cfg.MongoDB)
	} else {
		uowFactory = memory.Factory{
			BuyRequestRepo: memory.NewBuyRequestRepository(),
			OfferRepo:      memory.NewOfferRepository(),
			ChatRepo:       memory.NewChatRepository(),
			ReviewRepo:     memory.NewReviewRepository(),
		}
		outboxStore = memory.NewOutbox()
		idemStore = memory.NewIdempotencyStore()
		users = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		logger.Warn("MONGO_URI not set, using in-memory storage")
	}

	encoder := appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, buyrequestsapp.CreateCommand{}.Key(),
		&buyrequestsapp.CreateHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder})
	commands.RegisterHandler(commandBus, buyrequestsapp.UpdateCommand{}.Key(),
		&buyrequestsapp.UpdateHandler{UoWFactory: uowFactory})
	commands.RegisterHandler(commandBus, buyrequestsapp.CloseCommand{}.Key(),
		&buyrequestsapp.CloseHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder, Logger: logger})
	commands.RegisterHandler(commandBus, buyrequestsapp.DeleteCommand{}.Key(),
		&buyrequestsapp.DeleteHandler{UoWFactory: uowFactory})
	commands.RegisterHandler(commandBus, offersapp.SubmitOfferCommand{}.Key(),
		&offersapp.SubmitOfferHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder})
	commands.RegisterHandler(commandBus, offersapp.AcceptOfferCommand{}.Key(),
		&offersapp.AcceptOfferHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder, Logger: logger})
	commands.RegisterHandler(commandBus, offersapp.RejectOfferCommand{}.Key(),
		&offersapp.RejectOfferHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder})
	commands.RegisterHandler(commandBus, offersapp.CounterOfferCommand{}.Key(),
		&offersapp.CounterOfferHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder})
	commands.RegisterHandler(commandBus, offersapp.DeleteOfferCommand{}.Key(),
		&offersapp.DeleteOfferHandler{UoWFactory: uowFactory, Outbox: outboxStore, Encoder: encoder})
	commands.RegisterHandler(commandBus, chatsapp.SendMessageCommand{}.Key(),
		&chatsapp.SendMessageHandler{UoWFactory: uowFactory})
	commands.RegisterHandler(commandBus, reviewsapp.SubmitCommand{}.Key(),
		&reviewsapp.SubmitHandler{UoWFactory: uowFactory})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, buyrequestsapp.GetQuery{}.Key(),
		&buyrequestsapp.GetHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, buyrequestsapp.SearchQuery{}.Key(),
		&buyrequestsapp.SearchHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, offersapp.ListOffersQuery{}.Key(),
		&offersapp.ListOffersHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, chatsapp.ListMyChatsQuery{}.Key(),
		&chatsapp.ListMyChatsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, chatsapp.ListMessagesQuery{}.Key(),
		&chatsapp.ListMessagesHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, reviewsapp.ListForUserQuery{}.Key(),
		&reviewsapp.ListForUserHandler{UoWFactory: uowFactory})

	dispatcher := middleware.ChainCommands(commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idemStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	asker := middleware.ChainQueries(queryBus)

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	var images s3.ImageStore = s3.Disabled{}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		store, err := s3.NewStore(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("object storage unavailable, uploads disabled", "error", err)
		} else {
			images = store
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		if eventStore == nil {
			logger.Warn("KAFKA_BROKERS set but event delivery requires Mongo, skipping outbox worker")
		} else {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, err
			}
			app.producer = producer
			app.Worker = &infraoutbox.Worker{
				Store:       eventStore,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			logger.Info("outbox worker configured", "brokers", cfg.KafkaBrokers, "interval", cfg.OutboxPollInterval)
		}
	}

	app.Handlers = ginserver.Handlers{
		BuyRequest:     ginserver.BuyRequestHandler{Commands: dispatcher, Queries: asker, Logger: logger},
		Offer:          ginserver.OfferHandler{Commands: dispatcher, Queries: asker, Logger: logger},
		Chat:           ginserver.ChatHandler{Commands: dispatcher, Queries: asker, Logger: logger},
		Review:         ginserver.ReviewHandler{Commands: dispatcher, Queries: asker, Logger: logger},
		Upload:         ginserver.UploadHandler{Images: images, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	return app, nil
}
