package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/chat/store"
	"github.com/sweetpotato0/tandem/config"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/tandem/credential"
	"github.com/sweetpotato0/tandem/middleware"
	"github.com/sweetpotato0/tandem/middleware/errorhandler"
	"github.com/sweetpotato0/tandem/middleware/limiter"
	"github.com/sweetpotato0/tandem/middleware/logger"
	"github.com/sweetpotato0/tandem/middleware/validator"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/pkg/telemetry"
	"github.com/sweetpotato0/tandem/scenario"
	"github.com/sweetpotato0/tandem/tutor"
)

// app holds the services shared by every command.
type app struct {
	tutor       *tutor.Tutor
	credentials *credential.Resolver
	chats       *chat.Service
	scenarios   *scenario.Service

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, withStore bool) (*app, error) {
	log := logging.WithComponent("tandem")
	a := &app{}

	shutdown, err := telemetry.Init(ctx, telemetry.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	credStore, err := openCredentialStore(ctx, cfg.CredentialStore)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if closer, ok := credStore.(*credential.RedisStore); ok {
		a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
	}
	a.credentials = credential.NewResolver(credStore, credential.DefaultsFromEnv())

	opts := []tutor.Option{
		tutor.WithCredentials(a.credentials),
		tutor.WithDefaultModel(cfg.DefaultModel),
		tutor.WithProviderOptions(provider.Options{
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}),
		tutor.WithMiddlewares(middlewares(cfg)...),
	}
	if tok, err := tiktoken.Default(); err != nil {
		log.Warn("token counting disabled", "error", err)
	} else {
		opts = append(opts, tutor.WithTokenCounter(tok))
	}
	a.tutor = tutor.New(opts...)
	a.scenarios = scenario.NewService(a.tutor, nil)

	if withStore {
		chats, err := store.Open(cfg.Store)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return chats.Close() })
		a.chats = chat.NewService(chats, a.tutor, nil)
		log.Info("chat store ready", "store", cfg.Store)
	}
	return a, nil
}

// middlewares wraps every generation: errors are annotated with the action,
// requests are logged, oversized input is rejected and concurrency is capped.
func middlewares(cfg *config.Config) []middleware.Middleware {
	return []middleware.Middleware{
		errorhandler.NewErrorHandler(errorhandler.AnnotateAction),
		logger.NewRequestLogger(nil),
		validator.NewInputValidator(validator.MaxLength(cfg.MaxInputLength)),
		limiter.NewConcurrencyLimiter(cfg.MaxConcurrent),
		logger.NewResponseLogger(nil),
	}
}

func openCredentialStore(ctx context.Context, kind string) (credential.Store, error) {
	if kind != config.StoreRedis {
		return credential.NewInMemoryStore(), nil
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	prefix := os.Getenv("REDIS_CREDENTIAL_PREFIX")
	if prefix == "" {
		prefix = "tandem:credential:"
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	if err := config.ValidateRedisConfig(addr, db, prefix); err != nil {
		return nil, err
	}

	s := credential.NewRedisStore(&credential.RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Prefix:   prefix,
	})
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
