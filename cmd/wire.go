package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/advisor"
	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	llmx "github.com/tanpawarit/shoptalk-assistant/agent/llm"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
	"github.com/tanpawarit/shoptalk-assistant/agent/voice"
	configx "github.com/tanpawarit/shoptalk-assistant/pkg/config"
	"github.com/tanpawarit/shoptalk-assistant/pkg/orderdb"
	qstashx "github.com/tanpawarit/shoptalk-assistant/pkg/qstash"
	"github.com/tanpawarit/shoptalk-assistant/server"
)

const (
	backendMemory  = "memory"
	backendRedis   = "redis"
	backendUpstash = "upstash"

	catalogREST   = "rest"
	catalogStatic = "static"
)

// AppConfig is the SHOPTALK_* block selecting which collaborators run.
type AppConfig struct {
	StateBackend  string        `split_words:"true" default:"memory" validate:"oneof=memory redis upstash"`
	SessionTTL    time.Duration `split_words:"true" default:"90m" validate:"gt=0"`
	KeyPrefix     string        `split_words:"true" default:"shoptalk:session:" validate:"required"`
	CatalogSource string        `split_words:"true" default:"rest" validate:"oneof=rest static"`
	EnableAdvisor bool          `split_words:"true" default:"false"`
	EnableVoice   bool          `split_words:"true" default:"false"`
	EnableOrders  bool          `split_words:"true" default:"false"`
	EnableEvents  bool          `split_words:"true" default:"false"`
}

func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid SHOPTALK config: %w", err)
	}
	return nil
}

type closer func() error

func buildCatalog(source string) (catalogx.Catalog, error) {
	if source == catalogStatic {
		return catalogx.NewStatic(catalogx.SampleProducts()...), nil
	}
	cfg, err := configx.New[catalogx.Config]("CATALOG")
	if err != nil {
		return nil, err
	}
	return catalogx.NewClient(*cfg)
}

func buildStore(ctx context.Context, app *AppConfig) (statex.Store, closer, error) {
	opts := []statex.StoreOption{
		statex.WithTTL(app.SessionTTL),
		statex.WithKeyPrefix(app.KeyPrefix),
	}
	noop := func() error { return nil }

	switch app.StateBackend {
	case backendUpstash:
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, nil, err
		}
		store, err := statex.NewUpstashRedisStore(*cfg, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case backendRedis:
		cfg, err := configx.New[statex.RedisConfig]("REDIS")
		if err != nil {
			return nil, nil, err
		}
		store, err := statex.NewRedisStore(*cfg, opts...)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return store, store.Close, nil
	default:
		log.Warn().Msg("using in-memory session store; state is lost on restart")
		return statex.NewMemoryStore(), noop, nil
	}
}

func buildServerOptions(ctx context.Context, app *AppConfig, httpCfg *server.Config, catalog catalogx.Catalog) ([]server.Option, []closer, error) {
	var (
		opts    []server.Option
		closers []closer
	)

	if app.EnableAdvisor {
		llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
		if err != nil {
			return nil, closers, err
		}
		adv, err := advisor.NewFromConfig(ctx, *llmCfg, catalog)
		if err != nil {
			return nil, closers, err
		}
		opts = append(opts, server.WithAdvisor(adv))
	}

	if app.EnableVoice {
		voiceCfg, err := configx.New[voice.Config]("VOICE")
		if err != nil {
			return nil, closers, err
		}
		tr, err := voice.NewOpenAITranscriber(*voiceCfg)
		if err != nil {
			return nil, closers, err
		}
		opts = append(opts, server.WithTranscriber(tr), server.WithMaxUploadSize(voiceCfg.MaxAudioSize))
	}

	var (
		orderStore server.OrderStore
		publisher  server.EventPublisher
	)
	if app.EnableOrders {
		dbCfg, err := configx.New[orderdb.Config]("ORDERS_DB")
		if err != nil {
			return nil, closers, err
		}
		db := orderdb.Open(*dbCfg)
		closers = append(closers, db.Close)
		repo := orderdb.NewRepository(db)
		if dbCfg.AutoMigrate {
			if err := repo.CreateSchema(ctx); err != nil {
				return nil, closers, err
			}
		}
		orderStore = repo
	}
	if app.EnableEvents {
		qCfg, err := configx.New[qstashx.Config]("QSTASH")
		if err != nil {
			return nil, closers, err
		}
		client, err := qstashx.NewClient(*qCfg)
		if err != nil {
			return nil, closers, err
		}
		if httpCfg.OrderEventsURL == "" {
			log.Warn().Msg("SHOPTALK_ENABLE_EVENTS set without HTTP_ORDER_EVENTS_URL; order events are not published")
		}
		publisher = client
	}
	if orderStore != nil || publisher != nil {
		opts = append(opts, server.WithOrderRecorder(server.NewOrderRecorder(orderStore, publisher, httpCfg.OrderEventsURL)))
	}

	return opts, closers, nil
}

func closeAll(closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
