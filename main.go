package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	configx "github.com/tanpawarit/sales-assistant/pkg/config"
	_ "github.com/tanpawarit/sales-assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/sales-assistant/pkg/openrouter"
	assistantx "github.com/tanpawarit/sales-assistant/sales/assistant"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	conversationx "github.com/tanpawarit/sales-assistant/sales/conversation"
	gatewayx "github.com/tanpawarit/sales-assistant/sales/gateway"
	llmx "github.com/tanpawarit/sales-assistant/sales/llm"
	profilex "github.com/tanpawarit/sales-assistant/sales/profile"
	sessionx "github.com/tanpawarit/sales-assistant/sales/session"
	storagex "github.com/tanpawarit/sales-assistant/sales/storage"
)

type AppConfig struct {
	UserName        string        `envconfig:"USER_NAME" split_words:"true" default:"Sales Rep"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"5s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("sales assistant stopped")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("APP")
	storageCfg := configx.MustNew[storagex.Config]("STORAGE")
	upstashCfg := configx.MustNew[storagex.UpstashRedisConfig]("UPSTASH_REDIS")
	postgresCfg := configx.MustNew[storagex.PostgresConfig]("POSTGRES")
	profileCfg := configx.MustNew[profilex.Config]("STORAGE")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	appwriteCfg := configx.MustNew[sessionx.AppwriteConfig]("APPWRITE")
	assistantCfg := configx.MustNew[assistantx.Config]("ASSISTANT")

	kv, err := storagex.Open(ctx, *storageCfg, *upstashCfg, *postgresCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}()

	profiles := profilex.New(kv, *profileCfg)
	profiles.Load(ctx)
	defer func() {
		// ctx may already be cancelled here.
		flushCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
		defer cancel()
		if err := profiles.Close(flushCtx); err != nil {
			log.Warn().Err(err).Msg("flush profiles")
		}
	}()

	chatModel, err := newChatModel(ctx, *llmCfg)
	if err != nil {
		return err
	}
	gateway, err := gatewayx.New(ctx, chatModel)
	if err != nil {
		return err
	}

	gate, err := newGate(*appwriteCfg, appCfg.UserName)
	if err != nil {
		return err
	}

	assistant, err := assistantx.New(profiles, conversationx.New(), gateway, *assistantCfg)
	if err != nil {
		return err
	}
	defer assistant.Close()

	log.Info().
		Str("storage", storageCfg.Backend).
		Str("provider", llmCfg.Provider).
		Str("model", llmCfg.ModelName()).
		Bool("gateway_enabled", gateway.Enabled()).
		Bool("appwrite", appwriteCfg.Enabled).
		Msg("sales assistant ready")

	return newConsole(assistant, gate, os.Stdin, os.Stdout).run(ctx)
}

// newChatModel returns a nil model, not an error, when no key is configured:
// the gateway then answers every request with an empty suggestion set.
func newChatModel(ctx context.Context, cfg llmx.Config) (einomodel.BaseChatModel, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if errors.Is(err, contractx.ErrCredentialMissing) {
		log.Warn().Str("provider", cfg.Provider).Msg("no llm api key configured, suggestions are disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Provider), llmx.ProviderOpenRouter) {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := openrouterx.Ping(pingCtx, cfg.OpenRouter()); err != nil {
			log.Warn().Err(err).Msg("openrouter ping failed")
		}
	}
	return chatModel, nil
}

func newGate(cfg sessionx.AppwriteConfig, userName string) (sessionx.Gate, error) {
	if !cfg.Enabled {
		return sessionx.NewLocal(userName), nil
	}
	return sessionx.NewAppwrite(cfg)
}
