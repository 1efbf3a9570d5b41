package main

import (
	"context"
	"time"

	"github.com/gabapcia/walletcore/internal/handlers/cli"
	enginejsonrpc "github.com/gabapcia/walletcore/internal/infra/engine/jsonrpc"
	"github.com/gabapcia/walletcore/internal/infra/storage/keyfile"
	"github.com/gabapcia/walletcore/internal/infra/storage/redis"
	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/pkg/resilience/retry"
	"github.com/gabapcia/walletcore/internal/pkg/telemetry"
	transporthttp "github.com/gabapcia/walletcore/internal/pkg/transport/http"
	"github.com/gabapcia/walletcore/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/walletcore/internal/pkg/validation"
	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
	"github.com/gabapcia/walletcore/internal/walletview"

	"github.com/kelseyhightower/envconfig"
)

// config holds all environment-driven settings.
type config struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	KeyfilePath       string `envconfig:"KEYFILE_PATH" required:"true"`
	KeyfilePassphrase string `envconfig:"KEYFILE_PASSPHRASE" required:"true"`

	EngineEndpoint     string        `envconfig:"ENGINE_ENDPOINT" required:"true"`
	EnginePollInterval time.Duration `envconfig:"ENGINE_POLL_INTERVAL" default:"2s"`

	ViewGracePeriod time.Duration `envconfig:"VIEW_GRACE_PERIOD" default:"5s"`
}

func main() {
	ctx := context.Background()

	var cfg config
	envconfig.MustProcess("", &cfg)

	if err := logger.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, "walletcore")
		if err != nil {
			logger.Fatal(ctx, "failed to initialize telemetry", "error", err)
		}
		defer shutdown(ctx)
	}

	validation.Init()

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal(ctx, "failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	secretStore := keyfile.New(cfg.KeyfilePath, []byte(cfg.KeyfilePassphrase))

	vault := secretvault.New(secretStore, redisClient, redisClient,
		secretvault.WithRetry(retry.New()),
	)
	if err := vault.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start the secret vault", "error", err)
	}
	defer vault.Close()

	rpcClient := jsonrpc.NewClient(
		transporthttp.NewClient().StandardClient(),
		cfg.EngineEndpoint,
	)
	engine := enginejsonrpc.NewEngine(rpcClient,
		enginejsonrpc.WithPollInterval(cfg.EnginePollInterval),
	)

	coordinator := walletsync.New(engine, vault)
	if err := coordinator.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start the wallet coordinator", "error", err)
	}
	defer coordinator.Close()

	view := walletview.New(coordinator,
		walletview.WithGracePeriod(cfg.ViewGracePeriod),
	)
	defer view.Close()

	if err := cli.Run(ctx, vault, coordinator, view); err != nil {
		logger.Fatal(ctx, "execution failed", "error", err)
	}
}
