/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the padel slot settlement server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, SLOTENGINE_* env, .env, config file)
  2. Build the zap logger
  3. Open the SQLite store
  4. Select the slot lock (in-process or Redis)
  5. Create the settlement engine
  6. Configure HTTP router
  7. Start the expiry sweep
  8. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  --port           HTTP server port (default: 8080)
  --db             SQLite database path (default: slots.db)
                   Use ":memory:" for in-memory database
  --config         Optional YAML/JSON/TOML config file
  --lock-backend   "local" or "redis"
  --redis-addr     Redis address for the redis lock
  --log-level      debug, info, warn, error
  --no-scenarios   Disable the demo scenario endpoints

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the expiry sweep
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection and flush logs

EXAMPLES:
  # Run with file database
  ./server --db="./data/slots.db"

  # Run two instances sharing a Redis lock
  SLOTENGINE_LOCK_BACKEND=redis ./server --redis-addr=localhost:6379

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/slot-engine/api"
	"github.com/warp/slot-engine/config"
	"github.com/warp/slot-engine/lock"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/store/sqlite"
)

const (
	flagPort        = "port"
	flagDB          = "db"
	flagConfig      = "config"
	flagLockBackend = "lock-backend"
	flagRedisAddr   = "redis-addr"
	flagLogLevel    = "log-level"
	flagNoScenarios = "no-scenarios"

	shutdownTimeout = 30 * time.Second
)

// flag name -> config key
var flagKeys = map[string]string{
	flagPort:        "port",
	flagDB:          "db_path",
	flagLockBackend: "lock.backend",
	flagRedisAddr:   "redis.addr",
	flagLogLevel:    "log.level",
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "slot-engine: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var cfg config.Config
	cmd := &cobra.Command{
		Use:           "slot-engine",
		Short:         "Padel slot enrollment and settlement server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			configFile, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			cfg, err = config.Load(v, configFile)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			noScenarios, err := cmd.Flags().GetBool(flagNoScenarios)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, !noScenarios)
		},
	}

	cmd.Flags().Int(flagPort, 8080, "HTTP server port")
	cmd.Flags().String(flagDB, "slots.db", "SQLite database path")
	cmd.Flags().String(flagConfig, "", "config file (yaml, json or toml)")
	cmd.Flags().String(flagLockBackend, config.LockLocal, "slot lock backend: local or redis")
	cmd.Flags().String(flagRedisAddr, "localhost:6379", "Redis address for the redis lock backend")
	cmd.Flags().String(flagLogLevel, "info", "log level")
	cmd.Flags().Bool(flagNoScenarios, false, "disable the demo scenario endpoints")

	return cmd
}

func run(ctx context.Context, cfg config.Config, scenarios bool) error {
	logger, flush, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer flush()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	locker, closeLocker, err := newLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	engine, err := settlement.New(store,
		settlement.WithLocker(locker),
		settlement.WithLockTimeout(cfg.Lock.Timeout),
		settlement.WithOperationLogger(logging.NewOperationLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	handler := api.NewHandler(engine, store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Scenarios:      scenarios,
	})

	scheduler := api.NewExpiryScheduler(engine, logger)
	scheduler.Enabled = cfg.Expiry.Enabled
	scheduler.CheckInterval = cfg.Expiry.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("lock", cfg.Lock.Backend),
			zap.Bool("scenarios", scenarios),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLocker(cfg config.Config, logger *zap.Logger) (lock.Locker, func(), error) {
	if cfg.Lock.Backend != config.LockRedis {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	locker := lock.NewRedis(client, lock.WithTTL(cfg.Lock.TTL))
	locker.OnReleaseError = func(key string, err error) {
		logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
	return locker, func() { client.Close() }, nil
}
