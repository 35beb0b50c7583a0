package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/cache"
	"github.com/spigell/internship-recommender/internal/matching"
	"github.com/spigell/internship-recommender/internal/reload"
	"github.com/spigell/internship-recommender/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is :5000)")
	serveCmd.Flags().String("reload", "", "cron spec for reloading the dataset, e.g. \"@every 1h\". Default is unset.")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("data.reload", serveCmd.Flags().Lookup("reload"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	logger.Info("starting the internship-recommender", zap.String("version", version))

	holder := reload.NewHolder(mustEngine(ctx, config, logger))

	scheduler := reload.NewScheduler(holder, func(ctx context.Context) (*matching.Engine, error) {
		return loadEngine(ctx, config, logger)
	}, config.Data.Reload, logger)

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("starting the reload scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	responses := newCache(ctx, config.Cache, logger)

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(*config.Server, holder,
		server.WithCache(responses, config.Cache.TTL),
		server.WithVersion(version),
		server.WithLogger(logger),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("serving http", zap.Error(err))
		return
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

// newCache connects to redis when configured. Without redis responses are computed on every request.
func newCache(ctx context.Context, cfg *CacheConfig, logger *zap.Logger) cache.Cache {
	if cfg == nil || cfg.RedisURL == "" {
		logger.Info("response cache disabled")
		return cache.Nop{}
	}

	r, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis is unavailable, response cache disabled", zap.Error(err))
		return cache.Nop{}
	}

	go func() {
		<-ctx.Done()
		if err := r.Close(); err != nil {
			logger.Warn("closing redis client", zap.Error(err))
		}
	}()

	logger.Info("response cache enabled", zap.Duration("ttl", cfg.TTL))
	return r
}
