package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/filtering"
	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/matching"
	"github.com/spigell/internship-recommender/internal/server"
	"github.com/spigell/internship-recommender/internal/source"
)

const (
	app = "internship-recommender"

	defaultDataSource = "data/internship.csv"
)

type Config struct {
	Data      *source.Config    `mapstructure:"data"`
	Server    *server.Config    `mapstructure:"server"`
	Cache     *CacheConfig      `mapstructure:"cache"`
	Recommend *RecommendConfig  `mapstructure:"recommend"`
	Weights   *matching.Weights `mapstructure:"weights"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RecommendConfig struct {
	Limit            int      `mapstructure:"limit"`
	ExcludeFile      string   `mapstructure:"exclude-file"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	DisableFilters   []string `mapstructure:"disable-filters"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "internship-recommender ranks internship listings against a candidate profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"data.source":     "INTERNSHIP_DATA_SOURCE",
		"server.addr":     "INTERNSHIP_SERVER_ADDR",
		"cache.redis-url": "INTERNSHIP_REDIS_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is internship-recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data", "", "dataset location: a csv path, s3://bucket/key, a postgres dsn or \"sample\"")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data.source", rootCmd.PersistentFlags().Lookup("data"))
}

func setDefaults() {
	viper.SetDefault("data.source", defaultDataSource)
	viper.SetDefault("data.create-sample", true)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("cache.ttl", server.DefaultCacheTTL)
	viper.SetDefault("recommend.limit", matching.DefaultLimit)

	w := matching.DefaultWeights()
	viper.SetDefault("weights.skills", w.Skills)
	viper.SetDefault("weights.education", w.Education)
	viper.SetDefault("weights.location", w.Location)
	viper.SetDefault("weights.stipend", w.Stipend)
	viper.SetDefault("weights.prestige", w.Prestige)
}

func initConfig() {
	// .env is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// We can't proceed if the given config file is unreadable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}
	if config.Data == nil {
		config.Data = &source.Config{}
	}
	if config.Server == nil {
		config.Server = &server.Config{}
	}
	if config.Cache == nil {
		config.Cache = &CacheConfig{}
	}
	if config.Recommend == nil {
		config.Recommend = &RecommendConfig{}
	}

	return config, nil
}

// setup builds the logger and the config every command starts with.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		Service: app,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func loadEngine(ctx context.Context, config *Config, logger *zap.Logger) (*matching.Engine, error) {
	src, err := source.New(ctx, config.Data, logger)
	if err != nil {
		return nil, err
	}

	c, err := catalog.Load(ctx, src, logger)
	if err != nil {
		return nil, err
	}

	opts := []matching.Option{matching.WithLogger(logger)}
	if config.Weights != nil {
		opts = append(opts, matching.WithWeights(*config.Weights))
	}
	if r := config.Recommend; r != nil && len(r.DisableFilters) > 0 {
		opts = append(opts, matching.WithDisabledFilters(r.DisableFilters...))
	}
	if r := config.Recommend; r != nil && (r.ExcludeFile != "" || len(r.ExcludeCompanies) > 0) {
		opts = append(opts, matching.WithExtraFilters(func() []filtering.Filter {
			return []filtering.Filter{
				filtering.NewExcludedCompanies(r.ExcludeCompanies),
				filtering.NewExcludeFile(r.ExcludeFile),
			}
		}))
	}

	return matching.New(c, opts...), nil
}

// mustEngine loads the catalog or exits. A catalog that cannot be read is fatal at startup.
func mustEngine(ctx context.Context, config *Config, logger *zap.Logger) *matching.Engine {
	engine, err := loadEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}
	return engine
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(pretty))
	return err
}
