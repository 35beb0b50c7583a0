package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/matching"
)

var similarCmd = &cobra.Command{
	Use:   "similar <listing id>",
	Short: "Print listings similar to the given one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, config := setup()
		engine := mustEngine(context.Background(), config, logger)

		id, err := strconv.Atoi(args[0])
		if err != nil {
			logger.Fatal("listing id must be an integer", zap.String("id", args[0]))
		}

		limit, _ := cmd.Flags().GetInt("limit")
		similar, err := engine.Similar(id, limit)
		if err != nil {
			logger.Fatal("finding similar listings", zap.Error(err))
		}

		if len(similar) == 0 {
			logger.Warn("no similar listings", zap.Int("listing_id", id))
		}

		if err := printJSON(similar); err != nil {
			logger.Fatal("printing similar listings", zap.Error(err))
		}
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Print listings in high demand",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()
		engine := mustEngine(context.Background(), config, logger)

		limit, _ := cmd.Flags().GetInt("limit")
		trending, err := engine.Trending(limit)
		if err != nil {
			logger.Fatal("ranking trending listings", zap.Error(err))
		}

		if err := printJSON(trending); err != nil {
			logger.Fatal("printing trending listings", zap.Error(err))
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a summary of the dataset",
	Run: func(_ *cobra.Command, _ []string) {
		logger, config := setup()
		engine := mustEngine(context.Background(), config, logger)

		stats, err := engine.Stats()
		if err != nil {
			logger.Fatal("summarizing the catalog", zap.Error(err))
		}

		if err := printJSON(stats); err != nil {
			logger.Fatal("printing stats", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(similarCmd, trendingCmd, statsCmd)

	similarCmd.Flags().Int("limit", matching.DefaultRelatedLimit, "maximum number of listings")
	trendingCmd.Flags().Int("limit", matching.DefaultRelatedLimit, "maximum number of listings")
}
