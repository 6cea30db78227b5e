package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wellnessgrid/backend/internal/logger"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Calculate and store a wellness score for a user",
	Long: `Calculate a wellness score for one user over a period and print it as
JSON. The score is persisted to the configured store like the API does.`,
	RunE: runScore,
}

var (
	scoreUserID string
	scorePeriod string
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreUserID, "user", "u", "", "User ID to score")
	scoreCmd.Flags().StringVar(&scorePeriod, "period", "7d", "Scoring period such as 24h, 7d or 4w")
	_ = scoreCmd.MarkFlagRequired("user")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	ctx := logger.WithLogger(logger.WithUserID(cmd.Context(), scoreUserID), log)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	score, err := a.wellness.CalculateScore(ctx, scoreUserID, scorePeriod)
	if err != nil {
		return fmt.Errorf("failed to calculate score: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(score)
}
