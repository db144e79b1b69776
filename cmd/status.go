package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"amoebius/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live instances grouped by instance group",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() {
	ctx := context.Background()
	deployer, stateStore := buildDeployer(ctx)
	defer func() {
		if err := stateStore.Close(); err != nil {
			logging.Logger().Warn("failed to close state store", zap.Error(err))
		}
	}()

	grouped, err := deployer.Status(ctx)
	if err != nil {
		logging.Logger().Fatal("Failed to read instance state", zap.Error(err))
	}

	out, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		logging.Logger().Fatal("Failed to marshal status", zap.Error(err))
	}
	fmt.Println(string(out))
}
