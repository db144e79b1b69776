package cmd

import (
	"context"

	"amoebius/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// destroyCmd represents the destroy command
var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down all live instances and revoke their credentials",
	Long: `Destroy every instance recorded in the state store and delete its
credential from the secret store. A failed secret delete does not block
the instance's destruction but fails the command, since an undeleted
secret must never go unnoticed.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDestroy()
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy() {
	ctx := context.Background()
	deployer, stateStore := buildDeployer(ctx)
	defer func() {
		if err := stateStore.Close(); err != nil {
			logging.Logger().Warn("failed to close state store", zap.Error(err))
		}
	}()

	if err := deployer.Teardown(ctx); err != nil {
		logging.Logger().Fatal("Teardown finished with errors", zap.Error(err))
	}

	logging.Logger().Info("All instances torn down")
}
