package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"amoebius/internal/fleet"
	"amoebius/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var deployManifestFile string

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy [manifest file]",
	Short: "Provision the fleet declared in a manifest",
	Long: `Expand the manifest's instance groups across zones, create the
instances on the configured provider and hand each SSH credential to the
secret store. The run is all-or-nothing: if any instance fails, the run
fails and no grouped result is printed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if deployManifestFile == "" {
			if len(args) > 0 {
				deployManifestFile = args[0]
			} else {
				logging.Logger().Fatal("Manifest file is required")
			}
		}

		runDeploy(deployManifestFile)
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVarP(&deployManifestFile, "manifest", "f", "", "Path to fleet manifest YAML file")
}

func runDeploy(manifestFile string) {
	content, err := os.ReadFile(manifestFile)
	if err != nil {
		logging.Logger().Fatal("Failed to read manifest file", zap.Error(err))
	}

	manifest, err := fleet.ParseManifest(content)
	if err != nil {
		logging.Logger().Fatal("Invalid manifest", zap.Error(err))
	}

	ctx := context.Background()
	deployer, stateStore := buildDeployer(ctx)
	defer func() {
		if err := stateStore.Close(); err != nil {
			logging.Logger().Warn("failed to close state store", zap.Error(err))
		}
	}()

	result, err := deployer.Deploy(ctx, manifest)
	if err != nil {
		logging.Logger().Fatal("Deployment failed", zap.Error(err))
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logging.Logger().Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(output))
}
