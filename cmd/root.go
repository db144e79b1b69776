package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amoebius",
	Short: "Multi-cloud instance fleet provisioner",
	Long: `Amoebius provisions fleets of virtual machines across cloud providers
and hands each machine's SSH credential to a central secret store.

Instance groups are expanded per zone, names are legalized per provider,
and every instance's freshly issued private key is stored under a unique
secret path once the machine is SSH-reachable.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
