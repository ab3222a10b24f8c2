package commands

import (
	"context"
	"fmt"
	"os"

	"erpharvest/lib/telemetry"

	"github.com/spf13/cobra"
)

var configFile string
var debug bool

var rootCmd = &cobra.Command{
	Use:   "erpharvest",
	Short: "erpharvest harvests candidate and case records out of the HR ERP web interface.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json5", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
