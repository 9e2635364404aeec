package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nodeadmin/tableau/config"
)

var (
	configPath string
	outputPath string
	pretty     bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:           "tableau",
		Short:         "Tableau reasoner for description logic ontologies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err = cfg.Logging.NewLogger()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tableau.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	checkCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON report here (default: stdout)")
	checkCmd.Flags().BoolVar(&pretty, "pretty", true, "indent the JSON report")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(checkCmd, satCmd, subsumesCmd, instancesCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
