package main

import (
	"github.com/spf13/cobra"
	"github.com/sweetpotato0/tandem/config"
)

var (
	envFiles []string
	cfg      *config.Config
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tandem",
		Short:         "Streaming role-play language tutor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (defaults to .env)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMCPCommand())
	rootCmd.AddCommand(newAskCommand())
	return rootCmd
}
