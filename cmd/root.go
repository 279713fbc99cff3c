// Package cmd provides the shoptalk CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/shoptalk-assistant/pkg/config"
	logx "github.com/tanpawarit/shoptalk-assistant/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "shoptalk",
	Short: "ShopTalk - conversational shopping assistant",
	Long: `ShopTalk turns shopper utterances into catalog searches, cart
changes, checkout and payment against per-session state.

Configuration is read from the environment, optionally seeded from a
dotenv file (--env, default ./.env).

Commands:
  serve   Start the HTTP API
  chat    Talk to the assistant on stdin/stdout`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		configx.SetEnvFile(envFile)
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load (default: ./.env if present)")
}
