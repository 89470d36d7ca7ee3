package cmd

import (
	"context"

	"github.com/Steins-Lab/LLOneBot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "llonebot",
	Short: "Request/response bridge over the NT event bus",
	Long: `llonebot turns the desktop client's fire-and-forget event bus into
awaitable calls. Each request carries a correlation id; replies and
push events are matched back to the call that is waiting for them.

The call and serve commands run against a scripted host that plays
a YAML scenario, which makes it possible to exercise call conventions
and timing without a running client.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which call, serve and
// logs --follow stop on
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/llonebot/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/llonebot")
		viper.AddConfigPath(".")
	}

	// e.g., LLONEBOT_BRIDGE_DEFAULT_TIMEOUT_MS for bridge.default_timeout_ms
	config.BindEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
