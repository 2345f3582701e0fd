package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"countrydash/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the countrydash command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "countrydash",
		Short: "Top countries by category, from an uploaded table",
		Long: `countrydash ranks countries by one category of a per-country proportions table
(for example countriesMBTI_16types.csv) and shows the top 10 as a table and a bar chart.

Run "countrydash serve" for the web dashboard or "countrydash top" for a one-shot terminal view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			initLogging(viper.GetString("log-level"))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./countrydash.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, disabled)")
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(), newTopCmd())
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// initConfig reads .env, the optional config file and COUNTRYDASH_* variables.
func initConfig(cfgFile string) error {
	_ = godotenv.Load()

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("countrydash")
	}

	viper.SetEnvPrefix("COUNTRYDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// initLogging configures the global logger
func initLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
