package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tpcload/internal/application"
	"github.com/JonMunkholm/tpcload/internal/config"
	"github.com/JonMunkholm/tpcload/internal/logging"
)

type globalOptions struct {
	driver   string
	dsn      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:           "tpcimport",
		Short:         "Stream TPC-H delimited files into a database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Overload()
			// Flags win over the environment.
			setenv("DB_DRIVER", g.driver)
			setenv("DATABASE_URL", g.dsn)
			setenv("LOG_LEVEL", g.logLevel)
			// There is no scrape endpoint in a one-shot process.
			if os.Getenv("METRICS_BACKEND") == "" {
				os.Setenv("METRICS_BACKEND", "none")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.driver, "driver", "", "Store driver: postgres, sqlite or mysql (env DB_DRIVER)")
	root.PersistentFlags().StringVar(&g.dsn, "dsn", "", "Connection string (env DATABASE_URL)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")

	root.AddCommand(
		newImportCmd(),
		newTablesCmd(),
		newCountCmd(),
		newTruncateCmd(),
		newSchemaCmd(),
	)
	return root
}

func setenv(key, value string) {
	if value != "" {
		os.Setenv(key, value)
	}
}

// openApp loads configuration and connects. Logs go to stderr because
// stdout carries command output.
func openApp(cmd *cobra.Command) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return application.Open(cmd.Context(), cfg)
}
