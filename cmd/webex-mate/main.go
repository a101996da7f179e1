package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/angelajfisher/webex-mate/internal/application"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := application.Options{}

	cmd := &cobra.Command{
		Use:   "webex-mate",
		Short: "Start Webex meetings from your chat channels",
		Long: `webex-mate links a messaging workspace to the Webex plugin. It tracks whether
your Webex account is connected, starts meetings in channels, and posts the
results back into the conversation over HTTP and, optionally, Discord.`,
		Version:      application.Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(*cobra.Command, []string) {
			application.Initialize(opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.DevMode, "dev", false, "run the program in development mode")
	flags.StringVar(&opts.EnvFile, "envFile", "", "program will load environment variables from the file at this path if provided")
	flags.StringVar(&opts.Port, "port", "127.0.0.1:12345", "address at which the HTTP surface will listen")
	flags.StringVar(&opts.BaseURL, "baseURL", "/webex-mate", "path prefix for every HTTP route")
	flags.StringVar(&opts.DBPath, "dbPath", "./.webexmate-db.sqlite3", "preferred location of the database file")
	flags.BoolVar(
		&opts.DBDisabled,
		"dbDisabled",
		false,
		"disable the use of a sqlite3 database in favor of in-memory storage, which is lost on shutdown",
	)
	flags.StringVar(&opts.LogLevel, "logLevel", "", "log level (trace, debug, info, warn, error); defaults to LOG_LEVEL or info")

	return cmd
}
