// Boilerplate for initializing the program
package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/run"

	"github.com/angelajfisher/webex-mate/internal/bot"
	"github.com/angelajfisher/webex-mate/internal/client"
	"github.com/angelajfisher/webex-mate/internal/db"
	applog "github.com/angelajfisher/webex-mate/internal/log"
	"github.com/angelajfisher/webex-mate/internal/orchestrator"
	"github.com/angelajfisher/webex-mate/internal/push"
	"github.com/angelajfisher/webex-mate/internal/server"
)

const (
	Version       = "1.0"
	fatalErrorMsg = "\nfatal: %v\n\nA fatal error occurred. Webex Mate shut down.\n"
	separator     = "\n——————————————————————————————————————\n\n"
	startupWait   = 10 * time.Second
)

// Options are the command line flags.
type Options struct {
	DevMode    bool
	EnvFile    string
	Port       string
	BaseURL    string
	DBPath     string
	DBDisabled bool
	LogLevel   string
}

type setup struct {
	client       *client.Client
	orchestrator *orchestrator.Orchestrator
	database     db.DatabasePool
	server       *server.Config
	bot          *bot.Config // nil when the Discord surface is not configured
	push         *push.WebSocketSource
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

func Initialize(opts Options) {
	fmt.Print(
		"\n┬┴┬┴┤･ω･)ﾉ├┬┴┬┴\n",
		"Hi, Welcome to Webex Mate v"+Version+"!\n",
	)

	app, err := validateEnv(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, fatalErrorMsg, err)
		os.Exit(1)
	}
	defer app.close()

	logger := applog.WithComponent("application")

	ctx, cancel := context.WithTimeout(context.Background(), startupWait)
	bootstrap(ctx, app.client, app.orchestrator)
	cancel()

	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)

	g := run.Group{}

	g.Add(func() error {
		<-osSignal
		return nil
	}, func(error) {
		signal.Stop(osSignal)
		close(osSignal)
		if app.bot != nil {
			if err := bot.Stop(app.bot); err != nil {
				logger.Error().Err(err).Msg("could not stop bot")
			}
		}
	})

	g.Add(func() error { return server.Start(app.server) }, func(error) {
		if err := server.Stop(app.server); err != nil {
			logger.Error().Err(err).Msg("could not stop HTTP surface")
		}
	})

	pushCtx, stopPush := context.WithCancel(context.Background())
	g.Add(func() error { return app.push.Run(pushCtx) }, func(error) {
		stopPush()
	})

	if app.bot != nil {
		err = bot.Run(app.bot)
		if err != nil {
			fmt.Fprintf(os.Stderr, fatalErrorMsg, err)
			app.close()
			os.Exit(1)
		}
	}

	err = g.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, fatalErrorMsg, err)
		app.close()
		os.Exit(1)
	}

	fmt.Println("See you later! o/")
}

// bootstrap identifies the host user and asks the plugin once whether they are connected. Failures
// leave the session disconnected; the push channel and later queries can still connect it.
func bootstrap(ctx context.Context, c *client.Client, o *orchestrator.Orchestrator) {
	logger := applog.WithComponent("application")

	userID, err := c.CurrentUserID(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not identify the host user")
	} else {
		o.Identify(userID)
	}

	current, err := o.Session.QueryStatus(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not query Webex connection status")
		return
	}
	logger.Info().Bool("connected", current.Connected).Str("webex_user", current.DisplayName()).Msg("session loaded")
}

func validateEnv(opts Options) (*setup, error) {
	fmt.Println(separator + "Starting setup...\n\nLoading environment variables")
	defer fmt.Print(separator)

	if opts.EnvFile != "" {
		fmt.Println(
			"Loading variables from",
			opts.EnvFile,
			"— note that these will not override any existing environment variables",
		)
		err := godotenv.Load(opts.EnvFile)
		if err != nil {
			return nil, errors.New("could not load .env file at provided path")
		}
	} else {
		fmt.Println("note: no .env file provided")
	}

	applog.Configure(applog.Config{Level: opts.LogLevel, Pretty: opts.DevMode})
	logger := applog.WithComponent("application")

	certFile, keyFile := os.Getenv("SSL_CERT"), os.Getenv("SSL_KEY")
	if opts.DevMode {
		fmt.Print(
			"\nStarting in DEVELOPMENT mode:\n",
			"\t- HTTP surface running insecurely — HTTP without TLS\n",
			"\t- Logs are human readable instead of JSON\n",
			"This mode is for testing purposes only.\n",
		)
	} else if certFile == "" || keyFile == "" {
		return nil, errors.New("required SSL_CERT and/or SSL_KEY filepaths missing from environment")
	}

	siteURL, token := os.Getenv("MM_SITE_URL"), os.Getenv("MM_TOKEN")
	if siteURL == "" || token == "" {
		return nil, errors.New("required variables MM_SITE_URL and/or MM_TOKEN missing from environment")
	}

	var dbPool db.DatabasePool
	if opts.DBDisabled {
		fmt.Println("Database disabled — skipping initialization")
		dbPool = db.DatabasePool{Enabled: false}
	} else {
		var dbErr error
		dbPool, dbErr = setupDatabase(opts.DBPath)
		if dbErr != nil {
			return nil, fmt.Errorf("could not initialize database: %w", dbErr)
		}
	}

	pluginID := os.Getenv("WEBEX_PLUGIN_ID")
	c, err := client.New(client.Config{
		SiteURL:  siteURL,
		PluginID: pluginID,
		Token:    token,
		Logger:   applog.WithComponent("client"),
	})
	if err != nil {
		_ = dbPool.Close()
		return nil, fmt.Errorf("could not create plugin client: %w", err)
	}
	logger.Info().Str("plugin", c.BaseURL()).Str("token", applog.MaskToken(token)).Msg("plugin client ready")

	ctx, cancel := context.WithCancel(context.Background())
	o := orchestrator.NewOrchestrator(ctx, orchestrator.Config{
		Client:     c,
		PluginID:   c.PluginID(),
		ConnectURL: c.ConnectURL(),
		Database:   dbPool,
		Logger:     applog.Base(),
	})

	app := &setup{client: c, orchestrator: o, database: dbPool, cancel: cancel}

	wsURL, err := push.WebSocketURL(c.SiteURL())
	if err == nil {
		app.push, err = push.NewWebSocketSource(push.SourceConfig{
			URL:    wsURL,
			Token:  token,
			Logger: applog.WithComponent("push"),
		}, o.Hub)
	}
	if err != nil {
		app.close()
		return nil, fmt.Errorf("could not configure push channel: %w", err)
	}

	accessToken := os.Getenv("SURFACE_TOKEN")
	if accessToken == "" {
		if !opts.DevMode {
			app.close()
			return nil, errors.New("required variable SURFACE_TOKEN missing from environment")
		}
		fmt.Println("\nNo SURFACE_TOKEN provided — HTTP surface routes are unauthenticated")
	}

	secret := os.Getenv("PUSH_SECRET")
	if secret == "" {
		fmt.Println("\nNo PUSH_SECRET provided — HTTP push event ingress disabled")
	}
	app.server = &server.Config{
		DevMode:      opts.DevMode,
		Port:         opts.Port,
		BaseURL:      opts.BaseURL,
		CertFile:     certFile,
		KeyFile:      keyFile,
		Secret:       secret,
		AccessToken:  accessToken,
		Orchestrator: o,
		Logger:       applog.WithComponent("server"),
	}

	botToken, appID := os.Getenv("BOT_TOKEN"), os.Getenv("APP_ID")
	switch {
	case botToken != "" && appID != "":
		app.bot = &bot.Config{
			BotToken:     botToken,
			AppID:        appID,
			Orchestrator: o,
			Logger:       applog.WithComponent("discord"),
		}
	case botToken != "" || appID != "":
		app.close()
		return nil, errors.New("BOT_TOKEN and APP_ID must be provided together")
	default:
		fmt.Println("\nNo BOT_TOKEN provided — Discord surface disabled")
	}

	fmt.Println("\nSetup complete! Time to get the party started!")

	return app, nil
}

func (s *setup) close() {
	s.closeOnce.Do(func() {
		s.orchestrator.Shutdown()
		s.cancel()
		if err := s.database.Close(); err != nil {
			logger := applog.WithComponent("application")
			logger.Warn().Err(err).Msg("could not close database")
		}
	})
}

func setupDatabase(dbPath string) (db.DatabasePool, error) {
	cleanedDbPath := filepath.Clean(dbPath)
	fmt.Println("\nInitializing database at", cleanedDbPath)

	return db.Open(cleanedDbPath)
}
