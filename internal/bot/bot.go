package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/bot/interactions"
	"github.com/angelajfisher/webex-mate/internal/orchestrator"
	"github.com/angelajfisher/webex-mate/internal/state"
)

type Config struct {
	BotToken     string
	AppID        string
	Orchestrator *orchestrator.Orchestrator
	Logger       zerolog.Logger

	session        *discordgo.Session
	relay          *relay
	subscription   *state.Subscription
	cancelTimeline func()
}

func Run(bc *Config) error {
	var err error
	bc.session, err = discordgo.New("Bot " + bc.BotToken)
	if err != nil {
		return fmt.Errorf("invalid bot parameters: %w", err)
	}
	interactions.Logger = bc.Logger

	bc.relay = newRelay(bc.session, bc.Orchestrator.Meetings.ConnectURL(), bc.Logger)

	bc.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		bc.relay.track(i.ChannelID)

		switch i.Type {
		case discordgo.InteractionMessageComponent:
			interactions.HandleComponent(s, i, bc.Orchestrator)
			return
		case discordgo.InteractionApplicationCommand:
		default:
			return
		}

		data := i.ApplicationCommandData()
		if data.Name != interactions.WEBEX_COMMAND {
			return
		}

		sub, opts := interactions.Subcommand(data.Options)
		switch sub {
		case interactions.START_SUBCOMMAND:
			interactions.HandleStart(s, i, bc.Orchestrator, opts)
		case interactions.CONNECT_SUBCOMMAND:
			interactions.HandleConnect(s, i, bc.Orchestrator)
		case interactions.STATUS_SUBCOMMAND:
			interactions.HandleStatus(s, i, bc.Orchestrator)
		}
	})

	bc.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		bc.Logger.Info().Str("user", r.User.String()).Msg("logged in to Discord")
	})

	_, err = bc.session.ApplicationCommandBulkOverwrite(bc.AppID, "", interactions.InteractionList())
	if err != nil {
		return fmt.Errorf("could not register bot commands: %w", err)
	}

	err = bc.session.Open()
	if err != nil {
		return fmt.Errorf("could not open bot session: %w", err)
	}

	if err = bc.session.UpdateCustomStatus("Start a Webex meeting with /webex start"); err != nil {
		bc.Logger.Warn().Err(err).Msg("could not set custom status")
	}

	bc.cancelTimeline = bc.Orchestrator.Timeline.Watch(bc.relay.notification)
	bc.subscription = bc.Orchestrator.Subscribe(bc.relay.stateChanged)

	return nil
}

func Stop(bc *Config) error {
	if bc.session == nil {
		return nil
	}

	bc.Logger.Info().Msg("bot shutting down")

	bc.subscription.Cancel()
	if bc.cancelTimeline != nil {
		bc.cancelTimeline()
	}

	err := bc.session.Close()
	if err != nil {
		return fmt.Errorf("could not close session gracefully: %w", err)
	}

	return nil
}
