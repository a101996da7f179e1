package interactions

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	WEBEX_COMMAND      = "webex"
	START_SUBCOMMAND   = "start"
	CONNECT_SUBCOMMAND = "connect"
	STATUS_SUBCOMMAND  = "status"

	START_BUTTON   = "webex_start_meeting"
	DISMISS_BUTTON = "webex_dismiss_prompt"
)

// Logger is set by the bot before any handler runs.
var Logger = zerolog.Nop()

func InteractionList() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        WEBEX_COMMAND,
			Description: "Start and manage Webex meetings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        START_SUBCOMMAND,
					Description: "Start a Webex meeting in this channel",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "topic",
							Description: "Topic of the meeting",
							Type:        discordgo.ApplicationCommandOptionString,
						},
						{
							Name:        "personal",
							Description: "Use your personal meeting room (default: true)",
							Type:        discordgo.ApplicationCommandOptionBoolean,
						},
						{
							Name:        "meeting_id",
							Description: "ID of an existing Webex meeting to share",
							Type:        discordgo.ApplicationCommandOptionInteger,
						},
					},
				},
				{
					Name:        CONNECT_SUBCOMMAND,
					Description: "Link your Webex account",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        STATUS_SUBCOMMAND,
					Description: "Check whether your Webex account is linked",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}

type optionMap = map[string]*discordgo.ApplicationCommandInteractionDataOption

func ParseOptions(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	om := make(optionMap)
	for _, opt := range options {
		om[opt.Name] = opt
	}
	return om
}

// Subcommand splits /webex <sub> into the subcommand name and its options.
func Subcommand(options []*discordgo.ApplicationCommandInteractionDataOption) (string, optionMap) {
	for _, opt := range options {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			return opt.Name, ParseOptions(opt.Options)
		}
	}
	return "", optionMap{}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		Logger.Warn().Err(err).Msg("could not respond to interaction")
	}
}

func linkButton(label string, url string) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: label, Style: discordgo.LinkButton, URL: url},
	}}
}

// interactionUser returns the invoking user for guild and DM interactions alike.
func interactionUser(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.String()
	case i.User != nil:
		return i.User.String()
	}
	return "unknown user"
}
