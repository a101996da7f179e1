package interactions

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/angelajfisher/webex-mate/internal/orchestrator"
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/types"
)

func HandleStatus(s *discordgo.Session, i *discordgo.InteractionCreate, o *orchestrator.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	current, err := o.Session.QueryStatus(ctx)
	if err != nil {
		Logger.Warn().Err(err).Msg("could not refresh session status")
	} else {
		if _, perr := o.Session.Profile(ctx); perr != nil {
			Logger.Warn().Err(perr).Msg("could not load Webex profile")
		}
		current = o.Session.Snapshot()
	}

	respond(s, i, &discordgo.InteractionResponseData{
		Content: StatusMessage(current, err != nil),
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// StatusMessage describes the session. stale marks an answer from the last known state because the
// plugin could not be reached.
func StatusMessage(current types.SessionState, stale bool) string {
	var response string
	if current.Connected {
		response = "Your Webex account is connected as **" + current.DisplayName() + "**."
	} else {
		response = "Your Webex account is not connected. Link it with `/webex connect`."
	}
	if stale {
		response += "\n-# Webex could not be reached; this is the last known status."
	}
	return response
}

func HandleConnect(s *discordgo.Session, i *discordgo.InteractionCreate, o *orchestrator.Orchestrator) {
	Logger.Info().Str("user", interactionUser(i)).Msg("/webex connect")

	respond(s, i, &discordgo.InteractionResponseData{
		Content:    "Open the link below to connect your Webex account.",
		Components: []discordgo.MessageComponent{linkButton("Connect Webex", o.Meetings.BeginConnect())},
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

// StartMeetingButton starts a personal meeting in the channel the message was posted in.
func StartMeetingButton() discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: provider.StartMeetingLabel, Style: discordgo.PrimaryButton, CustomID: START_BUTTON},
	}}
}

// ConnectPrompt is the message shown while the connect prompt is visible.
func ConnectPrompt(connectURL string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Connect Webex",
			Description: "You need to connect your Webex account before you can start a meeting.",
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Connect Webex", Style: discordgo.LinkButton, URL: connectURL},
				discordgo.Button{Label: "Dismiss", Style: discordgo.SecondaryButton, CustomID: DISMISS_BUTTON},
			}},
		},
		Flags: discordgo.MessageFlagsSuppressNotifications,
	}
}
