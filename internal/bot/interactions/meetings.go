package interactions

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/angelajfisher/webex-mate/internal/orchestrator"
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

const meetingRequestTimeout = 15 * time.Second

func HandleStart(s *discordgo.Session, i *discordgo.InteractionCreate, o *orchestrator.Orchestrator, opts optionMap) {
	var (
		personal  = true
		topic     string
		meetingID int
	)
	if v, ok := opts["personal"]; ok {
		personal = v.BoolValue()
	}
	if v, ok := opts["topic"]; ok {
		topic = v.StringValue()
	}
	if v, ok := opts["meeting_id"]; ok {
		meetingID = int(v.IntValue())
	}

	Logger.Info().Str("user", interactionUser(i)).Str("channel_id", i.ChannelID).Msg("/webex start")
	startMeeting(s, i, o, personal, topic, meetingID)
}

// HandleComponent routes button presses on messages the bot sent.
func HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, o *orchestrator.Orchestrator) {
	switch i.MessageComponentData().CustomID {
	case START_BUTTON:
		Logger.Info().Str("user", interactionUser(i)).Str("channel_id", i.ChannelID).Msg(provider.StartMeetingLabel)
		startMeeting(s, i, o, true, "", 0)

	case DISMISS_BUTTON:
		o.Prompt.Close()
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    "Connect prompt dismissed.",
				Components: []discordgo.MessageComponent{},
			},
		})
		if err != nil {
			Logger.Warn().Err(err).Msg("could not respond to interaction")
		}
	}
}

func startMeeting(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	o *orchestrator.Orchestrator,
	personal bool,
	topic string,
	meetingID int,
) {
	o.State.Dispatch(state.ChannelSelected{ChannelID: i.ChannelID})

	// Webex can take longer than the interaction deadline, so acknowledge first and edit afterwards.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		Logger.Warn().Err(err).Msg("could not acknowledge interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), meetingRequestTimeout)
	defer cancel()

	res, err := o.Meetings.RequestMeeting(ctx, i.ChannelID, personal, topic, meetingID)
	if err != nil {
		Logger.Error().Err(err).Str("channel_id", i.ChannelID).Msg("meeting request failed")
	}

	content, components := MeetingReply(res, err)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	if err != nil {
		Logger.Warn().Err(err).Msg("could not update interaction response")
	}
}

// MeetingReply renders the outcome of a meeting request. Provider error details are posted to the
// channel separately, so the reply stays short.
func MeetingReply(res types.MeetingAttemptResult, err error) (string, []discordgo.MessageComponent) {
	components := []discordgo.MessageComponent{}

	switch {
	case err != nil:
		return "Could not reach Webex. Please try again in a moment.", components

	case res.Succeeded():
		content := "Webex meeting started"
		if res.Meeting.Topic != "" {
			content += ": **" + res.Meeting.Topic + "**"
		}
		if res.Meeting.Link == "" {
			return content + ".", components
		}
		return content, append(components, linkButton("Join Meeting", res.Meeting.Link))

	case res.Kind == types.ErrorKindAccountNotConnected:
		return "Meeting not started: your Webex account is not connected.", components

	default:
		return "Meeting not started: " + res.Message, components
	}
}
