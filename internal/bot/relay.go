package bot

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/bot/interactions"
	"github.com/angelajfisher/webex-mate/internal/provider"
	"github.com/angelajfisher/webex-mate/internal/state"
	"github.com/angelajfisher/webex-mate/internal/types"
)

type messageSender interface {
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// relay mirrors local notifications and the connect prompt into the Discord channels the bot has been
// used in. Sends run off the dispatch path.
type relay struct {
	sender     messageSender
	connectURL string
	channels   map[string]struct{}
	lastPrompt types.Visibility
	mu         sync.Mutex
	log        zerolog.Logger
	async      func(func())
}

func newRelay(sender messageSender, connectURL string, logger zerolog.Logger) *relay {
	return &relay{
		sender:     sender,
		connectURL: connectURL,
		channels:   make(map[string]struct{}),
		log:        logger,
		async:      func(f func()) { go f() },
	}
}

func (r *relay) track(channelID string) {
	if channelID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channelID] = struct{}{}
}

func (r *relay) known(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[channelID]
	return ok
}

func (r *relay) notification(n types.Notification) {
	if !r.known(n.ChannelID) {
		return
	}
	r.async(func() { r.send(n.ChannelID, NotificationMessage(n)) })
}

// stateChanged posts the connect prompt when it turns visible.
func (r *relay) stateChanged(_ state.Event, st state.AppState) {
	r.mu.Lock()
	opened := r.lastPrompt == types.Hidden && st.Prompt == types.Visible
	r.lastPrompt = st.Prompt
	r.mu.Unlock()

	if !opened || !r.known(st.CurrentChannelID) {
		return
	}
	channelID := st.CurrentChannelID
	r.async(func() { r.send(channelID, interactions.ConnectPrompt(r.connectURL)) })
}

func (r *relay) send(channelID string, msg *discordgo.MessageSend) {
	_, err := r.sender.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		r.log.Warn().Err(err).Str("channel_id", channelID).Msg("could not relay message to Discord")
	}
}

// NotificationMessage renders a local system notification as a silent Discord message. The meeting
// ready notification carries the start meeting button.
func NotificationMessage(n types.Notification) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Description: n.Message,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Webex"},
	}
	if !n.CreatedAt.IsZero() {
		embed.Timestamp = n.CreatedAt.Format(time.RFC3339)
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsSuppressNotifications,
	}
	if n.Message == provider.MeetingReadyMessage {
		msg.Components = []discordgo.MessageComponent{interactions.StartMeetingButton()}
	}
	return msg
}
