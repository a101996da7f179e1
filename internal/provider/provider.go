// Package provider holds the contract values shared with the Webex plugin server. These strings are matched, not displayed,
// so renaming any of them on the server side silently breaks the client.
package provider

import (
	"fmt"
	"strings"

	"github.com/angelajfisher/webex-mate/internal/types"
)

const (
	DefaultPluginID = "webex"

	// AccountNotConnected is the error message the plugin returns when the user has no linked
	// Webex account. The plugin sends no structured error code, so this text is the only key.
	AccountNotConnected = "Webex account not connected"

	// OAuthSuccessEvent is the name the plugin publishes its oauth_success event under.
	OAuthSuccessEvent = "oauth_success"

	MeetingReadyMessage = "Webex account connected.  You can now start a meeting."

	NotificationIDPrefix = "webexPlugin"
	StartMeetingLabel    = "Start Webex Meeting"
)

// PushEventName returns the name the host uses for plugin websocket events: custom_<plugin>_<event>.
func PushEventName(pluginID string, event string) string {
	return fmt.Sprintf("custom_%s_%s", pluginID, event)
}

// OAuthSuccessEventName is the push event name for the default plugin id: custom_webex_oauth_success.
func OAuthSuccessEventName() string {
	return PushEventName(DefaultPluginID, OAuthSuccessEvent)
}

// IsAccountNotConnected reports whether a provider error message means the user must link their account.
func IsAccountNotConnected(message string) bool {
	return strings.TrimSpace(message) == AccountNotConnected
}

// Classify maps a provider error message to its kind.
func Classify(message string) types.ErrorKind {
	if IsAccountNotConnected(message) {
		return types.ErrorKindAccountNotConnected
	}
	return types.ErrorKindOther
}
