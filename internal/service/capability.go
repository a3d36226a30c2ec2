package service

import (
	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// ResolveCapabilities returns the set of channels currently enabled for a
// user. Channels are considered in the fixed order email, sms, push,
// whatsapp. Plan-tier restrictions are applied when preferences are
// persisted; the resolver trusts the stored toggles.
func ResolveCapabilities(prefs *domain.NotificationPreferences) domain.ChannelSet {
	var enabled domain.ChannelSet
	for _, c := range domain.Channels {
		if prefs.EnabledChannels().Has(c) {
			enabled = enabled.With(c)
		}
	}
	return enabled
}
